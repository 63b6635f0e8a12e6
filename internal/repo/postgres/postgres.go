package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimecore/internal/domain"
	"github.com/hamed0406/uptimecore/internal/repo"
)

var (
	_ repo.Datastore = (*Store)(nil)
	_ repo.Seeder    = (*Store)(nil)
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema_applied")
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping is used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// ---- MonitorStore ----

const monitorColumns = `id, name, kind, url, hostname, port, method, headers, body, auth,
       interval_seconds, timeout_seconds, retry_count, expected_status_codes,
       keyword, keyword_type, follow_redirects, verify_tls, active,
       last_checked_at, last_status, uptime_7d, uptime_30d,
       avg_response_time_30d, summary_updated_at`

func scanMonitor(row pgx.Row) (domain.Monitor, error) {
	var (
		m          domain.Monitor
		id         string
		kind       string
		kwType     string
		lastStatus string
	)
	err := row.Scan(&id, &m.Name, &kind, &m.URL, &m.Hostname, &m.Port, &m.Method, &m.Headers, &m.Body, &m.Auth,
		&m.IntervalSeconds, &m.TimeoutSeconds, &m.RetryCount, &m.ExpectedStatusCodes,
		&m.Keyword, &kwType, &m.FollowRedirects, &m.VerifyTLS, &m.Active,
		&m.LastCheckedAt, &lastStatus, &m.Summary.Uptime7d, &m.Summary.Uptime30d,
		&m.Summary.AvgResponseTime30d, &m.Summary.UpdatedAt)
	if err != nil {
		return domain.Monitor{}, err
	}
	m.ID = domain.MonitorID(id)
	m.Kind = domain.Kind(kind)
	m.KeywordType = domain.KeywordType(kwType)
	m.LastStatus = domain.Status(lastStatus)
	return m, nil
}

func (s *Store) queryMonitors(ctx context.Context, q string, args ...any) ([]domain.Monitor, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveMonitors(ctx context.Context) ([]domain.Monitor, error) {
	return s.queryMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE active ORDER BY id`)
}

func (s *Store) ListDueMonitors(ctx context.Context, now time.Time) ([]domain.Monitor, error) {
	return s.queryMonitors(ctx, `
SELECT `+monitorColumns+`
  FROM monitors
 WHERE active
   AND (last_checked_at IS NULL
        OR last_checked_at + make_interval(secs => COALESCE(NULLIF(interval_seconds, 0), 60)) <= $1)
 ORDER BY id`, now)
}

func (s *Store) GetMonitor(ctx context.Context, id domain.MonitorID) (domain.Monitor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, string(id))
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Monitor{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Monitor{}, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) UpdateMonitorSummary(ctx context.Context, id domain.MonitorID, sum domain.MonitorSummary) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE monitors
   SET uptime_7d = $2, uptime_30d = $3, avg_response_time_30d = $4, summary_updated_at = $5
 WHERE id = $1`,
		string(id), sum.Uptime7d, sum.Uptime30d, sum.AvgResponseTime30d, sum.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- Seeder ----

func (s *Store) UpsertMonitor(ctx context.Context, m domain.Monitor) error {
	headers := m.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO monitors
  (id, name, kind, url, hostname, port, method, headers, body, auth,
   interval_seconds, timeout_seconds, retry_count, expected_status_codes,
   keyword, keyword_type, follow_redirects, verify_tls, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name, kind = EXCLUDED.kind, url = EXCLUDED.url,
  hostname = EXCLUDED.hostname, port = EXCLUDED.port, method = EXCLUDED.method,
  headers = EXCLUDED.headers, body = EXCLUDED.body, auth = EXCLUDED.auth,
  interval_seconds = EXCLUDED.interval_seconds, timeout_seconds = EXCLUDED.timeout_seconds,
  retry_count = EXCLUDED.retry_count, expected_status_codes = EXCLUDED.expected_status_codes,
  keyword = EXCLUDED.keyword, keyword_type = EXCLUDED.keyword_type,
  follow_redirects = EXCLUDED.follow_redirects, verify_tls = EXCLUDED.verify_tls,
  active = EXCLUDED.active`,
		string(m.ID), m.Name, string(m.Kind), m.URL, m.Hostname, m.Port, m.Method, headers, m.Body, m.Auth,
		m.IntervalSeconds, m.TimeoutSeconds, m.RetryCount, m.ExpectedStatusCodes,
		m.Keyword, string(m.KeywordType), m.FollowRedirects, m.VerifyTLS, m.Active)
	if err != nil {
		return fmt.Errorf("upsert monitor: %w", err)
	}
	return nil
}
