package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/uptimecore/internal/domain"
)

const checkColumns = `id, monitor_id, status, response_time_ms, status_code, error_message,
       checked_at, region, tls_days_remaining, keyword_found`

func scanCheck(row pgx.Row) (domain.CheckResult, error) {
	var (
		r         domain.CheckResult
		monitorID string
		status    string
	)
	err := row.Scan(&r.ID, &monitorID, &status, &r.ResponseTimeMS, &r.StatusCode, &r.ErrorMessage,
		&r.CheckedAt, &r.Region, &r.TLSDaysRemaining, &r.KeywordFound)
	if err != nil {
		return domain.CheckResult{}, err
	}
	r.MonitorID = domain.MonitorID(monitorID)
	r.Status = domain.Status(status)
	r.CheckedAt = r.CheckedAt.UTC()
	return r, nil
}

// InsertCheck appends the row and moves the monitor's last_* columns in one
// transaction.
func (s *Store) InsertCheck(ctx context.Context, r *domain.CheckResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
INSERT INTO checks
  (monitor_id, status, response_time_ms, status_code, error_message,
   checked_at, region, tls_days_remaining, keyword_found)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
		string(r.MonitorID), string(r.Status), r.ResponseTimeMS, r.StatusCode, r.ErrorMessage,
		r.CheckedAt, r.Region, r.TLSDaysRemaining, r.KeywordFound,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE monitors SET last_checked_at = $2, last_status = $3 WHERE id = $1`,
		string(r.MonitorID), r.CheckedAt, string(r.Status)); err != nil {
		return fmt.Errorf("update monitor last check: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) LatestCheck(ctx context.Context, id domain.MonitorID) (*domain.CheckResult, error) {
	return s.oneCheck(ctx, `SELECT `+checkColumns+` FROM checks WHERE monitor_id = $1 ORDER BY id DESC LIMIT 1`, string(id))
}

func (s *Store) PreviousCheck(ctx context.Context, id domain.MonitorID, beforeID int64) (*domain.CheckResult, error) {
	return s.oneCheck(ctx, `SELECT `+checkColumns+` FROM checks WHERE monitor_id = $1 AND id < $2 ORDER BY id DESC LIMIT 1`, string(id), beforeID)
}

func (s *Store) oneCheck(ctx context.Context, q string, args ...any) (*domain.CheckResult, error) {
	r, err := scanCheck(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get check: %w", err)
	}
	return &r, nil
}

func (s *Store) ChecksBetween(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.CheckResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+checkColumns+`
  FROM checks
 WHERE monitor_id = $1 AND checked_at >= $2 AND checked_at < $3
 ORDER BY checked_at, id`, string(id), from, to)
	if err != nil {
		return nil, fmt.Errorf("checks between: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		r, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PurgeChecksBefore(ctx context.Context, t time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM checks WHERE checked_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("purge checks: %w", err)
	}
	return tag.RowsAffected(), nil
}
