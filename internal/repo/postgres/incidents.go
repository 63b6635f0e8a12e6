package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hamed0406/uptimecore/internal/domain"
)

const incidentColumns = `id, monitor_id, status, started_at, resolved_at, duration_seconds, cause`

func scanIncident(row pgx.Row) (domain.Incident, error) {
	var (
		inc       domain.Incident
		monitorID string
		status    string
	)
	if err := row.Scan(&inc.ID, &monitorID, &status, &inc.StartedAt, &inc.ResolvedAt, &inc.DurationSeconds, &inc.Cause); err != nil {
		return domain.Incident{}, err
	}
	inc.MonitorID = domain.MonitorID(monitorID)
	inc.Status = domain.IncidentStatus(status)
	return inc, nil
}

// OpenIncident relies on the partial unique index uq_incidents_open.
func (s *Store) OpenIncident(ctx context.Context, inc *domain.Incident) error {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO incidents (id, monitor_id, status, started_at, cause)
VALUES ($1, $2, $3, $4, $5)`,
		inc.ID, string(inc.MonitorID), string(inc.Status), inc.StartedAt, inc.Cause)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrIncidentAlreadyOpen
	}
	if err != nil {
		return fmt.Errorf("open incident: %w", err)
	}
	return nil
}

func (s *Store) CloseOpenIncident(ctx context.Context, id domain.MonitorID, t time.Time) (*domain.Incident, error) {
	row := s.pool.QueryRow(ctx, `
UPDATE incidents
   SET resolved_at = $2,
       duration_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - started_at))::bigint),
       status = $3
 WHERE monitor_id = $1 AND resolved_at IS NULL
RETURNING `+incidentColumns, string(id), t, string(domain.IncidentResolved))
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("close incident: %w", err)
	}
	return &inc, nil
}

func (s *Store) OpenIncidentFor(ctx context.Context, id domain.MonitorID) (*domain.Incident, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE monitor_id = $1 AND resolved_at IS NULL`, string(id))
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open incident for: %w", err)
	}
	return &inc, nil
}

func (s *Store) ListIncidents(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Incident, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	// LIMIT NULL is no limit.
	rows, err := s.pool.Query(ctx, `
SELECT `+incidentColumns+`
  FROM incidents
 WHERE monitor_id = $1
 ORDER BY started_at DESC
 LIMIT $2`, string(id), lim)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
