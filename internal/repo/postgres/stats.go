package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// UpsertDailyStat folds one check into the day row inside a single
// statement so concurrent writers never lose an increment. The running
// average only counts checks that carried a response time.
func (s *Store) UpsertDailyStat(ctx context.Context, id domain.MonitorID, day time.Time, d domain.StatDelta) error {
	up, down := 0, 1
	if d.Up {
		up, down = 1, 0
	}
	samples := 0
	if d.ResponseTimeMS != nil {
		samples = 1
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO daily_stats AS s
  (monitor_id, date, total_checks, successful_checks, down_checks, uptime_percentage,
   avg_response_time, min_response_time, max_response_time, response_samples)
VALUES ($1, $2, 1, $3::integer, $4::integer, ROUND($3::integer * 100.0, 2),
        $5::integer, $5::integer, $5::integer, $6::integer)
ON CONFLICT (monitor_id, date) DO UPDATE SET
  total_checks      = s.total_checks + 1,
  successful_checks = s.successful_checks + $3::integer,
  down_checks       = s.down_checks + $4::integer,
  uptime_percentage = ROUND((s.successful_checks + $3::integer) * 100.0 / (s.total_checks + 1), 2),
  avg_response_time = CASE WHEN $5::integer IS NULL THEN s.avg_response_time
                           ELSE (COALESCE(s.avg_response_time, 0) * s.response_samples + $5::integer) / (s.response_samples + 1) END,
  min_response_time = CASE WHEN $5::integer IS NULL THEN s.min_response_time
                           ELSE LEAST(COALESCE(s.min_response_time, $5::integer), $5::integer) END,
  max_response_time = CASE WHEN $5::integer IS NULL THEN s.max_response_time
                           ELSE GREATEST(COALESCE(s.max_response_time, $5::integer), $5::integer) END,
  response_samples  = s.response_samples + $6::integer`,
		string(id), domain.Day(day), up, down, d.ResponseTimeMS, samples)
	if err != nil {
		return fmt.Errorf("upsert daily stat: %w", err)
	}
	return nil
}

func (s *Store) ReplaceDailyStat(ctx context.Context, st domain.DailyStat) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO daily_stats
  (monitor_id, date, total_checks, successful_checks, down_checks, uptime_percentage,
   avg_response_time, min_response_time, max_response_time, response_samples,
   p50_response_time, p95_response_time, p99_response_time,
   downtime_duration, downtime_incidents, aggregated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (monitor_id, date) DO UPDATE SET
  total_checks = EXCLUDED.total_checks,
  successful_checks = EXCLUDED.successful_checks,
  down_checks = EXCLUDED.down_checks,
  uptime_percentage = EXCLUDED.uptime_percentage,
  avg_response_time = EXCLUDED.avg_response_time,
  min_response_time = EXCLUDED.min_response_time,
  max_response_time = EXCLUDED.max_response_time,
  response_samples = EXCLUDED.response_samples,
  p50_response_time = EXCLUDED.p50_response_time,
  p95_response_time = EXCLUDED.p95_response_time,
  p99_response_time = EXCLUDED.p99_response_time,
  downtime_duration = EXCLUDED.downtime_duration,
  downtime_incidents = EXCLUDED.downtime_incidents,
  aggregated_at = EXCLUDED.aggregated_at`,
		string(st.MonitorID), domain.Day(st.Date), st.TotalChecks, st.SuccessfulChecks, st.DownChecks,
		st.UptimePercentage, st.AvgResponseTime, st.MinResponseTime, st.MaxResponseTime, st.ResponseSamples,
		st.P50ResponseTime, st.P95ResponseTime, st.P99ResponseTime,
		st.DowntimeDuration, st.DowntimeIncidents, st.AggregatedAt)
	if err != nil {
		return fmt.Errorf("replace daily stat: %w", err)
	}
	return nil
}

func (s *Store) HasDailyStats(ctx context.Context, day time.Time) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM daily_stats WHERE date = $1 AND aggregated_at IS NOT NULL)`, domain.Day(day)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("has daily stats: %w", err)
	}
	return ok, nil
}

func (s *Store) DailyStats(ctx context.Context, id domain.MonitorID, from, to time.Time) ([]domain.DailyStat, error) {
	rows, err := s.pool.Query(ctx, `
SELECT date, total_checks, successful_checks, down_checks, uptime_percentage,
       avg_response_time, min_response_time, max_response_time, response_samples,
       p50_response_time, p95_response_time, p99_response_time,
       downtime_duration, downtime_incidents, aggregated_at
  FROM daily_stats
 WHERE monitor_id = $1 AND date >= $2 AND date < $3
 ORDER BY date`, string(id), domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyStat
	for rows.Next() {
		st := domain.DailyStat{MonitorID: id}
		if err := rows.Scan(&st.Date, &st.TotalChecks, &st.SuccessfulChecks, &st.DownChecks, &st.UptimePercentage,
			&st.AvgResponseTime, &st.MinResponseTime, &st.MaxResponseTime, &st.ResponseSamples,
			&st.P50ResponseTime, &st.P95ResponseTime, &st.P99ResponseTime,
			&st.DowntimeDuration, &st.DowntimeIncidents, &st.AggregatedAt); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		st.Date = domain.Day(st.Date)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) PurgeDailyStatsBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM daily_stats WHERE date < $1`, domain.Day(day))
	if err != nil {
		return 0, fmt.Errorf("purge daily stats: %w", err)
	}
	return tag.RowsAffected(), nil
}
