package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/uptimecore/internal/domain"
)

func (s *Store) UpsertContact(ctx context.Context, c domain.Contact) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO contacts
  (id, name, type, email, webhook_url, bearer_token, bot_token, chat_id,
   active, enabled, notify_on_down, notify_on_up, delay_seconds)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name, type = EXCLUDED.type, email = EXCLUDED.email,
  webhook_url = EXCLUDED.webhook_url, bearer_token = EXCLUDED.bearer_token,
  bot_token = EXCLUDED.bot_token, chat_id = EXCLUDED.chat_id,
  active = EXCLUDED.active, enabled = EXCLUDED.enabled,
  notify_on_down = EXCLUDED.notify_on_down, notify_on_up = EXCLUDED.notify_on_up,
  delay_seconds = EXCLUDED.delay_seconds`,
		c.ID, c.Name, string(c.Type), c.Email, c.WebhookURL, c.BearerToken, c.BotToken, c.ChatID,
		c.Active, c.Enabled, c.NotifyOnDown, c.NotifyOnUp, c.DelaySeconds)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (s *Store) BindContacts(ctx context.Context, id domain.MonitorID, contactIDs []string) error {
	for _, cid := range contactIDs {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO monitor_contacts (monitor_id, contact_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			string(id), cid); err != nil {
			return fmt.Errorf("bind contact %s: %w", cid, err)
		}
	}
	return nil
}

func (s *Store) ListActiveContacts(ctx context.Context, id domain.MonitorID) ([]domain.Contact, error) {
	rows, err := s.pool.Query(ctx, `
SELECT c.id, c.name, c.type, c.email, c.webhook_url, c.bearer_token, c.bot_token, c.chat_id,
       c.active, c.enabled, c.notify_on_down, c.notify_on_up, c.delay_seconds
  FROM contacts c
  JOIN monitor_contacts mc ON mc.contact_id = c.id
 WHERE mc.monitor_id = $1 AND c.active AND c.enabled
 ORDER BY c.id`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var (
			c     domain.Contact
			ctype string
		)
		if err := rows.Scan(&c.ID, &c.Name, &ctype, &c.Email, &c.WebhookURL, &c.BearerToken, &c.BotToken, &c.ChatID,
			&c.Active, &c.Enabled, &c.NotifyOnDown, &c.NotifyOnUp, &c.DelaySeconds); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.Type = domain.ContactType(ctype)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertAlertLog(ctx context.Context, l *domain.AlertLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO alert_logs (id, contact_id, monitor_id, type, status, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.ContactID, string(l.MonitorID), string(l.Type), string(l.Status), l.Message, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert log: %w", err)
	}
	return nil
}

func (s *Store) PurgeAlertLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_logs WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("purge alert logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
