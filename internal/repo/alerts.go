package repo

import (
	"context"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

type ContactStore interface {
	// ListActiveContacts returns contacts bound to the monitor that are both
	// active and enabled.
	ListActiveContacts(ctx context.Context, id domain.MonitorID) ([]domain.Contact, error)
}

// AlertLogStore keeps one row per delivery attempt.
type AlertLogStore interface {
	InsertAlertLog(ctx context.Context, l *domain.AlertLog) error
	PurgeAlertLogsBefore(ctx context.Context, t time.Time) (int64, error)
}
