package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind         = errors.New("unknown monitor kind")
	ErrIncidentAlreadyOpen = errors.New("incident already open")
	ErrNotFound            = errors.New("not found")
)

// ValidationError marks a monitor configuration that cannot be probed.
// It is fatal for that monitor's cycle only.
type ValidationError struct {
	MonitorID MonitorID
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("monitor %s: invalid %s: %v", e.MonitorID, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed Datastore write.
type PersistenceError struct {
	Op        string
	MonitorID MonitorID
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (monitor %s): %v", e.Op, e.MonitorID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError wraps a failed notification send for one contact.
type DeliveryError struct {
	ContactID string
	Channel   ContactType
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to contact %s: %v", e.Channel, e.ContactID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
