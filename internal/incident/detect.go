// Package incident turns consecutive check results into up/down transitions
// and keeps one open incident per monitor in step with them.
package incident

import "github.com/hamed0406/uptimecore/internal/domain"

type Transition string

const (
	None   Transition = "none"
	ToDown Transition = "to_down"
	ToUp   Transition = "to_up"
)

// Detect compares the logical state (up, or down for down/error/timeout) of
// current against previous. A nil previous is unknown: the first check of a
// monitor can go down but never recovers.
func Detect(previous *domain.CheckResult, current domain.CheckResult) Transition {
	curDown := current.Status.IsDown()
	if previous == nil {
		if curDown {
			return ToDown
		}
		return None
	}
	prevDown := previous.Status.IsDown()
	switch {
	case prevDown == curDown:
		return None
	case curDown:
		return ToDown
	default:
		return ToUp
	}
}
