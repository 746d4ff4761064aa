package schedule

import (
	"strings"
	"time"
)

// DeriveStatus maps a schedule row and its latest reschedule request onto the
// display status. Never persisted; recomputed on every read.
//
// Priority order, first match wins:
//  1. stored cancellation (any casing)
//  2. a Pending reschedule request
//  3. the clock against [start, end] on the schedule date
func DeriveStatus(s Schedule, latest *RescheduleRequest, now time.Time) string {
	if strings.EqualFold(s.Status, StatusCanceled) {
		return StatusCanceled
	}
	if latest != nil && latest.Status == ReschedulePending {
		return StatusRescheduled
	}

	switch {
	case now.Before(s.StartAt()):
		return StatusUpcoming
	case now.After(s.EndAt()):
		return StatusCompleted
	default:
		return StatusOnProgress
	}
}
