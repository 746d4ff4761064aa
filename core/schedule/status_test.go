package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_DeriveStatus(t *testing.T) {
	date := time.Date(2021, time.April, 12, 0, 0, 0, 0, time.UTC)
	tod := func(h, m int) time.Time { return time.Date(0, time.January, 1, h, m, 0, 0, time.UTC) }
	on := func(h, m int) time.Time { return time.Date(2021, time.April, 12, h, m, 0, 0, time.UTC) }

	// 09:00 - 10:00 session
	sched := Schedule{
		ScheduleDate: date,
		StartTime:    tod(9, 0),
		EndTime:      tod(10, 0),
		Status:       StatusUpcoming,
	}
	pending := &RescheduleRequest{Status: ReschedulePending}
	approved := &RescheduleRequest{Status: RescheduleApproved}
	rejected := &RescheduleRequest{Status: RescheduleRejected}

	tests := []struct {
		name   string
		stored string
		latest *RescheduleRequest
		now    time.Time
		want   string
	}{
		{name: "before start", now: on(8, 59), want: StatusUpcoming},
		{name: "at start", now: on(9, 0), want: StatusOnProgress},
		{name: "within", now: on(9, 30), want: StatusOnProgress},
		{name: "at end", now: on(10, 0), want: StatusOnProgress},
		{name: "after end", now: on(10, 1), want: StatusCompleted},

		{name: "pending reschedule wins over time", latest: pending, now: on(9, 30), want: StatusRescheduled},
		{name: "approved reschedule falls through", latest: approved, now: on(8, 0), want: StatusUpcoming},
		{name: "rejected reschedule falls through", latest: rejected, now: on(11, 0), want: StatusCompleted},

		{name: "canceled", stored: "canceled", now: on(9, 30), want: StatusCanceled},
		{name: "canceled uppercased", stored: "CANCELED", now: on(8, 0), want: StatusCanceled},
		{name: "canceled mixed case", stored: "Canceled", now: on(11, 0), want: StatusCanceled},
		{name: "canceled wins over pending reschedule", stored: "canceled", latest: pending, now: on(9, 30), want: StatusCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sched
			if tt.stored != "" {
				s.Status = tt.stored
			}
			assert.Equal(t, tt.want, DeriveStatus(s, tt.latest, tt.now))
		})
	}
}

func Test_Schedule_Mode(t *testing.T) {
	var s Schedule
	assert.Equal(t, ModeOnline, s.Mode())
	s.Room.SetValid("R-201")
	assert.Equal(t, ModeOffline, s.Mode())
}
