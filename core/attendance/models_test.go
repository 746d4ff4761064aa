package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_DisplayStatus(t *testing.T) {
	window := 12 * time.Hour
	end := time.Date(2021, time.April, 12, 10, 0, 0, 0, time.UTC)
	beforeDeadline := end.Add(window) // boundary counts as "before"
	afterDeadline := end.Add(window).Add(time.Second)

	att := func(marked, confirmed bool) Attendance {
		return Attendance{MarkedByTutor: marked, ConfirmedByStudent: confirmed}
	}

	tests := []struct {
		name string
		att  Attendance
		now  time.Time
		want string
	}{
		{name: "both true", att: att(true, true), now: beforeDeadline, want: DisplayPresents},
		{name: "both true past deadline", att: att(true, true), now: afterDeadline, want: DisplayPresents},
		{name: "confirmed only", att: att(false, true), now: beforeDeadline, want: DisplayStudentMarked},
		{name: "marked, within window", att: att(true, false), now: beforeDeadline, want: DisplayPendingConfirmation},
		{name: "marked, past window", att: att(true, false), now: afterDeadline, want: DisplayUnconfirmed},
		{name: "neither, within window", att: att(false, false), now: beforeDeadline, want: DisplayAwaitingMark},
		{name: "neither, past window", att: att(false, false), now: afterDeadline, want: DisplayAbsent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayStatus(tt.att, end, tt.now, window))
		})
	}
}
