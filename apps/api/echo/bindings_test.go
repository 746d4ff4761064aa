package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
)

func Test_intParam(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		want    int
		wantErr error
	}{
		{name: "ok", param: "42", want: 42},
		{name: "not a number", param: "lol", wantErr: errHTTPNotFound},
		{name: "zero", param: "0", wantErr: errHTTPNotFound},
		{name: "negative", param: "-3", wantErr: errHTTPNotFound},
		{name: "empty", param: "", wantErr: errHTTPNotFound},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/")
			ctx := e.NewContext(req, rec)
			ctx.SetParamNames("id")
			ctx.SetParamValues(tt.param)

			got, err := intParam(ctx, "id")
			if err != tt.wantErr {
				t.Errorf("intParam() error = %v; wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("intParam() = %v; want %v", got, tt.want)
			}
		})
	}
}

func Test_weekBounds(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{
			name:      "monday maps to itself",
			now:       time.Date(2021, 3, 1, 15, 4, 5, 0, time.UTC), // a Monday
			wantStart: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "midweek",
			now:       time.Date(2021, 3, 4, 9, 0, 0, 0, time.UTC), // a Thursday
			wantStart: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "sunday belongs to the closing week",
			now:       time.Date(2021, 3, 7, 23, 59, 0, 0, time.UTC),
			wantStart: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := weekBounds(tt.now)
			if !start.Equal(tt.wantStart) {
				t.Errorf("weekBounds() start = %v; want %v", start, tt.wantStart)
			}
			if want := tt.wantStart.AddDate(0, 0, 7); !end.Equal(want) {
				t.Errorf("weekBounds() end = %v; want %v", end, want)
			}
		})
	}
}

func Test_normalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "upcoming", want: schedule.StatusUpcoming},
		{in: " Upcoming ", want: schedule.StatusUpcoming},
		{in: "in_progress", want: schedule.StatusOnProgress},
		{in: "on_progress", want: schedule.StatusOnProgress},
		{in: "completed", want: schedule.StatusCompleted},
		{in: "rescheduled", want: schedule.StatusRescheduled},
		{in: "canceled", want: schedule.StatusCanceled},
		{in: "lol", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := normalizeStatus(tt.in); got != tt.want {
			t.Errorf("normalizeStatus(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func Test_statusCounts(t *testing.T) {
	scheds := []schedule.Info{
		{DerivedStatus: schedule.StatusUpcoming},
		{DerivedStatus: schedule.StatusUpcoming},
		{DerivedStatus: schedule.StatusCompleted},
		{DerivedStatus: schedule.StatusCanceled},
	}
	counts := statusCounts(scheds)
	if counts[schedule.StatusUpcoming] != 2 {
		t.Errorf("upcoming = %d; want 2", counts[schedule.StatusUpcoming])
	}
	if counts[schedule.StatusCompleted] != 1 {
		t.Errorf("completed = %d; want 1", counts[schedule.StatusCompleted])
	}
	if counts[schedule.StatusRescheduled] != 0 {
		t.Errorf("rescheduled = %d; want 0", counts[schedule.StatusRescheduled])
	}
}

func Test_avgGrade(t *testing.T) {
	grades := []student.PerformanceRow{
		{Grade: null.IntFrom(80)},
		{Grade: null.IntFrom(91)},
		{}, // ungraded; ignored
	}
	if got := avgGrade(grades); got != 85.5 {
		t.Errorf("avgGrade() = %v; want 85.5", got)
	}
	if got := avgGrade(nil); got != 0 {
		t.Errorf("avgGrade(nil) = %v; want 0", got)
	}
}
