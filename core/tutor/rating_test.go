package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func Test_adminRawScore(t *testing.T) {
	// (80+60+90)/3 = 76.66.. -> 76.7 at 1dp
	assert.Equal(t, 76.7, adminRawScore(80, 60, 90))
	assert.Equal(t, 0.0, adminRawScore(0, 0, 0))
	assert.Equal(t, 100.0, adminRawScore(100, 100, 100))
}

func Test_blend(t *testing.T) {
	f := null.Float64From

	tests := []struct {
		name       string
		adminAvg   null.Float64
		studentAvg null.Float64
		want       null.Float64
	}{
		// 3.8*0.7 + 4.5*0.3 = 2.66 + 1.35 = 4.01 -> 4.0
		{name: "both present", adminAvg: f(3.8), studentAvg: f(4.5), want: f(4.0)},
		{name: "admin only", adminAvg: f(3.8), want: f(3.8)},
		{name: "student only", studentAvg: f(4.5), want: f(4.5)},
		{name: "neither", want: null.Float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blend(tt.adminAvg, tt.studentAvg))
		})
	}
}

func Test_ComputeRating(t *testing.T) {
	t.Run("no signals at all", func(t *testing.T) {
		r := ComputeRating(RatingSignals{})
		assert.Equal(t, 0.0, r.AttendanceScore)
		assert.Equal(t, 0.0, r.MasteryScore)
		assert.Equal(t, 0.0, r.ProfessionalismScore)
		assert.False(t, r.AdminAvg.Valid)
		assert.False(t, r.StudentAvg.Valid)
		assert.False(t, r.Final.Valid)
	})

	t.Run("full signals", func(t *testing.T) {
		sig := RatingSignals{
			AttendedSessions:  8,
			TotalSessions:     10, // 80
			ApprovedMaterials: 3,
			TotalMaterials:    5, // 60
			HasPhone:          true,
			HasAddress:        true,
			HasExpertise:      true, // completeness 60
			FeedbackCount:     3,    // volume 30 -> professionalism 90
			StudentRatings:    []int{4, 5},
		}
		r := ComputeRating(sig)
		assert.Equal(t, 80.0, r.AttendanceScore)
		assert.Equal(t, 60.0, r.MasteryScore)
		assert.Equal(t, 90.0, r.ProfessionalismScore)
		assert.Equal(t, 76.7, r.AdminRaw)
		assert.Equal(t, null.Float64From(3.8), r.AdminAvg)
		assert.Equal(t, null.Float64From(4.5), r.StudentAvg)
		assert.Equal(t, null.Float64From(4.0), r.Final)
	})

	t.Run("feedback volume caps at 40", func(t *testing.T) {
		r := ComputeRating(RatingSignals{FeedbackCount: 10})
		assert.Equal(t, 40.0, r.ProfessionalismScore)
	})

	t.Run("zero denominators give zero components", func(t *testing.T) {
		r := ComputeRating(RatingSignals{FeedbackCount: 1})
		assert.Equal(t, 0.0, r.AttendanceScore)
		assert.Equal(t, 0.0, r.MasteryScore)
		assert.True(t, r.AdminAvg.Valid)
		assert.False(t, r.StudentAvg.Valid)
		assert.Equal(t, r.AdminAvg, r.Final)
	})

	t.Run("student-only rating", func(t *testing.T) {
		r := ComputeRating(RatingSignals{StudentRatings: []int{3, 4, 4}})
		// mean 3.66.. -> 3.7; admin side has feedback? no: FeedbackCount is 0
		// but StudentRatings alone do not make an admin signal
		assert.False(t, r.AdminAvg.Valid)
		assert.Equal(t, null.Float64From(3.7), r.StudentAvg)
		assert.Equal(t, null.Float64From(3.7), r.Final)
	})
}
