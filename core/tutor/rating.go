package tutor

import (
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Rating blend weights: the system-computed score dominates the student one.
const (
	adminWeight   = 0.7
	studentWeight = 0.3
)

// RatingSignals are the raw counters a tutor rating is derived from.
// Everything is recomputed at read time; nothing is stored.
type RatingSignals struct {
	AttendedSessions int
	TotalSessions    int

	ApprovedMaterials int
	TotalMaterials    int

	HasPhone     bool
	HasAddress   bool
	HasExpertise bool

	FeedbackCount  int
	StudentRatings []int // approved student feedback ratings, 1..5
}

func (sig RatingSignals) hasAdminSignal() bool {
	return sig.TotalSessions > 0 || sig.TotalMaterials > 0 || sig.FeedbackCount > 0 ||
		sig.HasPhone || sig.HasAddress || sig.HasExpertise
}

// Rating is the derived tutor quality score. Component scores are on a 0-100
// scale, the averages and the final blend on 0-5. Final is null when neither
// source has any signal.
type Rating struct {
	AttendanceScore      float64 `json:"attendance_score"`
	MasteryScore         float64 `json:"subject_mastery_score"`
	ProfessionalismScore float64 `json:"professionalism_score"`
	AdminRaw             float64 `json:"admin_raw_score"`

	AdminAvg   null.Float64 `json:"admin_avg"`
	StudentAvg null.Float64 `json:"student_avg"`
	Final      null.Float64 `json:"final"`
}

// ComputeRating derives the blended 0-5 tutor rating from raw signals.
// Every intermediate value and the final blend are rounded to 1 decimal place.
func ComputeRating(sig RatingSignals) Rating {
	r := Rating{
		AttendanceScore:      ratioScore(sig.AttendedSessions, sig.TotalSessions),
		MasteryScore:         ratioScore(sig.ApprovedMaterials, sig.TotalMaterials),
		ProfessionalismScore: professionalismScore(sig),
	}
	r.AdminRaw = adminRawScore(r.AttendanceScore, r.MasteryScore, r.ProfessionalismScore)

	if sig.hasAdminSignal() {
		r.AdminAvg = null.Float64From(core.Round1(r.AdminRaw / 100 * 5))
	}
	if len(sig.StudentRatings) > 0 {
		var sum int
		for _, v := range sig.StudentRatings {
			sum += v
		}
		r.StudentAvg = null.Float64From(core.Round1(float64(sum) / float64(len(sig.StudentRatings))))
	}

	r.Final = blend(r.AdminAvg, r.StudentAvg)
	return r
}

// ratioScore maps attended/total onto 0-100; 0 when there is no denominator.
func ratioScore(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return core.Round1(float64(part) / float64(total) * 100)
}

// professionalismScore = profile completeness (up to 60) + feedback volume (up to 40).
func professionalismScore(sig RatingSignals) float64 {
	var present int
	for _, ok := range []bool{sig.HasPhone, sig.HasAddress, sig.HasExpertise} {
		if ok {
			present++
		}
	}
	completeness := float64(present) / 3 * 60

	volume := float64(sig.FeedbackCount * 10)
	if volume > 40 {
		volume = 40
	}
	return core.Round1(completeness + volume)
}

// adminRawScore is the mean of the three component scores, on 0-100.
func adminRawScore(attendance, mastery, professionalism float64) float64 {
	return core.Round1((attendance + mastery + professionalism) / 3)
}

// blend combines the two 0-5 averages 70/30; whichever is present when the
// other is missing; null when both are.
func blend(adminAvg, studentAvg null.Float64) null.Float64 {
	switch {
	case adminAvg.Valid && studentAvg.Valid:
		return null.Float64From(core.Round1(adminWeight*adminAvg.Float64 + studentWeight*studentAvg.Float64))
	case adminAvg.Valid:
		return adminAvg
	case studentAvg.Valid:
		return studentAvg
	}
	return null.Float64{}
}
