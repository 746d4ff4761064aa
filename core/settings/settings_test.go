package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSettingsRepo struct {
	vals map[string]string
}

var _ Repository = (*fakeSettingsRepo)(nil)

func (r *fakeSettingsRepo) GetSetting(_ context.Context, key string) (string, error) {
	if val, ok := r.vals[key]; ok {
		return val, nil
	}
	return "", ErrNotFound
}

func (r *fakeSettingsRepo) UpsertSetting(_ context.Context, key, value string) error {
	r.vals[key] = value
	return nil
}

func setup() (*Service, *fakeSettingsRepo) {
	repo := &fakeSettingsRepo{vals: make(map[string]string)}
	return NewService(repo), repo
}

func Test_Service_defaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup()

	size, err := svc.MaxMaterialFileSizeMB(ctx)
	assert.NoError(t, err)
	assert.Equal(t, DefaultMaxMaterialFileSizeMB, size)

	types, err := svc.AllowedMaterialTypes(ctx)
	assert.NoError(t, err)
	assert.Contains(t, types, "pdf")
	assert.Contains(t, types, "mp4")

	auto, err := svc.AutoApproveMaterials(ctx)
	assert.NoError(t, err)
	assert.False(t, auto)

	fbAuto, err := svc.FeedbackAutoApprove(ctx)
	assert.NoError(t, err)
	assert.True(t, fbAuto)
}

func Test_Service_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()
	on := true

	err := svc.Update(ctx, UpdateSettings{
		MaxMaterialFileSizeMB: 25,
		AllowedMaterialTypes:  "pdf, PNG ,",
		AutoApproveMaterials:  &on,
		FeedbackModeration:    ModerationManual,
	})
	assert.NoError(t, err)
	assert.Equal(t, "25", repo.vals[KeyMaxMaterialFileSizeMB])

	types, _ := svc.AllowedMaterialTypes(ctx)
	assert.Equal(t, []string{"pdf", "png"}, types)

	auto, _ := svc.AutoApproveMaterials(ctx)
	assert.True(t, auto)

	fbAuto, _ := svc.FeedbackAutoApprove(ctx)
	assert.False(t, fbAuto)
}

func Test_Service_prefs(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()

	// unset prefs default to on
	got, err := svc.StudentPref(ctx, 7, "notify_upcoming_classes")
	assert.NoError(t, err)
	assert.True(t, got)

	assert.NoError(t, svc.SetStudentPref(ctx, 7, "notify_upcoming_classes", false))
	assert.Equal(t, "false", repo.vals["student_7_notify_upcoming_classes"])
	got, _ = svc.StudentPref(ctx, 7, "notify_upcoming_classes")
	assert.False(t, got)

	// a different student is unaffected
	got, _ = svc.StudentPref(ctx, 8, "notify_upcoming_classes")
	assert.True(t, got)

	assert.NoError(t, svc.SetTutorPref(ctx, "notify_new_feedback", false))
	got, _ = svc.TutorPref(ctx, "notify_new_feedback")
	assert.False(t, got)
}
