package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Runtime-mutable setting keys. Static configuration lives in core.Config;
// this store only holds values admins change while the system runs.
const (
	KeyMaxMaterialFileSizeMB    = "max_material_file_size_mb"
	KeyAllowedMaterialTypes     = "allowed_material_types"
	KeyTutorAutoApproveMaterial = "tutor_auto_approve_materials"
	KeyFeedbackModeration       = "feedback_moderation" // auto | manual
)

// Defaults applied when a key has never been set.
const (
	DefaultMaxMaterialFileSizeMB = 10
	DefaultAllowedMaterialTypes  = "pdf,doc,docx,ppt,pptx,mp4"
	ModerationAuto               = "auto"
	ModerationManual             = "manual"
)

var ErrNotFound = errors.New("setting not found")

type (
	Repository interface {
		GetSetting(ctx context.Context, key string) (string, error)
		// UpsertSetting keeps one row per key.
		UpsertSetting(ctx context.Context, key, value string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) get(ctx context.Context, key, dflt string) (string, error) {
	val, err := svc.repo.GetSetting(ctx, key)
	if err != nil {
		if err == ErrNotFound {
			return dflt, nil
		}
		return "", err
	}
	return val, nil
}

func (svc *Service) MaxMaterialFileSizeMB(ctx context.Context) (int, error) {
	val, err := svc.get(ctx, KeyMaxMaterialFileSizeMB, strconv.Itoa(DefaultMaxMaterialFileSizeMB))
	if err != nil {
		return 0, err
	}
	size, err := strconv.Atoi(val)
	if err != nil || size <= 0 {
		return DefaultMaxMaterialFileSizeMB, nil
	}
	return size, nil
}

func (svc *Service) AllowedMaterialTypes(ctx context.Context) ([]string, error) {
	val, err := svc.get(ctx, KeyAllowedMaterialTypes, DefaultAllowedMaterialTypes)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(val, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = core.CleanString(p, true /* lower */); p != "" {
			types = append(types, p)
		}
	}
	return types, nil
}

func (svc *Service) AutoApproveMaterials(ctx context.Context) (bool, error) {
	val, err := svc.get(ctx, KeyTutorAutoApproveMaterial, "false")
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

// FeedbackAutoApprove reports whether new student feedback skips moderation.
func (svc *Service) FeedbackAutoApprove(ctx context.Context) (bool, error) {
	val, err := svc.get(ctx, KeyFeedbackModeration, ModerationAuto)
	if err != nil {
		return false, err
	}
	return val != ModerationManual, nil
}

// UpdateSettings is the admin settings mutation payload; zero values leave a
// key untouched.
type UpdateSettings struct {
	MaxMaterialFileSizeMB int    `json:"max_material_file_size_mb" validate:"omitempty,min=1,max=500"`
	AllowedMaterialTypes  string `json:"allowed_material_types"`
	AutoApproveMaterials  *bool  `json:"tutor_auto_approve_materials"`
	FeedbackModeration    string `json:"feedback_moderation" validate:"omitempty,oneof=auto manual"`
}

func (us *UpdateSettings) Validate() error {
	us.AllowedMaterialTypes = core.CleanString(us.AllowedMaterialTypes, true /* lower */)
	us.FeedbackModeration = core.CleanString(us.FeedbackModeration, true /* lower */)
	return core.Validate.Struct(us)
}

func (svc *Service) Update(ctx context.Context, us UpdateSettings) error {
	if us.MaxMaterialFileSizeMB > 0 {
		if err := svc.repo.UpsertSetting(ctx, KeyMaxMaterialFileSizeMB, strconv.Itoa(us.MaxMaterialFileSizeMB)); err != nil {
			return err
		}
	}
	if us.AllowedMaterialTypes != "" {
		if err := svc.repo.UpsertSetting(ctx, KeyAllowedMaterialTypes, us.AllowedMaterialTypes); err != nil {
			return err
		}
	}
	if us.AutoApproveMaterials != nil {
		if err := svc.repo.UpsertSetting(ctx, KeyTutorAutoApproveMaterial, strconv.FormatBool(*us.AutoApproveMaterials)); err != nil {
			return err
		}
	}
	if us.FeedbackModeration != "" {
		if err := svc.repo.UpsertSetting(ctx, KeyFeedbackModeration, us.FeedbackModeration); err != nil {
			return err
		}
	}
	return nil
}

// Per-user notification preferences. Tutors use the plain key; students are
// namespaced per row ("student_{id}_{key}"). Unset preferences default to on.

func studentKey(studentID int, key string) string {
	return fmt.Sprintf("student_%d_%s", studentID, key)
}

func (svc *Service) StudentPref(ctx context.Context, studentID int, key string) (bool, error) {
	val, err := svc.get(ctx, studentKey(studentID, key), "true")
	if err != nil {
		return false, err
	}
	return val != "false", nil
}

func (svc *Service) SetStudentPref(ctx context.Context, studentID int, key string, on bool) error {
	return svc.repo.UpsertSetting(ctx, studentKey(studentID, key), strconv.FormatBool(on))
}

func (svc *Service) TutorPref(ctx context.Context, key string) (bool, error) {
	val, err := svc.get(ctx, key, "true")
	if err != nil {
		return false, err
	}
	return val != "false", nil
}

func (svc *Service) SetTutorPref(ctx context.Context, key string, on bool) error {
	return svc.repo.UpsertSetting(ctx, key, strconv.FormatBool(on))
}
