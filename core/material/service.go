package material

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("material not found")
	ErrLinked   = errors.New("material is linked to one or more schedules and cannot be deleted")
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, m Material) (Material, error)
		GetMaterialByID(ctx context.Context, id int) (Material, error)
		GetMaterialInfo(ctx context.Context, id int) (Info, error)
		QueryMaterialsByTutor(ctx context.Context, tutorID int) ([]Info, error)
		// QueryApprovedByClass feeds the student learning dashboard.
		QueryApprovedByClass(ctx context.Context, classID int) ([]Info, error)
		UpdateMaterial(ctx context.Context, m Material) (Material, error)
		// DeleteMaterial fails with ErrLinked while schedule links exist.
		DeleteMaterial(ctx context.Context, id int) error
		SetMaterialApproved(ctx context.Context, id int, approved bool) error

		// schedule links
		QueryByScheduleID(ctx context.Context, scheduleID int) ([]Material, error)
		ReplaceScheduleMaterials(ctx context.Context, scheduleID int, materialIDs []int) error
		SearchMaterials(ctx context.Context, tutorID int, keyword string) ([]Info, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upload records an uploaded material. Approval state follows the runtime
// auto-approve setting, decided by the caller.
func (svc *Service) Upload(ctx context.Context, tutorID int, nm NewMaterial, fileURL, fileType string, autoApprove bool) (Material, error) {
	m := Material{
		ClassID:    nm.ClassID,
		TutorID:    tutorID,
		Title:      nm.Title,
		Type:       fileType,
		FileURL:    fileURL,
		IsApproved: autoApprove,
		UploadedAt: time.Now().UTC(),
	}
	if nm.Subject != "" {
		m.Subject.SetValid(nm.Subject)
	}
	return svc.repo.CreateMaterial(ctx, m)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Material, error) {
	return svc.repo.GetMaterialByID(ctx, id)
}

func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	return svc.repo.GetMaterialInfo(ctx, id)
}

func (svc *Service) QueryByTutor(ctx context.Context, tutorID int) ([]Info, error) {
	return svc.repo.QueryMaterialsByTutor(ctx, tutorID)
}

func (svc *Service) QueryApprovedByClass(ctx context.Context, classID int) ([]Info, error) {
	return svc.repo.QueryApprovedByClass(ctx, classID)
}

// Update edits a material's metadata; the edit resets approval so the
// material goes through moderation again.
func (svc *Service) Update(ctx context.Context, m Material, um UpdateMaterial) (Material, error) {
	if um.Title != "" {
		m.Title = um.Title
	}
	if um.Subject != "" {
		m.Subject.SetValid(um.Subject)
	}
	m.IsApproved = false
	return svc.repo.UpdateMaterial(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteMaterial(ctx, id)
}

func (svc *Service) SetApproved(ctx context.Context, id int, approved bool) error {
	return svc.repo.SetMaterialApproved(ctx, id, approved)
}

func (svc *Service) QueryBySchedule(ctx context.Context, scheduleID int) ([]Material, error) {
	return svc.repo.QueryByScheduleID(ctx, scheduleID)
}

// ReplaceScheduleMaterials swaps the selected material set of a schedule.
func (svc *Service) ReplaceScheduleMaterials(ctx context.Context, scheduleID int, materialIDs []int) error {
	return svc.repo.ReplaceScheduleMaterials(ctx, scheduleID, materialIDs)
}

func (svc *Service) Search(ctx context.Context, tutorID int, keyword string) ([]Info, error) {
	return svc.repo.SearchMaterials(ctx, tutorID, keyword)
}
