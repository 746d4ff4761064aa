package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound          = errors.New("schedule not found")
	ErrReschedulePending = errors.New("a reschedule request is already pending for this schedule")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		GetScheduleByID(ctx context.Context, id int) (Schedule, error)
		GetScheduleInfo(ctx context.Context, id int) (Info, error)
		QuerySchedulesByTutor(ctx context.Context, tutorID int) ([]Info, error)
		QuerySchedulesByClass(ctx context.Context, classID int) ([]Info, error)
		QuerySchedulesByDate(ctx context.Context, date time.Time) ([]Info, error)
		// QuerySchedulesByTutorBetween covers the weekly digest on the admin
		// tutor listing.
		QuerySchedulesByTutorBetween(ctx context.Context, tutorID int, from, to time.Time) ([]Info, error)

		GetLatestReschedule(ctx context.Context, scheduleID int) (*RescheduleRequest, error)
		CreateReschedule(ctx context.Context, req RescheduleRequest) (RescheduleRequest, error)
		QueryApprovedReschedulesByTutor(ctx context.Context, tutorID int, since time.Time) ([]RescheduleRequest, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	date, err := time.Parse("2006-01-02", ns.ScheduleDate)
	if err != nil {
		return Schedule{}, err
	}
	start, err := time.Parse("15:04", ns.StartTime)
	if err != nil {
		return Schedule{}, err
	}
	end, err := time.Parse("15:04", ns.EndTime)
	if err != nil {
		return Schedule{}, err
	}

	s := Schedule{
		ClassID:      ns.ClassID,
		TutorID:      ns.TutorID,
		SubjectID:    ns.SubjectID,
		ScheduleDate: date,
		StartTime:    start,
		EndTime:      end,
		Status:       StatusUpcoming,
	}
	if ns.Room != "" {
		s.Room.SetValid(ns.Room)
	}
	return svc.repo.CreateSchedule(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Schedule, error) {
	return svc.repo.GetScheduleByID(ctx, id)
}

// GetInfo returns one schedule with its derived display status resolved.
func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	info, err := svc.repo.GetScheduleInfo(ctx, id)
	if err != nil {
		return Info{}, err
	}
	latest, err := svc.repo.GetLatestReschedule(ctx, id)
	if err != nil {
		return Info{}, err
	}
	info.DerivedStatus = DeriveStatus(info.Schedule, latest, time.Now())
	info.Mode = info.Schedule.Mode()
	return info, nil
}

func (svc *Service) QueryByTutor(ctx context.Context, tutorID int) ([]Info, error) {
	infos, err := svc.repo.QuerySchedulesByTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return svc.derive(ctx, infos)
}

func (svc *Service) QueryByClass(ctx context.Context, classID int) ([]Info, error) {
	infos, err := svc.repo.QuerySchedulesByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return svc.derive(ctx, infos)
}

func (svc *Service) QueryByDate(ctx context.Context, date time.Time) ([]Info, error) {
	infos, err := svc.repo.QuerySchedulesByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return svc.derive(ctx, infos)
}

func (svc *Service) QueryByTutorBetween(ctx context.Context, tutorID int, from, to time.Time) ([]Info, error) {
	infos, err := svc.repo.QuerySchedulesByTutorBetween(ctx, tutorID, from, to)
	if err != nil {
		return nil, err
	}
	return svc.derive(ctx, infos)
}

func (svc *Service) derive(ctx context.Context, infos []Info) ([]Info, error) {
	now := time.Now()
	for i := range infos {
		latest, err := svc.repo.GetLatestReschedule(ctx, infos[i].ID)
		if err != nil {
			return nil, err
		}
		infos[i].DerivedStatus = DeriveStatus(infos[i].Schedule, latest, now)
		infos[i].Mode = infos[i].Schedule.Mode()
	}
	return infos, nil
}

func (svc *Service) LatestReschedule(ctx context.Context, scheduleID int) (*RescheduleRequest, error) {
	return svc.repo.GetLatestReschedule(ctx, scheduleID)
}

// RequestReschedule files a tutor's request; rejected while another one is
// still pending for the same schedule.
func (svc *Service) RequestReschedule(ctx context.Context, scheduleID, tutorID int, nr NewReschedule) (RescheduleRequest, error) {
	if _, err := svc.repo.GetScheduleByID(ctx, scheduleID); err != nil {
		return RescheduleRequest{}, err
	}
	latest, err := svc.repo.GetLatestReschedule(ctx, scheduleID)
	if err != nil {
		return RescheduleRequest{}, err
	}
	if latest != nil && latest.Status == ReschedulePending {
		return RescheduleRequest{}, ErrReschedulePending
	}
	return svc.repo.CreateReschedule(ctx, RescheduleRequest{
		ScheduleID:         scheduleID,
		RequestedByTutorID: tutorID,
		Reason:             nr.Reason,
		Status:             ReschedulePending,
		RequestedAt:        time.Now().UTC(),
	})
}

func (svc *Service) ApprovedReschedulesByTutor(ctx context.Context, tutorID int, since time.Time) ([]RescheduleRequest, error) {
	return svc.repo.QueryApprovedReschedulesByTutor(ctx, tutorID, since)
}
