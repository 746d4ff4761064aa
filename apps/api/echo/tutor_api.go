package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/assignment"
	"github.com/rahmanfaisal0414/backend-bimbel/core/attendance"
	"github.com/rahmanfaisal0414/backend-bimbel/core/feedback"
	"github.com/rahmanfaisal0414/backend-bimbel/core/material"
	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
	"github.com/rahmanfaisal0414/backend-bimbel/core/settings"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
	"github.com/rahmanfaisal0414/backend-bimbel/core/tutor"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/files"
)

// Tutor notification preference keys; unset preferences default to on.
const (
	prefTutorReschedules = "tutor_notify_reschedule_updates"
	prefTutorFeedback    = "tutor_notify_new_feedback"
	prefTutorUngraded    = "tutor_notify_ungraded_submissions"
)

type tutorApi struct {
	userSvc       *user.Service
	studentSvc    *student.Service
	tutorSvc      *tutor.Service
	scheduleSvc   *schedule.Service
	attendanceSvc *attendance.Service
	materialSvc   *material.Service
	assignmentSvc *assignment.Service
	feedbackSvc   *feedback.Service
	settingsSvc   *settings.Service
	fileStore     *files.Store
}

func registerTutorAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := tutorApi{
		userSvc:       opts.UserSvc,
		studentSvc:    opts.StudentSvc,
		tutorSvc:      opts.TutorSvc,
		scheduleSvc:   opts.ScheduleSvc,
		attendanceSvc: opts.AttendanceSvc,
		materialSvc:   opts.MaterialSvc,
		assignmentSvc: opts.AssignmentSvc,
		feedbackSvc:   opts.FeedbackSvc,
		settingsSvc:   opts.SettingsSvc,
		fileStore:     opts.FileStore,
	}

	tg := g.Group("/tutor", jwt, tutorMiddleware())

	tg.GET("/home", api.home)
	tg.GET("/userinfo", api.userInfo)

	tg.GET("/settings/profile", api.profile)
	tg.PUT("/settings/profile", api.updateProfile)
	tg.PUT("/settings/change-password", api.changePassword)
	tg.GET("/settings/notifications", api.notificationSettings)
	tg.POST("/settings/update", api.updateNotificationSetting)

	tg.GET("/schedules", api.querySchedules)
	tg.GET("/schedules/:id", api.retrieveSchedule)
	tg.POST("/schedules/:id/materials", api.replaceScheduleMaterials)
	tg.POST("/schedules/:id/assignments", api.createScheduleAssignment)
	tg.POST("/schedules/:id/attendance", api.markAttendance)
	tg.POST("/schedules/:id/reschedule", api.requestReschedule)

	tg.GET("/teaching-dashboard", api.teachingDashboard)

	tg.POST("/materials", api.uploadMaterial)
	tg.GET("/materials/:id", api.retrieveMaterial)
	tg.PUT("/materials/:id", api.updateMaterial)
	tg.DELETE("/materials/:id", api.deleteMaterial)

	tg.POST("/assignments", api.createAssignment)
	tg.GET("/assignments/:id", api.retrieveAssignment)
	tg.PUT("/assignments/:id", api.updateAssignment)
	tg.DELETE("/assignments/:id", api.deleteAssignment)
	tg.POST("/assignments/:id/grade", api.gradeSubmission)

	tg.GET("/students/performance", api.studentsPerformance)
	tg.GET("/students/performance/:id", api.studentPerformance)

	tg.GET("/feedbacks", api.queryFeedbacks)
	tg.GET("/feedbacks/:id", api.retrieveFeedback)

	tg.GET("/availability", api.queryAvailability)
	tg.POST("/availability", api.addAvailability)
	tg.DELETE("/availability/:id", api.removeAvailability)

	tg.GET("/notifications", api.notifications)
	tg.GET("/search", api.search)
}

func (api *tutorApi) currentTutor(ctx echo.Context) (tutor.Tutor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return tutor.Tutor{}, err
	}
	tut, err := api.tutorSvc.GetByUserID(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return tutor.Tutor{}, errors.Wrap(err, "finding tutor profile")
	}
	return tut, nil
}

// ownSchedule loads a schedule and rejects one taught by another tutor.
func (api *tutorApi) ownSchedule(ctx echo.Context, tut tutor.Tutor) (schedule.Info, error) {
	id, err := intParam(ctx, "id")
	if err != nil {
		return schedule.Info{}, err
	}
	sched, err := api.scheduleSvc.GetInfo(ctx.Request().Context(), id)
	if err != nil {
		return schedule.Info{}, errors.Wrap(err, "finding schedule by ID")
	}
	if sched.TutorID != tut.ID {
		return schedule.Info{}, errHTTPNotFound
	}
	return sched, nil
}

// Handlers

func (api *tutorApi) home(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	scheds, err := api.scheduleSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	today := make([]schedule.Info, 0)
	y, m, d := time.Now().Date()
	for _, s := range scheds {
		if sy, sm, sd := s.ScheduleDate.Date(); sy == y && sm == m && sd == d {
			today = append(today, s)
		}
	}

	materials, err := api.materialSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	assignments, err := api.assignmentSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}

	resp := TutorHomeResponse{
		TodaySchedules:   today,
		StatusCounts:     statusCounts(scheds),
		TotalSchedules:   len(scheds),
		TotalMaterials:   len(materials),
		TotalAssignments: len(assignments),
		LatestMaterials:  headMaterials(materials, 5),
		Assignments:      headAssignments(assignments, 5),
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *tutorApi) userInfo(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, newUserInfo(usr))
}

func (api *tutorApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	info, err := api.tutorSvc.GetInfo(ctx.Request().Context(), tut.ID)
	if err != nil {
		return errors.Wrap(err, "finding tutor by ID")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{
		UserInfoResponse: newUserInfo(usr),
		Phone:            usr.Phone.String,
		Address:          usr.Address.String,
		Bio:              usr.Bio.String,
		Expertise:        info.Expertise,
	})
}

func (api *tutorApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	data, photo, err := bindProfileUpdate(ctx)
	if err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if usr, err = api.userSvc.UpdateProfile(rctx, usr, data); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	if photo != nil {
		url, err := saveUpload(api.fileStore, photo, "photos")
		if err != nil {
			return errors.Wrap(err, "storing photo")
		}
		if usr, err = api.userSvc.SetPhotoURL(rctx, usr, url); err != nil {
			return errors.Wrap(err, "setting photo URL")
		}
	}

	// mirror shared profile fields onto the tutor row
	tut.FullName = usr.FullName
	tut.Phone = usr.Phone
	tut.Address = usr.Address
	if _, err = api.tutorSvc.Update(rctx, tut); err != nil {
		return errors.Wrap(err, "updating tutor")
	}
	ctx.Set(contextUserKey, usr)
	return ctx.JSON(http.StatusOK, newUserInfo(usr))
}

func (api *tutorApi) changePassword(ctx echo.Context) error {
	return changePassword(ctx, api.userSvc)
}

func (api *tutorApi) notificationSettings(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	prefs := make(map[string]bool, 3)
	for _, key := range []string{prefTutorReschedules, prefTutorFeedback, prefTutorUngraded} {
		on, err := api.settingsSvc.TutorPref(rctx, key)
		if err != nil {
			return errors.Wrap(err, "reading notification preference")
		}
		prefs[key] = on
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *tutorApi) updateNotificationSetting(ctx echo.Context) error {
	var data NotificationSettingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotificationSettingRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.settingsSvc.SetTutorPref(ctx.Request().Context(), data.Key, *data.On); err != nil {
		return errors.Wrap(err, "saving notification preference")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Notification settings saved."})
}

func (api *tutorApi) querySchedules(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	scheds, err := api.scheduleSvc.QueryByTutor(ctx.Request().Context(), tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if scheds == nil {
		scheds = []schedule.Info{}
	}
	return ctx.JSON(http.StatusOK, ScheduleListResponse{
		Results:      scheds,
		StatusCounts: statusCounts(scheds),
	})
}

func (api *tutorApi) retrieveSchedule(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	sched, err := api.ownSchedule(ctx, tut)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	// attendance rows exist for every enrolled student before the sheet is shown
	if err = api.attendanceSvc.EnsureRows(rctx, sched.ID); err != nil {
		return errors.Wrap(err, "preparing attendance rows")
	}
	sheet, err := api.attendanceSvc.QueryBySchedule(rctx, sched.ID)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	selected, err := api.materialSvc.QueryBySchedule(rctx, sched.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedule materials")
	}
	options, err := api.materialSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	assignments, err := api.assignmentSvc.QueryBySchedule(rctx, sched.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedule assignments")
	}
	latest, err := api.scheduleSvc.LatestReschedule(rctx, sched.ID)
	if err != nil {
		return errors.Wrap(err, "querying reschedule")
	}

	return ctx.JSON(http.StatusOK, TutorScheduleDetailResponse{
		Info:              sched,
		Attendance:        sheet,
		SelectedMaterials: selected,
		MaterialOptions:   options,
		Assignments:       assignments,
		LatestReschedule:  latest,
	})
}

func (api *tutorApi) replaceScheduleMaterials(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	sched, err := api.ownSchedule(ctx, tut)
	if err != nil {
		return err
	}
	var data ScheduleMaterialsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScheduleMaterialsRequest")
	}

	if err = api.materialSvc.ReplaceScheduleMaterials(ctx.Request().Context(), sched.ID, data.MaterialIDs); err != nil {
		return errors.Wrap(err, "replacing schedule materials")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Schedule materials updated."})
}

func (api *tutorApi) createScheduleAssignment(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	sched, err := api.ownSchedule(ctx, tut)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	data := bindAssignmentForm(ctx)
	data.ClassID = sched.ClassID
	if data.SubjectID == 0 {
		data.SubjectID = sched.SubjectID
	}
	if err = data.Validate(); err != nil {
		return err
	}

	var fileURL string
	if fh, ferr := ctx.FormFile("file"); ferr == nil {
		if fileURL, err = saveUpload(api.fileStore, fh, "assignments"); err != nil {
			return errors.Wrap(err, "storing assignment file")
		}
	}

	a, err := api.assignmentSvc.Create(rctx, tut.ID, data, fileURL)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	if err = api.assignmentSvc.LinkSchedule(rctx, sched.ID, a.ID); err != nil {
		return errors.Wrap(err, "linking assignment to schedule")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *tutorApi) markAttendance(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	sched, err := api.ownSchedule(ctx, tut)
	if err != nil {
		return err
	}
	var data attendance.BulkMark
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMark")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	if err = api.attendanceSvc.EnsureRows(rctx, sched.ID); err != nil {
		return errors.Wrap(err, "preparing attendance rows")
	}
	if err = api.attendanceSvc.Mark(rctx, sched.ID, data); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Attendance saved."})
}

func (api *tutorApi) requestReschedule(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	sched, err := api.ownSchedule(ctx, tut)
	if err != nil {
		return err
	}
	var data schedule.NewReschedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReschedule")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	req, err := api.scheduleSvc.RequestReschedule(ctx.Request().Context(), sched.ID, tut.ID, data)
	if err != nil {
		return errors.Wrap(err, "requesting reschedule")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *tutorApi) teachingDashboard(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	materials, err := api.materialSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	assignments, err := api.assignmentSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if materials == nil {
		materials = []material.Info{}
	}
	if assignments == nil {
		assignments = []assignment.Info{}
	}
	return ctx.JSON(http.StatusOK, TeachingDashboardResponse{
		Materials:   materials,
		Assignments: assignments,
	})
}

func (api *tutorApi) uploadMaterial(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	data := bindMaterialForm(ctx)
	if err = data.Validate(); err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}

	maxMB, err := api.settingsSvc.MaxMaterialFileSizeMB(rctx)
	if err != nil {
		return errors.Wrap(err, "reading upload size limit")
	}
	if fh.Size > int64(maxMB)<<20 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file", Error: "file exceeds the maximum size of " + strconv.Itoa(maxMB) + " MB",
		})
	}
	ext := files.Ext(fh.Filename)
	allowed, err := api.settingsSvc.AllowedMaterialTypes(rctx)
	if err != nil {
		return errors.Wrap(err, "reading allowed material types")
	}
	if !containsString(allowed, ext) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "file", Error: "file type ." + ext + " is not allowed",
		})
	}
	autoApprove, err := api.settingsSvc.AutoApproveMaterials(rctx)
	if err != nil {
		return errors.Wrap(err, "reading moderation setting")
	}

	url, err := saveUpload(api.fileStore, fh, "materials")
	if err != nil {
		return errors.Wrap(err, "storing material file")
	}
	m, err := api.materialSvc.Upload(rctx, tut.ID, data, url, ext, autoApprove)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *tutorApi) retrieveMaterial(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	info, err := api.materialSvc.GetInfo(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding material by ID")
	}
	if info.TutorID != tut.ID {
		return errHTTPNotFound
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *tutorApi) updateMaterial(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data material.UpdateMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMaterial")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	m, err := api.materialSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding material by ID")
	}
	if m.TutorID != tut.ID {
		return errHTTPNotFound
	}
	if m, err = api.materialSvc.Update(rctx, m, data); err != nil {
		return errors.Wrap(err, "updating material")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *tutorApi) deleteMaterial(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	m, err := api.materialSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding material by ID")
	}
	if m.TutorID != tut.ID {
		return errHTTPNotFound
	}
	if err = api.materialSvc.Delete(rctx, id); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if err = api.fileStore.Remove(m.FileURL); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing material file"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tutorApi) createAssignment(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}

	data := bindAssignmentForm(ctx)
	if err = data.Validate(); err != nil {
		return err
	}

	var fileURL string
	if fh, ferr := ctx.FormFile("file"); ferr == nil {
		if fileURL, err = saveUpload(api.fileStore, fh, "assignments"); err != nil {
			return errors.Wrap(err, "storing assignment file")
		}
	}

	a, err := api.assignmentSvc.Create(ctx.Request().Context(), tut.ID, data, fileURL)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *tutorApi) retrieveAssignment(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	info, err := api.assignmentSvc.GetInfo(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if info.TutorID != tut.ID {
		return errHTTPNotFound
	}
	subs, err := api.assignmentSvc.QuerySubmissions(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.SubmissionInfo{}
	}
	return ctx.JSON(http.StatusOK, AssignmentDetailResponse{Info: info, Submissions: subs})
}

func (api *tutorApi) updateAssignment(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	a, err := api.assignmentSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if a.TutorID != tut.ID {
		return errHTTPNotFound
	}
	if a, err = api.assignmentSvc.Update(rctx, a, data); err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *tutorApi) deleteAssignment(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	a, err := api.assignmentSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if a.TutorID != tut.ID {
		return errHTTPNotFound
	}
	if err = api.assignmentSvc.Delete(rctx, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if a.FileURL.Valid {
		if err = api.fileStore.Remove(a.FileURL.String); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing assignment file"))
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tutorApi) gradeSubmission(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	a, err := api.assignmentSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if a.TutorID != tut.ID {
		return errHTTPNotFound
	}
	if err = api.assignmentSvc.Grade(rctx, id, data); err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Submission graded."})
}

func (api *tutorApi) studentsPerformance(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	students, err := api.taughtStudents(ctx, tut)
	if err != nil {
		return err
	}
	rows := make([]StudentPerformanceRow, 0, len(students))
	for _, st := range students {
		grades, err := api.studentSvc.SubmissionGrades(rctx, st.ID)
		if err != nil {
			return errors.Wrap(err, "querying submission grades")
		}
		pct, err := api.attendanceSvc.Rate(rctx, st.ID)
		if err != nil {
			return errors.Wrap(err, "computing attendance rate")
		}
		rows = append(rows, StudentPerformanceRow{
			Student:       st,
			AvgGrade:      avgGrade(grades),
			AttendancePct: pct,
		})
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *tutorApi) studentPerformance(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	students, err := api.taughtStudents(ctx, tut)
	if err != nil {
		return err
	}
	var st *student.Student
	for i := range students {
		if students[i].ID == id {
			st = &students[i]
			break
		}
	}
	if st == nil {
		return errHTTPNotFound
	}

	grades, err := api.studentSvc.SubmissionGrades(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying submission grades")
	}
	atts, err := api.attendanceSvc.QueryByStudent(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	pct, err := api.attendanceSvc.Rate(rctx, id)
	if err != nil {
		return errors.Wrap(err, "computing attendance rate")
	}
	return ctx.JSON(http.StatusOK, StudentPerformanceDetailResponse{
		Student:       *st,
		Grades:        grades,
		Attendance:    atts,
		AvgGrade:      avgGrade(grades),
		AttendancePct: pct,
	})
}

// taughtStudents collects the distinct students currently enrolled in the
// classes this tutor has schedules for.
func (api *tutorApi) taughtStudents(ctx echo.Context, tut tutor.Tutor) ([]student.Student, error) {
	rctx := ctx.Request().Context()
	scheds, err := api.scheduleSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}

	seenClasses := make(map[int]bool)
	seenStudents := make(map[int]bool)
	var students []student.Student
	for _, s := range scheds {
		if seenClasses[s.ClassID] {
			continue
		}
		seenClasses[s.ClassID] = true
		mates, err := api.studentSvc.ClassmatesByClass(rctx, s.ClassID)
		if err != nil {
			return nil, errors.Wrap(err, "querying classmates")
		}
		for _, st := range mates {
			if !seenStudents[st.ID] {
				seenStudents[st.ID] = true
				students = append(students, st)
			}
		}
	}
	return students, nil
}

func (api *tutorApi) queryFeedbacks(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	fbs, err := api.feedbackSvc.QueryApprovedByTutor(ctx.Request().Context(), tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying feedbacks")
	}
	if fbs == nil {
		fbs = []feedback.Info{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *tutorApi) retrieveFeedback(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	fb, err := api.feedbackSvc.GetInfo(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding feedback by ID")
	}
	if !fb.IsApproved || !fb.TutorID.Valid || fb.TutorID.Int != tut.ID {
		return errHTTPNotFound
	}
	return ctx.JSON(http.StatusOK, fb)
}

func (api *tutorApi) queryAvailability(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	avs, err := api.tutorSvc.Availability(ctx.Request().Context(), tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying availability")
	}
	if avs == nil {
		avs = []tutor.Availability{}
	}
	return ctx.JSON(http.StatusOK, avs)
}

func (api *tutorApi) addAvailability(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	var data tutor.NewAvailability
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAvailability")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	av, err := api.tutorSvc.AddAvailability(ctx.Request().Context(), tut.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding availability")
	}
	return ctx.JSON(http.StatusCreated, av)
}

func (api *tutorApi) removeAvailability(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.tutorSvc.RemoveAvailability(ctx.Request().Context(), tut.ID, id); err != nil {
		return errors.Wrap(err, "removing availability")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tutorApi) notifications(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	since := time.Now().AddDate(0, 0, -7)

	items := make([]NotificationItem, 0, 3)
	if on, err := api.settingsSvc.TutorPref(rctx, prefTutorReschedules); err != nil {
		return errors.Wrap(err, "reading notification preference")
	} else if on {
		reqs, err := api.scheduleSvc.ApprovedReschedulesByTutor(rctx, tut.ID, since)
		if err != nil {
			return errors.Wrap(err, "querying approved reschedules")
		}
		items = append(items, NotificationItem{Type: "reschedule_approved", Count: len(reqs)})
	}
	if on, err := api.settingsSvc.TutorPref(rctx, prefTutorFeedback); err != nil {
		return errors.Wrap(err, "reading notification preference")
	} else if on {
		n, err := api.feedbackSvc.CountApprovedByTutorSince(rctx, tut.ID, since)
		if err != nil {
			return errors.Wrap(err, "counting new feedback")
		}
		items = append(items, NotificationItem{Type: "new_feedback", Count: n})
	}
	if on, err := api.settingsSvc.TutorPref(rctx, prefTutorUngraded); err != nil {
		return errors.Wrap(err, "reading notification preference")
	} else if on {
		n, err := api.assignmentSvc.CountUngradedByTutor(rctx, tut.ID)
		if err != nil {
			return errors.Wrap(err, "counting ungraded submissions")
		}
		items = append(items, NotificationItem{Type: "ungraded_submissions", Count: n})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *tutorApi) search(ctx echo.Context) error {
	tut, err := api.currentTutor(ctx)
	if err != nil {
		return err
	}
	keyword := keywordQuery(ctx)
	if keyword == "" {
		return ctx.JSON(http.StatusOK, TutorSearchResponse{
			Materials:   []material.Info{},
			Assignments: []assignment.Info{},
			Schedules:   []schedule.Info{},
			Students:    []student.Student{},
		})
	}
	rctx := ctx.Request().Context()

	materials, err := api.materialSvc.Search(rctx, tut.ID, keyword)
	if err != nil {
		return errors.Wrap(err, "searching materials")
	}
	assignments, err := api.assignmentSvc.Search(rctx, tut.ID, keyword)
	if err != nil {
		return errors.Wrap(err, "searching assignments")
	}

	scheds, err := api.scheduleSvc.QueryByTutor(rctx, tut.ID)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	matchedScheds := make([]schedule.Info, 0)
	lower := strings.ToLower(keyword)
	for _, s := range scheds {
		if strings.Contains(strings.ToLower(s.SubjectName), lower) ||
			strings.Contains(strings.ToLower(s.ClassName), lower) {
			matchedScheds = append(matchedScheds, s)
		}
	}

	students, err := api.taughtStudents(ctx, tut)
	if err != nil {
		return err
	}
	matchedStudents := make([]student.Student, 0)
	for _, st := range students {
		if strings.Contains(strings.ToLower(st.FullName), lower) ||
			strings.Contains(strings.ToLower(st.StudentCode), lower) {
			matchedStudents = append(matchedStudents, st)
		}
	}

	if materials == nil {
		materials = []material.Info{}
	}
	if assignments == nil {
		assignments = []assignment.Info{}
	}
	return ctx.JSON(http.StatusOK, TutorSearchResponse{
		Materials:   materials,
		Assignments: assignments,
		Schedules:   matchedScheds,
		Students:    matchedStudents,
	})
}

// Requests & responses

type (
	TutorHomeResponse struct {
		TodaySchedules   []schedule.Info   `json:"today_schedules"`
		StatusCounts     map[string]int    `json:"status_counts"`
		TotalSchedules   int               `json:"total_schedules"`
		TotalMaterials   int               `json:"total_materials"`
		TotalAssignments int               `json:"total_assignments"`
		LatestMaterials  []material.Info   `json:"latest_materials"`
		Assignments      []assignment.Info `json:"assignments"`
	}

	ProfileResponse struct {
		UserInfoResponse
		Phone     string   `json:"phone,omitempty"`
		Address   string   `json:"address,omitempty"`
		Bio       string   `json:"bio,omitempty"`
		Expertise []string `json:"expertise,omitempty"`
	}

	ScheduleListResponse struct {
		Results      []schedule.Info `json:"results"`
		StatusCounts map[string]int  `json:"status_counts"`
	}

	TutorScheduleDetailResponse struct {
		schedule.Info
		Attendance        []attendance.Info           `json:"attendance"`
		SelectedMaterials []material.Material         `json:"selected_materials"`
		MaterialOptions   []material.Info             `json:"material_options"`
		Assignments       []assignment.Assignment     `json:"assignments"`
		LatestReschedule  *schedule.RescheduleRequest `json:"latest_reschedule"`
	}

	TeachingDashboardResponse struct {
		Materials   []material.Info   `json:"materials"`
		Assignments []assignment.Info `json:"assignments"`
	}

	AssignmentDetailResponse struct {
		assignment.Info
		Submissions []assignment.SubmissionInfo `json:"submissions"`
	}

	StudentPerformanceRow struct {
		student.Student
		AvgGrade      float64 `json:"avg_grade"`
		AttendancePct float64 `json:"attendance_pct"`
	}

	StudentPerformanceDetailResponse struct {
		student.Student
		Grades        []student.PerformanceRow `json:"grades"`
		Attendance    []attendance.Info        `json:"attendance"`
		AvgGrade      float64                  `json:"avg_grade"`
		AttendancePct float64                  `json:"attendance_pct"`
	}

	NotificationItem struct {
		Type  string `json:"type"`
		Count int    `json:"count"`
	}

	NotificationSettingRequest struct {
		Key string `json:"key" validate:"required"`
		On  *bool  `json:"on" validate:"required"`
	}

	ScheduleMaterialsRequest struct {
		MaterialIDs []int `json:"material_ids"`
	}

	TutorSearchResponse struct {
		Materials   []material.Info   `json:"materials"`
		Assignments []assignment.Info `json:"assignments"`
		Schedules   []schedule.Info   `json:"schedules"`
		Students    []student.Student `json:"students"`
	}
)

func (ns NotificationSettingRequest) Validate() error { return core.Validate.Struct(ns) }

// Helpers

func statusCounts(scheds []schedule.Info) map[string]int {
	counts := make(map[string]int, 5)
	for _, s := range scheds {
		counts[s.DerivedStatus]++
	}
	return counts
}

func headMaterials(infos []material.Info, n int) []material.Info {
	if infos == nil {
		return []material.Info{}
	}
	if len(infos) > n {
		return infos[:n]
	}
	return infos
}

func headAssignments(infos []assignment.Info, n int) []assignment.Info {
	if infos == nil {
		return []assignment.Info{}
	}
	if len(infos) > n {
		return infos[:n]
	}
	return infos
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

// bindProfileUpdate reads a profile edit from JSON or, when the request is
// multipart (photo upload), from form values.
func bindProfileUpdate(ctx echo.Context) (user.UpdateProfile, *multipart.FileHeader, error) {
	ctype := ctx.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		data := user.UpdateProfile{
			FullName: ctx.FormValue("full_name"),
			Phone:    ctx.FormValue("phone"),
			Address:  ctx.FormValue("address"),
			Bio:      ctx.FormValue("bio"),
		}
		photo, err := ctx.FormFile("photo")
		if err != nil {
			photo = nil
		}
		return data, photo, nil
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return data, nil, errors.Wrap(err, "binding to UpdateProfile")
	}
	return data, nil, nil
}

func bindAssignmentForm(ctx echo.Context) assignment.NewAssignment {
	classID, _ := strconv.Atoi(ctx.FormValue("class_id"))
	subjectID, _ := strconv.Atoi(ctx.FormValue("subject_id"))
	return assignment.NewAssignment{
		ClassID:     classID,
		SubjectID:   subjectID,
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		DueDate:     ctx.FormValue("due_date"),
	}
}

func bindMaterialForm(ctx echo.Context) material.NewMaterial {
	classID, _ := strconv.Atoi(ctx.FormValue("class_id"))
	return material.NewMaterial{
		ClassID: classID,
		Title:   ctx.FormValue("title"),
		Subject: ctx.FormValue("subject"),
	}
}

func changePassword(ctx echo.Context, svc *user.Service) error {
	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	if err = svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password changed."})
}
