package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

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

// Student notification preference keys; stored namespaced per student.
const (
	prefStudentUpcoming  = "notify_upcoming_classes"
	prefStudentDeadlines = "notify_assignment_deadlines"
)

// Submission display statuses.
const (
	submissionPending   = "pending"
	submissionSubmitted = "submitted"
	submissionGraded    = "graded"
)

type studentApi struct {
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

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{
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

	sg := g.Group("/student", jwt, studentMiddleware())

	sg.GET("/dashboard", api.dashboard)
	sg.GET("/userinfo", api.userInfo)

	sg.GET("/settings/profile", api.profile)
	sg.PUT("/settings/profile", api.updateProfile)
	sg.PUT("/settings/change-password", api.changePassword)
	sg.GET("/settings/notifications", api.notificationSettings)
	sg.POST("/settings/update", api.updateNotificationSetting)

	sg.GET("/learning", api.learning)
	sg.GET("/learning/materials/:id", api.retrieveMaterial)
	sg.GET("/learning/assignments/:id", api.retrieveAssignment)
	sg.POST("/learning/assignments/:id/submit", api.submitAssignment)

	sg.GET("/schedules", api.querySchedules)
	sg.GET("/schedules/:id", api.retrieveSchedule)

	sg.GET("/attendance", api.queryAttendance)
	sg.GET("/attendance/:id", api.retrieveAttendance)
	sg.POST("/attendance/confirm", api.confirmAttendance)

	sg.GET("/feedbacks", api.queryFeedbacks)
	sg.POST("/feedbacks", api.giveFeedback)
	sg.GET("/feedbacks/:id", api.retrieveFeedback)

	sg.GET("/tutors", api.queryTutors)
	sg.GET("/notifications", api.notifications)
	sg.GET("/search", api.search)
}

// currentStudent resolves the signed-in student and their current class.
func (api *studentApi) currentStudent(ctx echo.Context) (student.Info, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return student.Info{}, err
	}
	st, err := api.studentSvc.GetByUserID(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return student.Info{}, errors.Wrap(err, "finding student profile")
	}
	info, err := api.studentSvc.GetInfo(ctx.Request().Context(), st.ID)
	if err != nil {
		return student.Info{}, errors.Wrap(err, "finding student by ID")
	}
	return info, nil
}

// classAssignments lists the class assignments with this student's submission state.
func (api *studentApi) classAssignments(ctx echo.Context, st student.Info) ([]StudentAssignmentRow, error) {
	if !st.ClassID.Valid {
		return []StudentAssignmentRow{}, nil
	}
	rctx := ctx.Request().Context()

	assignments, err := api.assignmentSvc.QueryByClass(rctx, st.ClassID.Int)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	rows := make([]StudentAssignmentRow, 0, len(assignments))
	for _, info := range assignments {
		row := StudentAssignmentRow{Info: info, Status: submissionPending}
		sub, err := api.assignmentSvc.GetSubmission(rctx, info.ID, st.ID)
		switch errors.Cause(err) {
		case nil:
			row.Submission = &sub
			row.Status = submissionSubmitted
			if sub.Grade.Valid {
				row.Status = submissionGraded
			}
		case assignment.ErrSubmissionNotFound:
		default:
			return nil, errors.Wrap(err, "querying submission")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Handlers

func (api *studentApi) dashboard(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	rows, err := api.classAssignments(ctx, st)
	if err != nil {
		return err
	}
	var pending int
	for _, row := range rows {
		if row.Status == submissionPending {
			pending++
		}
	}

	grades, err := api.studentSvc.SubmissionGrades(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "querying submission grades")
	}
	pct, err := api.attendanceSvc.Rate(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "computing attendance rate")
	}

	var upcoming []schedule.Info
	if st.ClassID.Valid {
		scheds, err := api.scheduleSvc.QueryByClass(rctx, st.ClassID.Int)
		if err != nil {
			return errors.Wrap(err, "querying schedules")
		}
		for _, s := range scheds {
			if s.DerivedStatus == schedule.StatusUpcoming {
				upcoming = append(upcoming, s)
			}
		}
		if len(upcoming) > 3 {
			upcoming = upcoming[:3]
		}
	}
	if upcoming == nil {
		upcoming = []schedule.Info{}
	}
	if len(rows) > 5 {
		rows = rows[:5]
	}

	return ctx.JSON(http.StatusOK, StudentDashboardResponse{
		PendingTasks:      pending,
		AvgGrade:          avgGrade(grades),
		AttendancePct:     pct,
		RecentAssignments: rows,
		UpcomingClasses:   upcoming,
	})
}

func (api *studentApi) userInfo(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, newUserInfo(usr))
}

func (api *studentApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StudentProfileResponse{
		UserInfoResponse: newUserInfo(usr),
		StudentCode:      st.StudentCode,
		Phone:            usr.Phone.String,
		Address:          usr.Address.String,
		Bio:              usr.Bio.String,
		Gender:           st.Gender.String,
		ParentContact:    st.ParentContact.String,
		ClassName:        st.ClassName.String,
	})
}

func (api *studentApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	st, err := api.currentStudent(ctx)
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

	// mirror shared profile fields onto the student row
	if _, err = api.studentSvc.Update(rctx, st.Student, student.UpdateStudent{
		FullName: data.FullName,
		Phone:    data.Phone,
		Address:  data.Address,
	}); err != nil {
		return errors.Wrap(err, "updating student")
	}
	ctx.Set(contextUserKey, usr)
	return ctx.JSON(http.StatusOK, newUserInfo(usr))
}

func (api *studentApi) changePassword(ctx echo.Context) error {
	return changePassword(ctx, api.userSvc)
}

func (api *studentApi) notificationSettings(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	prefs := make(map[string]bool, 2)
	for _, key := range []string{prefStudentUpcoming, prefStudentDeadlines} {
		on, err := api.settingsSvc.StudentPref(rctx, st.ID, key)
		if err != nil {
			return errors.Wrap(err, "reading notification preference")
		}
		prefs[key] = on
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *studentApi) updateNotificationSetting(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	var data NotificationSettingRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotificationSettingRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.settingsSvc.SetStudentPref(ctx.Request().Context(), st.ID, data.Key, *data.On); err != nil {
		return errors.Wrap(err, "saving notification preference")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Notification settings saved."})
}

func (api *studentApi) learning(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}

	materials := []material.Info{}
	if st.ClassID.Valid {
		if materials, err = api.materialSvc.QueryApprovedByClass(ctx.Request().Context(), st.ClassID.Int); err != nil {
			return errors.Wrap(err, "querying materials")
		}
		if materials == nil {
			materials = []material.Info{}
		}
	}
	rows, err := api.classAssignments(ctx, st)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, LearningResponse{
		Materials:   materials,
		Assignments: rows,
	})
}

func (api *studentApi) retrieveMaterial(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
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
	// only approved materials of the student's own class are visible
	if !info.IsApproved || !st.ClassID.Valid || info.ClassID != st.ClassID.Int {
		return errHTTPNotFound
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *studentApi) retrieveAssignment(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
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
	if !st.ClassID.Valid || info.ClassID != st.ClassID.Int {
		return errHTTPNotFound
	}

	row := StudentAssignmentRow{Info: info, Status: submissionPending}
	sub, err := api.assignmentSvc.GetSubmission(rctx, id, st.ID)
	switch errors.Cause(err) {
	case nil:
		row.Submission = &sub
		row.Status = submissionSubmitted
		if sub.Grade.Valid {
			row.Status = submissionGraded
		}
	case assignment.ErrSubmissionNotFound:
	default:
		return errors.Wrap(err, "querying submission")
	}
	return ctx.JSON(http.StatusOK, row)
}

func (api *studentApi) submitAssignment(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	info, err := api.assignmentSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if !st.ClassID.Valid || info.ClassID != st.ClassID.Int {
		return errHTTPNotFound
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}
	url, err := saveUpload(api.fileStore, fh, "submissions")
	if err != nil {
		return errors.Wrap(err, "storing submission file")
	}

	sub, err := api.assignmentSvc.Submit(rctx, id, st.ID, url)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *studentApi) querySchedules(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}

	scheds := []schedule.Info{}
	if st.ClassID.Valid {
		if scheds, err = api.scheduleSvc.QueryByClass(ctx.Request().Context(), st.ClassID.Int); err != nil {
			return errors.Wrap(err, "querying schedules")
		}
	}
	if status := normalizeStatus(ctx.QueryParam("status")); status != "" {
		filtered := make([]schedule.Info, 0, len(scheds))
		for _, s := range scheds {
			if s.DerivedStatus == status {
				filtered = append(filtered, s)
			}
		}
		scheds = filtered
	}
	if scheds == nil {
		scheds = []schedule.Info{}
	}
	return ctx.JSON(http.StatusOK, ScheduleListResponse{
		Results:      scheds,
		StatusCounts: statusCounts(scheds),
	})
}

func (api *studentApi) retrieveSchedule(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	sched, err := api.scheduleSvc.GetInfo(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding schedule by ID")
	}
	if !st.ClassID.Valid || sched.ClassID != st.ClassID.Int {
		return errHTTPNotFound
	}

	var att *attendance.Attendance
	own, err := api.attendanceSvc.Get(rctx, st.ID, id)
	switch errors.Cause(err) {
	case nil:
		att = &own
	case attendance.ErrNotFound:
	default:
		return errors.Wrap(err, "querying attendance")
	}
	latest, err := api.scheduleSvc.LatestReschedule(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying reschedule")
	}

	return ctx.JSON(http.StatusOK, StudentScheduleDetailResponse{
		Info:             sched,
		Attendance:       att,
		LatestReschedule: latest,
	})
}

func (api *studentApi) queryAttendance(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	atts, err := api.attendanceSvc.QueryByStudent(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if atts == nil {
		atts = []attendance.Info{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *studentApi) retrieveAttendance(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	att, err := api.attendanceSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding attendance by ID")
	}
	if att.StudentID != st.ID {
		return errHTTPNotFound
	}
	sched, err := api.scheduleSvc.GetInfo(rctx, att.ScheduleID)
	if err != nil {
		return errors.Wrap(err, "finding schedule by ID")
	}
	return ctx.JSON(http.StatusOK, StudentAttendanceDetailResponse{
		Attendance: att,
		Schedule:   sched,
	})
}

func (api *studentApi) confirmAttendance(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	var data ConfirmAttendanceRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmAttendanceRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.attendanceSvc.Confirm(ctx.Request().Context(), st.ID, data.ScheduleID, time.Now()); err != nil {
		return errors.Wrap(err, "confirming attendance")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Attendance confirmed."})
}

func (api *studentApi) queryFeedbacks(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	fbs, err := api.feedbackSvc.QueryByStudent(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "querying feedbacks")
	}
	grades, err := api.studentSvc.SubmissionGrades(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "querying submission grades")
	}

	entries := make([]FeedbackEntry, 0, len(fbs)+len(grades))
	for _, fb := range fbs {
		entries = append(entries, FeedbackEntry{
			ID:        "fb-" + strconv.Itoa(fb.ID),
			Type:      "feedback",
			TutorName: fb.TutorName,
			Rating:    fb.Rating,
			Comment:   fb.Comment.String,
			Approved:  fb.IsApproved,
			CreatedAt: fb.CreatedAt,
		})
	}
	// graded assignment feedback shows up in the same list
	for _, g := range grades {
		if !g.Grade.Valid && !g.Feedback.Valid {
			continue
		}
		entry := FeedbackEntry{
			ID:       "sub-" + strconv.Itoa(g.AssignmentID),
			Type:     "assignment_feedback",
			Title:    g.AssignmentTitle,
			Comment:  g.Feedback.String,
			Approved: true,
		}
		if g.Grade.Valid {
			entry.Grade = null.IntFrom(g.Grade.Int)
		}
		if g.SubmittedAt.Valid {
			entry.CreatedAt = g.SubmittedAt.Time
		}
		entries = append(entries, entry)
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *studentApi) giveFeedback(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	var data feedback.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	autoApprove, err := api.settingsSvc.FeedbackAutoApprove(rctx)
	if err != nil {
		return errors.Wrap(err, "reading moderation setting")
	}
	fb, err := api.feedbackSvc.Give(rctx, st.ID, data, autoApprove)
	if err != nil {
		return errors.Wrap(err, "creating feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *studentApi) retrieveFeedback(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	param := ctx.Param("id")
	rctx := ctx.Request().Context()

	switch {
	case strings.HasPrefix(param, "fb-"):
		id, err := strconv.Atoi(strings.TrimPrefix(param, "fb-"))
		if err != nil {
			return errHTTPNotFound
		}
		fb, err := api.feedbackSvc.GetInfo(rctx, id)
		if err != nil {
			return errors.Wrap(err, "finding feedback by ID")
		}
		if !fb.StudentID.Valid || fb.StudentID.Int != st.ID {
			return errHTTPNotFound
		}
		return ctx.JSON(http.StatusOK, fb)

	case strings.HasPrefix(param, "sub-"):
		id, err := strconv.Atoi(strings.TrimPrefix(param, "sub-"))
		if err != nil {
			return errHTTPNotFound
		}
		grades, err := api.studentSvc.SubmissionGrades(rctx, st.ID)
		if err != nil {
			return errors.Wrap(err, "querying submission grades")
		}
		for _, g := range grades {
			if g.AssignmentID == id {
				return ctx.JSON(http.StatusOK, g)
			}
		}
		return errHTTPNotFound
	}
	return errHTTPNotFound
}

func (api *studentApi) queryTutors(ctx echo.Context) error {
	infos, err := api.tutorSvc.Filter(ctx.Request().Context(), tutor.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying tutors")
	}
	if infos == nil {
		infos = []tutor.Info{}
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *studentApi) notifications(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	items := make([]NotificationItem, 0, 2)
	if on, err := api.settingsSvc.StudentPref(rctx, st.ID, prefStudentUpcoming); err != nil {
		return errors.Wrap(err, "reading notification preference")
	} else if on {
		var upcoming int
		if st.ClassID.Valid {
			scheds, err := api.scheduleSvc.QueryByClass(rctx, st.ClassID.Int)
			if err != nil {
				return errors.Wrap(err, "querying schedules")
			}
			for _, s := range scheds {
				if s.DerivedStatus == schedule.StatusUpcoming {
					upcoming++
				}
			}
		}
		items = append(items, NotificationItem{Type: "upcoming_classes", Count: upcoming})
	}
	if on, err := api.settingsSvc.StudentPref(rctx, st.ID, prefStudentDeadlines); err != nil {
		return errors.Wrap(err, "reading notification preference")
	} else if on {
		rows, err := api.classAssignments(ctx, st)
		if err != nil {
			return err
		}
		var unsubmitted int
		for _, row := range rows {
			if row.Status == submissionPending {
				unsubmitted++
			}
		}
		items = append(items, NotificationItem{Type: "unsubmitted_assignments", Count: unsubmitted})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *studentApi) search(ctx echo.Context) error {
	st, err := api.currentStudent(ctx)
	if err != nil {
		return err
	}
	keyword := strings.ToLower(keywordQuery(ctx))
	resp := StudentSearchResponse{
		Materials:   []material.Info{},
		Assignments: []StudentAssignmentRow{},
		Schedules:   []schedule.Info{},
	}
	if keyword == "" || !st.ClassID.Valid {
		return ctx.JSON(http.StatusOK, resp)
	}
	rctx := ctx.Request().Context()

	materials, err := api.materialSvc.QueryApprovedByClass(rctx, st.ClassID.Int)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	for _, m := range materials {
		if strings.Contains(strings.ToLower(m.Title), keyword) ||
			strings.Contains(strings.ToLower(m.Subject.String), keyword) {
			resp.Materials = append(resp.Materials, m)
		}
	}

	rows, err := api.classAssignments(ctx, st)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Title), keyword) {
			resp.Assignments = append(resp.Assignments, row)
		}
	}

	scheds, err := api.scheduleSvc.QueryByClass(rctx, st.ClassID.Int)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	for _, s := range scheds {
		if strings.Contains(strings.ToLower(s.SubjectName), keyword) ||
			strings.Contains(strings.ToLower(s.TutorName), keyword) {
			resp.Schedules = append(resp.Schedules, s)
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Requests & responses

type (
	StudentDashboardResponse struct {
		PendingTasks      int                    `json:"pending_tasks"`
		AvgGrade          float64                `json:"avg_grade"`
		AttendancePct     float64                `json:"attendance_pct"`
		RecentAssignments []StudentAssignmentRow `json:"recent_assignments"`
		UpcomingClasses   []schedule.Info        `json:"upcoming_classes"`
	}

	StudentProfileResponse struct {
		UserInfoResponse
		StudentCode   string `json:"student_code"`
		Phone         string `json:"phone,omitempty"`
		Address       string `json:"address,omitempty"`
		Bio           string `json:"bio,omitempty"`
		Gender        string `json:"gender,omitempty"`
		ParentContact string `json:"parent_contact,omitempty"`
		ClassName     string `json:"class_name,omitempty"`
	}

	StudentAssignmentRow struct {
		assignment.Info
		Status     string                 `json:"status"`
		Submission *assignment.Submission `json:"submission,omitempty"`
	}

	LearningResponse struct {
		Materials   []material.Info        `json:"materials"`
		Assignments []StudentAssignmentRow `json:"assignments"`
	}

	StudentScheduleDetailResponse struct {
		schedule.Info
		Attendance       *attendance.Attendance      `json:"attendance"`
		LatestReschedule *schedule.RescheduleRequest `json:"latest_reschedule"`
	}

	StudentAttendanceDetailResponse struct {
		attendance.Attendance
		Schedule schedule.Info `json:"schedule"`
	}

	ConfirmAttendanceRequest struct {
		ScheduleID int `json:"schedule_id" validate:"required"`
	}

	FeedbackEntry struct {
		ID        string      `json:"id"`
		Type      string      `json:"type"`
		Title     string      `json:"title,omitempty"`
		TutorName null.String `json:"tutor_name,omitempty"`
		Rating    int         `json:"rating,omitempty"`
		Grade     null.Int    `json:"grade,omitempty"`
		Comment   string      `json:"comment,omitempty"`
		Approved  bool        `json:"approved"`
		CreatedAt time.Time   `json:"created_at"`
	}

	StudentSearchResponse struct {
		Materials   []material.Info        `json:"materials"`
		Assignments []StudentAssignmentRow `json:"assignments"`
		Schedules   []schedule.Info        `json:"schedules"`
	}
)

func (ca ConfirmAttendanceRequest) Validate() error { return core.Validate.Struct(ca) }

// normalizeStatus maps the public status filter values onto derived statuses.
func normalizeStatus(status string) string {
	switch strings.ToLower(core.CleanString(status)) {
	case "upcoming":
		return schedule.StatusUpcoming
	case "in_progress", "on_progress":
		return schedule.StatusOnProgress
	case "completed":
		return schedule.StatusCompleted
	case "rescheduled":
		return schedule.StatusRescheduled
	case "canceled":
		return schedule.StatusCanceled
	}
	return ""
}
