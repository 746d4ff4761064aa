package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/attendance"
	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/feedback"
	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
	"github.com/rahmanfaisal0414/backend-bimbel/core/settings"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
	"github.com/rahmanfaisal0414/backend-bimbel/core/subject"
	"github.com/rahmanfaisal0414/backend-bimbel/core/tutor"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

type adminApi struct {
	userSvc       *user.Service
	studentSvc    *student.Service
	tutorSvc      *tutor.Service
	classSvc      *class.Service
	subjectSvc    *subject.Service
	scheduleSvc   *schedule.Service
	attendanceSvc *attendance.Service
	feedbackSvc   *feedback.Service
	settingsSvc   *settings.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := adminApi{
		userSvc:       opts.UserSvc,
		studentSvc:    opts.StudentSvc,
		tutorSvc:      opts.TutorSvc,
		classSvc:      opts.ClassSvc,
		subjectSvc:    opts.SubjectSvc,
		scheduleSvc:   opts.ScheduleSvc,
		attendanceSvc: opts.AttendanceSvc,
		feedbackSvc:   opts.FeedbackSvc,
		settingsSvc:   opts.SettingsSvc,
	}

	ag := g.Group("/admin", jwt, adminMiddleware())

	ag.GET("/dashboard", api.dashboard)
	ag.GET("/userinfo", api.userInfo)

	ag.GET("/students", api.queryStudents)
	ag.GET("/students/:id", api.retrieveStudent)
	ag.PUT("/students/:id", api.updateStudent)
	ag.POST("/students/:id/change-class", api.changeStudentClass)
	ag.POST("/students/:id/deactivate", api.toggleStudentActive)

	ag.GET("/tutors", api.queryTutors)
	ag.GET("/classes", api.queryClasses)
	ag.POST("/classes", api.createClass)
	ag.GET("/subjects", api.querySubjects)
	ag.GET("/signup-tokens", api.querySignupTokens)
	ag.POST("/schedules", api.createSchedule)

	ag.PUT("/settings", api.updateSettings)
	ag.GET("/feedbacks", api.queryPendingFeedbacks)
	ag.POST("/feedbacks/:id/moderate", api.moderateFeedback)
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	tutors, err := api.tutorSvc.Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting tutors")
	}
	students, err := api.studentSvc.Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	classes, err := api.classSvc.Count(rctx)
	if err != nil {
		return errors.Wrap(err, "counting classes")
	}
	avgAttendance, err := api.attendanceSvc.AveragePct(rctx)
	if err != nil {
		return errors.Wrap(err, "averaging attendance")
	}
	today, err := api.scheduleSvc.QueryByDate(rctx, time.Now())
	if err != nil {
		return errors.Wrap(err, "querying today's schedules")
	}
	if today == nil {
		today = []schedule.Info{}
	}

	return ctx.JSON(http.StatusOK, AdminDashboardResponse{
		TotalTutors:      tutors,
		TotalStudents:    students,
		TotalClasses:     classes,
		AvgAttendancePct: avgAttendance,
		TodaySchedules:   today,
	})
}

func (api *adminApi) userInfo(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, newUserInfo(usr))
}

func (api *adminApi) queryStudents(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, StudentListResponse{Results: []StudentListRow{}})
	}

	infos, total, err := api.studentSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	rows := make([]StudentListRow, 0, len(infos))
	for _, info := range infos {
		pct, err := api.attendanceSvc.Rate(ctx.Request().Context(), info.ID)
		if err != nil {
			return errors.Wrap(err, "computing attendance rate")
		}
		rows = append(rows, StudentListRow{Info: info, AttendancePct: pct})
	}

	return ctx.JSON(http.StatusOK, StudentListResponse{
		Results:  rows,
		Count:    total,
		Page:     filter.Page,
		NumPages: (total + student.PageSize - 1) / student.PageSize,
	})
}

func (api *adminApi) retrieveStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	info, err := api.studentSvc.GetInfo(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	history, err := api.studentSvc.EnrollmentHistory(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying enrollment history")
	}
	atts, err := api.attendanceSvc.QueryByStudent(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if len(atts) > 10 {
		atts = atts[:10]
	}
	grades, err := api.studentSvc.SubmissionGrades(rctx, id)
	if err != nil {
		return errors.Wrap(err, "querying submission grades")
	}
	pct, err := api.attendanceSvc.Rate(rctx, id)
	if err != nil {
		return errors.Wrap(err, "computing attendance rate")
	}

	return ctx.JSON(http.StatusOK, StudentDetailResponse{
		Info:          info,
		ClassHistory:  history,
		Attendance:    atts,
		Grades:        grades,
		AttendancePct: pct,
		AvgGrade:      avgGrade(grades),
	})
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	st, err := api.studentSvc.GetByID(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if st, err = api.studentSvc.Update(rctx, st, data); err != nil {
		return errors.Wrap(err, "updating student")
	}

	// optional class transfer, capacity-checked in one transaction
	if data.ClassID > 0 {
		if err = api.classSvc.TransferStudent(rctx, st.ID, data.ClassID); err != nil {
			if errors.Cause(err) == class.ErrAlreadyEnrolled {
				err = nil // same class is a no-op on update
			} else {
				return errors.Wrap(err, "transferring student")
			}
		}
	}

	info, err := api.studentSvc.GetInfo(rctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *adminApi) changeStudentClass(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data ChangeClassRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeClassRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.classSvc.TransferStudent(ctx.Request().Context(), id, data.ClassID); err != nil {
		return errors.Wrap(err, "transferring student")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Student moved to the new class."})
}

func (api *adminApi) toggleStudentActive(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	info, err := api.studentSvc.GetInfo(rctx, id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	active := !info.IsActive
	if err = api.userSvc.SetActive(rctx, info.UserID, active); err != nil {
		return errors.Wrap(err, "toggling student account")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"is_active": active})
}

func (api *adminApi) queryTutors(ctx echo.Context) error {
	filter := new(tutor.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []TutorListRow{})
	}
	rctx := ctx.Request().Context()

	infos, err := api.tutorSvc.Filter(rctx, *filter)
	if err != nil {
		return errors.Wrap(err, "querying tutors")
	}

	weekStart, weekEnd := weekBounds(time.Now())
	rows := make([]TutorListRow, 0, len(infos))
	for _, info := range infos {
		rating, err := api.tutorSvc.Rating(rctx, info.ID)
		if err != nil {
			return errors.Wrap(err, "computing tutor rating")
		}
		digest, err := api.scheduleSvc.QueryByTutorBetween(rctx, info.ID, weekStart, weekEnd)
		if err != nil {
			return errors.Wrap(err, "querying weekly schedules")
		}
		if digest == nil {
			digest = []schedule.Info{}
		}
		rows = append(rows, TutorListRow{Info: info, Rating: rating, WeekSchedules: digest})
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *adminApi) queryClasses(ctx echo.Context) error {
	classes, err := api.classSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *adminApi) createClass(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.classSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *adminApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.subjectSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *adminApi) querySignupTokens(ctx echo.Context) error {
	toks, err := api.userSvc.QuerySignupTokens(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying signup tokens")
	}
	if toks == nil {
		toks = []user.SignupToken{}
	}
	return ctx.JSON(http.StatusOK, toks)
}

func (api *adminApi) createSchedule(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sched, err := api.scheduleSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, sched)
}

func (api *adminApi) updateSettings(ctx echo.Context) error {
	var data settings.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.settingsSvc.Update(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Settings updated."})
}

func (api *adminApi) queryPendingFeedbacks(ctx echo.Context) error {
	fbs, err := api.feedbackSvc.QueryPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending feedbacks")
	}
	if fbs == nil {
		fbs = []feedback.Info{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *adminApi) moderateFeedback(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data ModerateFeedbackRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModerateFeedbackRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.feedbackSvc.Moderate(ctx.Request().Context(), id, *data.Approve); err != nil {
		return errors.Wrap(err, "moderating feedback")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Feedback moderated."})
}

// Requests & responses

type (
	AdminDashboardResponse struct {
		TotalTutors      int             `json:"total_tutors"`
		TotalStudents    int             `json:"total_students"`
		TotalClasses     int             `json:"total_classes"`
		AvgAttendancePct float64         `json:"avg_attendance_pct"`
		TodaySchedules   []schedule.Info `json:"today_schedules"`
	}

	StudentListRow struct {
		student.Info
		AttendancePct float64 `json:"attendance_pct"`
	}

	StudentListResponse struct {
		Results  []StudentListRow `json:"results"`
		Count    int              `json:"count"`
		Page     int              `json:"page"`
		NumPages int              `json:"num_pages"`
	}

	StudentDetailResponse struct {
		student.Info
		ClassHistory  []student.Enrollment     `json:"class_history"`
		Attendance    []attendance.Info        `json:"attendance"`
		Grades        []student.PerformanceRow `json:"grades"`
		AttendancePct float64                  `json:"attendance_pct"`
		AvgGrade      float64                  `json:"avg_grade"`
	}

	TutorListRow struct {
		tutor.Info
		Rating        tutor.Rating    `json:"rating"`
		WeekSchedules []schedule.Info `json:"week_schedules"`
	}

	ChangeClassRequest struct {
		ClassID int `json:"class_id" validate:"required"`
	}

	ModerateFeedbackRequest struct {
		Approve *bool `json:"approve" validate:"required"`
	}
)

func (cc ChangeClassRequest) Validate() error      { return core.Validate.Struct(cc) }
func (mf ModerateFeedbackRequest) Validate() error { return core.Validate.Struct(mf) }

// avgGrade averages the graded submissions only, rounded to 1dp.
func avgGrade(grades []student.PerformanceRow) float64 {
	var sum, n int
	for _, g := range grades {
		if g.Grade.Valid {
			sum += g.Grade.Int
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return core.Round1(float64(sum) / float64(n))
}
