package echoapi

import (
	"context"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/assignment"
	"github.com/rahmanfaisal0414/backend-bimbel/core/attendance"
	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/feedback"
	"github.com/rahmanfaisal0414/backend-bimbel/core/material"
	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
	"github.com/rahmanfaisal0414/backend-bimbel/core/settings"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
	"github.com/rahmanfaisal0414/backend-bimbel/core/subject"
	"github.com/rahmanfaisal0414/backend-bimbel/core/tutor"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/files"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger        core.Logger
		UserSvc       *user.Service
		StudentSvc    *student.Service
		TutorSvc      *tutor.Service
		ClassSvc      *class.Service
		SubjectSvc    *subject.Service
		ScheduleSvc   *schedule.Service
		AttendanceSvc *attendance.Service
		MaterialSvc   *material.Service
		AssignmentSvc *assignment.Service
		FeedbackSvc   *feedback.Service
		SettingsSvc   *settings.Service
		FileStore     *files.Store
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options, shutdown chan os.Signal) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

// signalShutdown sends an application shutdown signal.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- os.Interrupt
	}
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	if s.opts.FileStore != nil {
		s.app.Static(files.URLPrefix, s.opts.FileStore.Root())
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts)
	registerAdminAPI(v1, jwt, s.opts)
	registerTutorAPI(v1, jwt, s.opts)
	registerStudentAPI(v1, jwt, s.opts)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
