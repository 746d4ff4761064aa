package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/rahmanfaisal0414/backend-bimbel/apps/api/echo"
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
	emailsvc "github.com/rahmanfaisal0414/backend-bimbel/services/email"
	logsvc "github.com/rahmanfaisal0414/backend-bimbel/services/logger"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/database"
	sqlxrepos "github.com/rahmanfaisal0414/backend-bimbel/storage/database/sqlx"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/files"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(logger); err != nil {
		logger.Fatal("api: startup failed", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return err
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db.DB); err != nil {
		return err
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	fileStore, err := files.NewStore(core.Conf.MediaRoot)
	if err != nil {
		return err
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	classSvc := class.NewService(sqlxrepos.NewClassRepository(db))
	subjectSvc := subject.NewService(sqlxrepos.NewSubjectRepository(db))
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	tutorSvc := tutor.NewService(sqlxrepos.NewTutorRepository(db))
	schedSvc := schedule.NewService(sqlxrepos.NewScheduleRepository(db))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), schedSvc)
	materialSvc := material.NewService(sqlxrepos.NewMaterialRepository(db))
	assignmentSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db))
	feedbackSvc := feedback.NewService(sqlxrepos.NewFeedbackRepository(db))
	settingsSvc := settings.NewService(sqlxrepos.NewSettingsRepository(db))

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.Server.Address(),
			Logger:        logger,
			UserSvc:       usrSvc,
			StudentSvc:    studentSvc,
			TutorSvc:      tutorSvc,
			ClassSvc:      classSvc,
			SubjectSvc:    subjectSvc,
			ScheduleSvc:   schedSvc,
			AttendanceSvc: attSvc,
			MaterialSvc:   materialSvc,
			AssignmentSvc: assignmentSvc,
			FeedbackSvc:   feedbackSvc,
			SettingsSvc:   settingsSvc,
			FileStore:     fileStore,
		},
		shutdown,
	)
	go app.Start()

	<-shutdown
	logger.Info("api: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.Stop(ctx)
}
