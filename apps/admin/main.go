package main

import (
	"log"
	"os"

	emailsvc "github.com/rahmanfaisal0414/backend-bimbel/services/email"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/database"
	sqlxrepos "github.com/rahmanfaisal0414/backend-bimbel/storage/database/sqlx"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, emailsvc.NewConsoleService()),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
