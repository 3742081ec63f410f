package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/easystudy/backend/core"
	"github.com/easystudy/backend/core/user"
	emailsvc "github.com/easystudy/backend/services/email"
	"github.com/easystudy/backend/storage/database"
	sqlxrepos "github.com/easystudy/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Ping(db))

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(sqlx.NewDb(db, conf.Database.Engine)), emailsvc.NewConsoleService(conf), conf),
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
