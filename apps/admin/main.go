package main

import (
	"log"
	"os"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/week"
	logsvc "github.com/trezcool/studywall/services/logger"
	"github.com/trezcool/studywall/storage/database"
	sqlxrepos "github.com/trezcool/studywall/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	repos := topic.Repositories{
		Topics: sqlxrepos.NewTopicRepository(db),
		Goals:  sqlxrepos.NewGoalRepository(db),
		Tasks:  sqlxrepos.NewTaskRepository(db),
	}
	calendar := week.NewCalendar(conf.Location())
	recordSvc := record.NewService(sqlxrepos.NewRecordRepository(db), repos, calendar)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		topicSvc: topic.NewService(repos, recordSvc, logger),
		calendar: calendar,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
