package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/studywall/apps/api/echo"
	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/week"
	logsvc "github.com/trezcool/studywall/services/logger"
	"github.com/trezcool/studywall/storage/database"
	dummydb "github.com/trezcool/studywall/storage/database/dummy"
	sqlxrepos "github.com/trezcool/studywall/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured database engine.
type Storage struct {
	Repos   topic.Repositories
	Records record.Repository
	close   func() error
}

func (s Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	TopicSvc   *topic.Service
	RecordSvc  *record.Service
	Calendar   week.Calendar
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == database.EngineMemory {
		db, err := dummydb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("opening memory database: %v", err), err)
		}
		return Storage{
			Repos: topic.Repositories{
				Topics: dummydb.NewTopicRepository(db),
				Goals:  dummydb.NewGoalRepository(db),
				Tasks:  dummydb.NewTaskRepository(db),
			},
			Records: dummydb.NewRecordRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(context.Background(), db); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Storage{
		Repos: topic.Repositories{
			Topics: sqlxrepos.NewTopicRepository(db),
			Goals:  sqlxrepos.NewGoalRepository(db),
			Tasks:  sqlxrepos.NewTaskRepository(db),
		},
		Records: sqlxrepos.NewRecordRepository(db),
		close:   db.Close,
	}
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	topic.InitValidators(validate, translator)
	record.InitValidators(validate, translator)
	return validate
}

func newCalendar(conf *core.Config) week.Calendar {
	return week.NewCalendar(conf.Location())
}

func newRecordService(s Storage, calendar week.Calendar) *record.Service {
	// the topic repositories resolve the topic of a task
	return record.NewService(s.Records, s.Repos, calendar)
}

func newTopicService(s Storage, records *record.Service, logger core.Logger) *topic.Service {
	return topic.NewService(s.Repos, records, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		TopicSvc:   p.TopicSvc,
		RecordSvc:  p.RecordSvc,
		Calendar:   p.Calendar,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newCalendar))
	must(c.Provide(newRecordService))
	must(c.Provide(newTopicService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
