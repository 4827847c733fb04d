package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/storage/database"
	"github.com/trezcool/studywall/storage/database/dummy"
	"github.com/trezcool/studywall/storage/database/sqlx"
)

// Repos bundles the repositories of one backend.
type Repos struct {
	topic.Repositories
	Records record.Repository
}

// Backend builds fresh, empty repositories.
type Backend struct {
	Name string
	Open func(t *testing.T) Repos
}

// Backends lists every storage engine the repositories can run on.
func Backends() []Backend {
	return []Backend{
		{Name: database.EngineMemory, Open: MemoryRepos},
		{Name: database.EngineSQLite, Open: SQLiteRepos},
	}
}

func MemoryRepos(t *testing.T) Repos {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return Repos{
		Repositories: topic.Repositories{
			Topics: dummydb.NewTopicRepository(db),
			Goals:  dummydb.NewGoalRepository(db),
			Tasks:  dummydb.NewTaskRepository(db),
		},
		Records: dummydb.NewRecordRepository(db),
	}
}

func SQLiteRepos(t *testing.T) Repos {
	t.Helper()
	db := PrepareDB(t)
	return Repos{
		Repositories: topic.Repositories{
			Topics: sqlxrepos.NewTopicRepository(db),
			Goals:  sqlxrepos.NewGoalRepository(db),
			Tasks:  sqlxrepos.NewTaskRepository(db),
		},
		Records: sqlxrepos.NewRecordRepository(db),
	}
}

// PrepareDB opens a migrated sqlite database in a temporary directory, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "studywall.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func CreateTopic(t *testing.T, repo topic.TopicRepository, title, ownerID string) topic.Topic {
	t.Helper()
	tp, err := repo.Create(context.Background(), topic.Topic{
		Title:   title,
		Status:  topic.StatusActive,
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("CreateTopic() failed: %v", err)
	}
	return tp
}

func CreateGoal(t *testing.T, repo topic.GoalRepository, topicID, title string) topic.Goal {
	t.Helper()
	g, err := repo.Create(context.Background(), topic.Goal{
		TopicID:  topicID,
		Title:    title,
		Status:   topic.StatusActive,
		Priority: topic.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("CreateGoal() failed: %v", err)
	}
	return g
}

func CreateTask(t *testing.T, repo topic.TaskRepository, goalID, title string, priority ...topic.Priority) topic.Task {
	t.Helper()
	p := topic.PriorityMedium
	if len(priority) > 0 {
		p = priority[0]
	}
	k, err := repo.Create(context.Background(), topic.Task{
		GoalID:   goalID,
		Title:    title,
		Status:   topic.TaskTodo,
		Priority: p,
	})
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return k
}

// LogEntry is a message captured by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger captures log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Levels returns the captured entries formatted as "LEVEL msg".
func (l *Logger) Levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = fmt.Sprintf("%s %s", e.Level, e.Msg)
	}
	return out
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }
