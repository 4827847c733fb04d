package topic_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/versioned"
	"github.com/trezcool/studywall/core/week"
	"github.com/trezcool/studywall/tests"
)

type fixture struct {
	repos   testutil.Repos
	svc     *topic.Service
	records *record.Service
	logger  *testutil.Logger
}

func newFixture(t *testing.T, repos testutil.Repos) fixture {
	t.Helper()
	logger := &testutil.Logger{}
	records := record.NewService(repos.Records, repos.Repositories, week.NewCalendar(time.UTC))
	return fixture{
		repos:   repos,
		svc:     topic.NewService(repos.Repositories, records, logger),
		records: records,
		logger:  logger,
	}
}

func eachBackend(t *testing.T, test func(t *testing.T, f fixture)) {
	for _, b := range testutil.Backends() {
		t.Run(b.Name, func(t *testing.T) {
			test(t, newFixture(t, b.Open(t)))
		})
	}
}

func (f fixture) addRecord(t *testing.T, taskID, authorID string) record.Record {
	t.Helper()
	rec, err := f.records.Create(context.Background(), taskID, record.NewRecord{
		Title:      "what I learned",
		Message:    "notes",
		Difficulty: record.DifficultyMedium,
	}, authorID)
	require.NoError(t, err)
	return rec
}

func TestService_hierarchy(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		tp, err := f.svc.CreateTopic(ctx, topic.NewTopic{Title: "Go", Subject: "programming"}, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, tp.Version)
		assert.Equal(t, topic.StatusActive, tp.Status)

		g, err := f.svc.AddGoal(ctx, tp.ID, topic.NewGoal{Title: "Basics"}, "u1")
		require.NoError(t, err)
		assert.Equal(t, tp.ID, g.TopicID)
		assert.Equal(t, topic.PriorityMedium, g.Priority)

		_, err = f.svc.AddGoal(ctx, "missing", topic.NewGoal{Title: "orphan"}, "u1")
		assert.True(t, versioned.IsNotFound(err))
		_, err = f.svc.AddTask(ctx, "missing", topic.NewTask{Title: "orphan"}, "u1")
		assert.True(t, versioned.IsNotFound(err))

		k, err := f.svc.AddTask(ctx, g.ID, topic.NewTask{Title: "Tour", Priority: topic.PriorityHigh}, "u1")
		require.NoError(t, err)
		assert.Equal(t, topic.TaskTodo, k.Status)
		assert.Equal(t, "u1", k.CreatorID)

		tree, err := f.svc.FetchTree(ctx, tp.ID)
		require.NoError(t, err)
		assert.Equal(t, tp.ID, tree.ID)
		require.Len(t, tree.Goals, 1)
		require.Len(t, tree.Goals[0].Tasks, 1)
		assert.Equal(t, k.ID, tree.Goals[0].Tasks[0].ID)

		_, err = f.svc.FetchTree(ctx, "missing")
		assert.True(t, versioned.IsNotFound(err))
	})
}

func TestService_FetchTree_excludesArchived(t *testing.T) {
	f := newFixture(t, testutil.MemoryRepos(t))
	ctx := context.Background()
	tp := testutil.CreateTopic(t, f.repos.Topics, "Go", "u1")
	g1 := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "active")
	g2 := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "archived")
	testutil.CreateTask(t, f.repos.Tasks, g1.ID, "visible")
	hidden := testutil.CreateTask(t, f.repos.Tasks, g1.ID, "hidden")
	testutil.CreateTask(t, f.repos.Tasks, g2.ID, "under archived goal")

	yes := true
	_, err := f.svc.UpdateTask(ctx, hidden.ID, 1, topic.TaskPatch{Archived: &yes})
	require.NoError(t, err)
	archived := topic.StatusArchived
	_, err = f.svc.UpdateGoal(ctx, g2.ID, 1, topic.GoalPatch{Status: &archived})
	require.NoError(t, err)

	tree, err := f.svc.FetchTree(ctx, tp.ID)
	require.NoError(t, err)
	require.Len(t, tree.Goals, 1)
	assert.Equal(t, g1.ID, tree.Goals[0].ID)
	require.Len(t, tree.Goals[0].Tasks, 1)
	assert.Equal(t, "visible", tree.Goals[0].Tasks[0].Title)
}

func TestService_progress(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		tp := testutil.CreateTopic(t, f.repos.Topics, "Go", "u1")
		g := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "Basics")

		p, err := f.svc.GoalProgress(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, p)

		tasks := []topic.Task{
			testutil.CreateTask(t, f.repos.Tasks, g.ID, "a"),
			testutil.CreateTask(t, f.repos.Tasks, g.ID, "b"),
			testutil.CreateTask(t, f.repos.Tasks, g.ID, "c"),
		}
		for i, want := range []int{33, 67} {
			f.addRecord(t, tasks[i].ID, "u1")
			res, err := f.svc.CompleteTask(ctx, tasks[i].ID, 1, "u1")
			require.NoError(t, err)
			assert.Equal(t, want, res.GoalProgress)
			assert.Equal(t, want, res.TopicProgress)

			p, err = f.svc.GoalProgress(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, want, p)
		}

		// a second goal dilutes the topic, not the first goal
		g2 := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "Advanced")
		testutil.CreateTask(t, f.repos.Tasks, g2.ID, "d")
		p, err = f.svc.TopicProgress(ctx, tp.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, p)
		p, err = f.svc.GoalProgress(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 67, p)

		_, err = f.svc.GoalProgress(ctx, "missing")
		assert.True(t, versioned.IsNotFound(err))
	})
}

func TestService_UpdateTask_rejectsStatus(t *testing.T) {
	f := newFixture(t, testutil.MemoryRepos(t))
	tp := testutil.CreateTopic(t, f.repos.Topics, "Go", "u1")
	g := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "Basics")
	k := testutil.CreateTask(t, f.repos.Tasks, g.ID, "a")

	done := topic.TaskDone
	_, err := f.svc.UpdateTask(context.Background(), k.ID, 1, topic.TaskPatch{Status: &done})
	assert.Equal(t, topic.ErrInvalidPatch, errors.Cause(err))
}

func TestService_ReorderTasks(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		tp := testutil.CreateTopic(t, f.repos.Topics, "Go", "u1")
		g := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "Basics")
		other := testutil.CreateGoal(t, f.repos.Goals, tp.ID, "Other")
		a := testutil.CreateTask(t, f.repos.Tasks, g.ID, "a")
		b := testutil.CreateTask(t, f.repos.Tasks, g.ID, "b")
		c := testutil.CreateTask(t, f.repos.Tasks, g.ID, "c")
		stranger := testutil.CreateTask(t, f.repos.Tasks, other.ID, "x")

		moved, err := f.svc.ReorderTasks(ctx, g.ID, []versioned.Ref{{ID: c.ID, Version: 1}, {ID: a.ID, Version: 1}, {ID: b.ID, Version: 1}})
		require.NoError(t, err)
		require.Len(t, moved, 3)
		for _, k := range moved {
			assert.Equal(t, 2, k.Version)
		}

		tasks, err := f.repos.Tasks.QueryTasks(ctx, g.ID, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})

		// stale version
		moved, err = f.svc.ReorderTasks(ctx, g.ID, []versioned.Ref{{ID: a.ID, Version: 2}, {ID: b.ID, Version: 1}})
		_, ok := versioned.AsConflict(err)
		assert.True(t, ok, "got %v", err)
		assert.Len(t, moved, 1)

		_, err = f.svc.ReorderTasks(ctx, g.ID, []versioned.Ref{{ID: stranger.ID, Version: 1}})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr), "got %v", err)
	})
}

func TestService_ActiveTasksForUser(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		tp1 := testutil.CreateTopic(t, f.repos.Topics, "Go", "u1")
		tp2 := testutil.CreateTopic(t, f.repos.Topics, "SQL", "u1")
		g1 := testutil.CreateGoal(t, f.repos.Goals, tp1.ID, "Basics")
		g2 := testutil.CreateGoal(t, f.repos.Goals, tp2.ID, "Joins")

		low := testutil.CreateTask(t, f.repos.Tasks, g1.ID, "low", topic.PriorityLow)
		med1 := testutil.CreateTask(t, f.repos.Tasks, g1.ID, "med 1")
		high1 := testutil.CreateTask(t, f.repos.Tasks, g2.ID, "high 1", topic.PriorityHigh)
		med2 := testutil.CreateTask(t, f.repos.Tasks, g2.ID, "med 2")
		high2 := testutil.CreateTask(t, f.repos.Tasks, g1.ID, "high 2", topic.PriorityHigh)
		finished := testutil.CreateTask(t, f.repos.Tasks, g1.ID, "finished", topic.PriorityHigh)

		f.addRecord(t, finished.ID, "u1")
		_, err := f.svc.CompleteTask(ctx, finished.ID, 1, "u1")
		require.NoError(t, err)
		_, err = f.svc.StartTask(ctx, med2.ID, 1, "u1")
		require.NoError(t, err)

		active, err := f.svc.ActiveTasksForUser(ctx, "u1")
		require.NoError(t, err)
		got := make([]string, len(active))
		for i, a := range active {
			got[i] = a.TaskID
		}
		assert.Equal(t, []string{high1.ID, high2.ID, med1.ID, med2.ID, low.ID}, got)

		// archiving a topic hides its tasks
		archived := topic.StatusArchived
		_, err = f.svc.UpdateTopic(ctx, tp2.ID, 1, topic.TopicPatch{Status: &archived})
		require.NoError(t, err)
		active, err = f.svc.ActiveTasksForUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, active, 3)

		active, err = f.svc.ActiveTasksForUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, active)
		assert.Empty(t, active)
	})
}

func TestService_QueryTopics(t *testing.T) {
	f := newFixture(t, testutil.MemoryRepos(t))
	topics, err := f.svc.QueryTopics(context.Background(), topic.TopicFilter{OwnerID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, topics)
	assert.Empty(t, topics)
}
