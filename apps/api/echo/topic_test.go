package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/versioned"
	"github.com/trezcool/studywall/tests"
)

func TestTopicAPI(t *testing.T) {
	e := setup(t)
	token := e.token(t, "u1")
	intruder := e.token(t, "intruder")

	var created topic.Topic
	rec := e.do(t, http.MethodPost, "/v1/topics", token, echoMap{"title": "  Go  ", "subject": "programming"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Go", created.Title)
	assert.Equal(t, "u1", created.OwnerID)
	assert.Equal(t, 1, created.Version)
	other := testutil.CreateTopic(t, e.repos.Topics, "Someone else's", "u2")

	base := "/v1/topics/" + created.ID
	tests := []httpTest{
		{
			name: "create: blank title", method: http.MethodPost, path: "/v1/topics", token: token,
			body: echoMap{"title": "   "}, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title":"this field is required"}`),
		},
		{name: "list: own topics only", path: "/v1/topics", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, []topic.Topic{created})},
		{name: "list: bad status", path: "/v1/topics?status=lol", token: token, wantCode: http.StatusBadRequest},
		{name: "list: archived", path: "/v1/topics?status=archived", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "update: missing version", method: http.MethodPut, path: base, token: token, body: echoMap{"title": "x"}, wantCode: http.StatusBadRequest},
		{
			name: "update: bad status", method: http.MethodPut, path: base, token: token,
			body: echoMap{"version": 1, "status": "lol"}, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"status":"status must be one of active, archived"}`),
		},
		{name: "update: not found", method: http.MethodPut, path: "/v1/topics/nope", token: token, body: echoMap{"version": 1}, wantCode: http.StatusNotFound},
		{name: "update", method: http.MethodPut, path: base, token: token, body: echoMap{"version": 1, "title": "Go 1.25"}, wantCode: http.StatusOK},
		{
			name: "update: stale version", method: http.MethodPut, path: base, token: token,
			body: echoMap{"version": 1, "title": "stale"}, wantCode: http.StatusConflict,
			wantData: []byte(`{"error":"version conflict, please refresh","current_version":2}`),
		},
		{name: "tree: not found", path: "/v1/topics/nope", token: token, wantCode: http.StatusNotFound},
		{name: "foreign actor: tree", path: base, token: intruder, wantCode: http.StatusForbidden, wantData: []byte(`{"error":"not allowed on this topic"}`)},
		{name: "foreign actor: update", method: http.MethodPut, path: base, token: intruder, body: echoMap{"version": 2, "title": "pwned"}, wantCode: http.StatusForbidden},
		{name: "foreign actor: delete", method: http.MethodDelete, path: base, token: intruder, wantCode: http.StatusForbidden},
		{name: "foreign actor: progress", path: base + "/progress", token: intruder, wantCode: http.StatusForbidden},
		{name: "foreign actor: add goal", method: http.MethodPost, path: base + "/goals", token: intruder, body: echoMap{"title": "x"}, wantCode: http.StatusForbidden},
		{name: "progress: empty", path: base + "/progress", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, progressResponse{ID: created.ID, Progress: 0})},
	}
	runHTTPTests(t, e, tests)

	var tree topic.TopicTree
	rec = e.do(t, http.MethodGet, base, token, nil, &tree)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go 1.25", tree.Title)
	assert.Equal(t, 2, tree.Version)
	assert.Empty(t, tree.Goals)

	rec = e.do(t, http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/topics/"+other.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTopicAPI_collaborative(t *testing.T) {
	e := setup(t)
	owner := e.token(t, "u1")
	peer := e.token(t, "u2")

	var created topic.Topic
	rec := e.do(t, http.MethodPost, "/v1/topics", owner, echoMap{"title": "Rust", "is_collaborative": true}, &created)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(t, created.IsCollaborative)

	base := "/v1/topics/" + created.ID
	rec = e.do(t, http.MethodGet, base, peer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var g topic.Goal
	rec = e.do(t, http.MethodPost, base+"/goals", peer, echoMap{"title": "Ownership"}, &g)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u2", g.CreatorID)

	tests := []httpTest{
		{name: "peer: rename topic", method: http.MethodPut, path: base, token: peer, body: echoMap{"version": 1, "title": "pwned"}, wantCode: http.StatusForbidden},
		{name: "peer: delete topic", method: http.MethodDelete, path: base, token: peer, wantCode: http.StatusForbidden},
		{name: "peer: delete goal", method: http.MethodDelete, path: "/v1/goals/" + g.ID, token: peer, wantCode: http.StatusForbidden},
		{name: "peer: add task", method: http.MethodPost, path: "/v1/goals/" + g.ID + "/tasks", token: peer, body: echoMap{"title": "borrowing"}, wantCode: http.StatusCreated},
		{name: "owner: delete goal", method: http.MethodDelete, path: "/v1/goals/" + g.ID, token: owner, wantCode: http.StatusNoContent},
	}
	runHTTPTests(t, e, tests)

	got, err := e.repos.Topics.Read(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rust", got.Title)
}

func TestGoalAPI(t *testing.T) {
	e := setup(t)
	token := e.token(t, "u1")
	tp := testutil.CreateTopic(t, e.repos.Topics, "Go", "u1")

	var g topic.Goal
	rec := e.do(t, http.MethodPost, "/v1/topics/"+tp.ID+"/goals", token, echoMap{"title": "Basics"}, &g)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, topic.PriorityMedium, g.Priority)
	assert.Equal(t, "u1", g.CreatorID)

	var a, b topic.Task
	rec = e.do(t, http.MethodPost, "/v1/goals/"+g.ID+"/tasks", token, echoMap{"title": "a", "estimated_minutes": 30}, &a)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/v1/goals/"+g.ID+"/tasks", token, echoMap{"title": "b", "priority": "high"}, &b)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, a.EstimatedMinutes)
	assert.Equal(t, 30, *a.EstimatedMinutes)

	tests := []httpTest{
		{name: "add goal: unknown topic", method: http.MethodPost, path: "/v1/topics/nope/goals", token: token, body: echoMap{"title": "x"}, wantCode: http.StatusNotFound},
		{
			name: "add task: bad priority", method: http.MethodPost, path: "/v1/goals/" + g.ID + "/tasks", token: token,
			body: echoMap{"title": "x", "priority": "urgent"}, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"priority":"priority must be one of high, medium, low"}`),
		},
		{
			name: "update goal: need help", method: http.MethodPut, path: "/v1/goals/" + g.ID, token: token,
			body: echoMap{"version": 1, "need_help": true, "help_message": "stuck on interfaces"}, wantCode: http.StatusOK,
		},
		{name: "reorder: empty", method: http.MethodPut, path: "/v1/goals/" + g.ID + "/tasks/order", token: token, body: echoMap{"tasks": []interface{}{}}, wantCode: http.StatusBadRequest},
		{
			name: "reorder", method: http.MethodPut, path: "/v1/goals/" + g.ID + "/tasks/order", token: token,
			body:     echoMap{"tasks": []versioned.Ref{{ID: b.ID, Version: 1}, {ID: a.ID, Version: 1}}},
			wantCode: http.StatusOK,
		},
		{name: "progress", path: "/v1/goals/" + g.ID + "/progress", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, progressResponse{ID: g.ID, Progress: 0})},
	}
	runHTTPTests(t, e, tests)

	var tree topic.TopicTree
	rec = e.do(t, http.MethodGet, "/v1/topics/"+tp.ID, token, nil, &tree)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tree.Goals, 1)
	assert.True(t, tree.Goals[0].NeedHelp)
	assert.Equal(t, "stuck on interfaces", tree.Goals[0].HelpMessage)
	require.Len(t, tree.Goals[0].Tasks, 2)
	assert.Equal(t, b.ID, tree.Goals[0].Tasks[0].ID)

	rec = e.do(t, http.MethodDelete, "/v1/goals/"+g.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := e.repos.Tasks.Read(context.Background(), a.ID)
	assert.True(t, versioned.IsNotFound(err))
}

type echoMap = map[string]interface{}
