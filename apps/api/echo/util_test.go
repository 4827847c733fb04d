package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/week"
	"github.com/trezcool/studywall/tests"
)

type env struct {
	conf   *core.Config
	server *Server
	repos  testutil.Repos
	logger *testutil.Logger
}

func setup(t *testing.T) env {
	t.Helper()
	return newEnv(t, testutil.MemoryRepos(t))
}

func newEnv(t *testing.T, repos testutil.Repos) env {
	t.Helper()
	conf := core.NewTestConfig()
	logger := &testutil.Logger{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	topic.InitValidators(validate, translator)
	record.InitValidators(validate, translator)

	calendar := week.NewCalendar(time.UTC)
	recordSvc := record.NewService(repos.Records, repos.Repositories, calendar)
	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		TopicSvc:   topic.NewService(repos.Repositories, recordSvc, logger),
		RecordSvc:  recordSvc,
		Calendar:   calendar,
		Validate:   validate,
		Translator: translator,
	})
	return env{conf: conf, server: server, repos: repos, logger: logger}
}

func (e env) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(core.Actor{ID: userID, Username: userID}, e.conf), e.conf.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do serves a request and decodes the JSON response into out, when given.
func (e env) do(t *testing.T, method, path, token string, body interface{}, out ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, rec := newAuthRequest(method, path, token, buf.Bytes())
	e.server.ServeHTTP(rec, req)
	if len(out) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out[0]); err != nil {
			t.Fatalf("decoding %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := e.do(t, method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
