package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type taskServer struct {
	f      serviceFixture
	ts     *httptest.Server
	tokens *session.JWTManager
}

func newTaskServer(t *testing.T) taskServer {
	t.Helper()
	f := newServiceFixture(t)

	cfg := session.DefaultConfig()
	cfg.SigningKey = []byte(testSecret)
	tokens, err := session.NewJWTManager(cfg)
	require.NoError(t, err)

	h, err := NewHandler(discardLogger(), f.svc, session.NewVerifier(discardLogger(), tokens), 0)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return taskServer{f: f, ts: ts, tokens: tokens}
}

func (s taskServer) login(t *testing.T, email string) (session.Identity, string) {
	t.Helper()
	who := s.f.account(t, email)
	issued, err := s.tokens.Issue(who.ID, who.Email, time.Now())
	require.NoError(t, err)
	return who, issued.Token
}

func (s taskServer) do(t *testing.T, method, path, body, token string) (int, []byte) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Error.Code
}

func TestTasksAPI_CRUD(t *testing.T) {
	s := newTaskServer(t)
	_, token := s.login(t, "alice@example.com")

	status, body := s.do(t, http.MethodPost, "/tasks", `{"title":"write report","description":"q3"}`, token)
	require.Equal(t, http.StatusCreated, status, string(body))
	var created createResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, created.ID, created.Task.ID)

	status, body = s.do(t, http.MethodGet, "/tasks", "", token)
	require.Equal(t, http.StatusOK, status)
	var list []Task
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "write report", list[0].Title)

	status, body = s.do(t, http.MethodPut, "/tasks/"+created.ID, `{"title":"write report","completed":true}`, token)
	require.Equal(t, http.StatusOK, status, string(body))
	var updated updateResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.True(t, updated.Task.Completed)
	assert.NotEmpty(t, updated.Message)

	status, body = s.do(t, http.MethodGet, "/tasks/"+created.ID, "", token)
	require.Equal(t, http.StatusOK, status)
	var got Task
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Completed)

	status, body = s.do(t, http.MethodDelete, "/tasks/"+created.ID, "", token)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"message"`)

	status, body = s.do(t, http.MethodGet, "/tasks/"+created.ID, "", token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(t, body))
}

func TestTasksAPI_OwnerIDInBodyIgnored(t *testing.T) {
	s := newTaskServer(t)
	alice, aliceToken := s.login(t, "alice@example.com")
	bob, bobToken := s.login(t, "bob@example.com")

	status, body := s.do(t, http.MethodPost, "/tasks", `{"title":"mine","owner_id":"`+bob.ID+`"}`, aliceToken)
	require.Equal(t, http.StatusCreated, status, string(body))
	var created createResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, alice.ID, created.Task.OwnerID)

	status, _ = s.do(t, http.MethodGet, "/tasks/"+created.ID, "", bobToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTasksAPI_CrossTenantIsNotFound(t *testing.T) {
	s := newTaskServer(t)
	_, aliceToken := s.login(t, "alice@example.com")
	_, bobToken := s.login(t, "bob@example.com")

	status, body := s.do(t, http.MethodPost, "/tasks", `{"title":"secret"}`, aliceToken)
	require.Equal(t, http.StatusCreated, status)
	var created createResponse
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = s.do(t, http.MethodGet, "/tasks", "", bobToken)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"title":"pwned"}`},
		{http.MethodDelete, ""},
	} {
		status, body = s.do(t, tc.method, "/tasks/"+created.ID, tc.body, bobToken)
		assert.Equal(t, http.StatusNotFound, status, tc.method)
		assert.Equal(t, "not_found", errorCode(t, body), tc.method)
	}

	status, body = s.do(t, http.MethodGet, "/tasks/"+created.ID, "", aliceToken)
	require.Equal(t, http.StatusOK, status)
	var got Task
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "secret", got.Title)
}

func TestTasksAPI_RequiresBearer(t *testing.T) {
	s := newTaskServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/tasks/x"},
		{http.MethodPut, "/tasks/x"},
		{http.MethodDelete, "/tasks/x"},
	} {
		status, _ := s.do(t, tc.method, tc.path, `{"title":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, status, tc.method+" "+tc.path)
	}
	assert.Empty(t, s.f.pub.all())
}

func TestTasksAPI_Validation(t *testing.T) {
	s := newTaskServer(t)
	_, token := s.login(t, "alice@example.com")

	status, body := s.do(t, http.MethodPost, "/tasks", `{"description":"no title"}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/tasks", `{"title":`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_json", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/tasks", `{"title":42}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_json", errorCode(t, body))
}

func TestTasksAPI_TokenOfDeletedAccountIs401(t *testing.T) {
	s := newTaskServer(t)
	who, token := s.login(t, "gone@example.com")

	_, err := s.f.st.DeleteOne(context.Background(), store.TableAccounts, store.Filter{"id": who.ID})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/tasks", `{"title":"orphan"}`, token)
	assert.Equal(t, http.StatusUnauthorized, status, string(body))
	assert.Equal(t, "unauthorized", errorCode(t, body))
}
