package bankfake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	fake := New(opts...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func call(t *testing.T, srv *httptest.Server, method, path, tok string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestLoginProfileLogout(t *testing.T) {
	fake, srv := startServer(t,
		WithUser(User{Username: "alice", Password: "pw", FullName: "Alice A", Email: "a@example.com"}),
		WithIssuedTokens("tok-123"),
	)

	resp, body := call(t, srv, http.MethodPost, "/sessions", "", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "tok-123", body["token"])
	assert.True(t, fake.SessionActive("tok-123"))

	resp, body = call(t, srv, http.MethodGet, "/users/me", "tok-123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Alice A", data["fullName"])
	assert.Equal(t, float64(1), data["id"])

	resp, _ = call(t, srv, http.MethodDelete, "/sessions", "tok-123", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, fake.SessionActive("tok-123"))

	resp, body = call(t, srv, http.MethodGet, "/users/me", "tok-123", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid session", body["error"])
}

func TestLogin_BadCredentials(t *testing.T) {
	_, srv := startServer(t, WithUser(User{Username: "alice", Password: "pw"}))

	resp, body := call(t, srv, http.MethodPost, "/sessions", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid username or password", body["error"])

	resp, _ = call(t, srv, http.MethodPost, "/sessions", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	fake, srv := startServer(t)

	fields := map[string]any{"username": "bob", "password": "pw", "email": "b@example.com", "currency": "EUR"}
	resp, body := call(t, srv, http.MethodPost, "/users", "", fields)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "bob", data["username"])
	assert.Equal(t, "EUR", data["currency"])
	assert.NotContains(t, data, "password")

	resp, body = call(t, srv, http.MethodPost, "/users", "", fields)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username already exists", body["error"])

	resp, _ = call(t, srv, http.MethodPost, "/users", "", map[string]any{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 3, fake.Hits(http.MethodPost, "/users"))
	assert.True(t, fake.SeedSession("bob", "tok-bob"))
	assert.False(t, fake.SeedSession("nobody", "tok-x"))
}

func TestFaults(t *testing.T) {
	fake, srv := startServer(t, WithUser(User{Username: "alice", Password: "pw"}))
	fake.SeedSession("alice", "tok")

	fake.Fail(http.MethodGet, "/users/me", Fault{Status: http.StatusServiceUnavailable, Message: "maintenance", Times: 1})

	resp, body := call(t, srv, http.MethodGet, "/users/me", "tok", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "maintenance", body["error"])

	resp, _ = call(t, srv, http.MethodGet, "/users/me", "tok", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "fault limited to one use")

	fake.Fail(http.MethodDelete, "/sessions", Fault{Drop: true})
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions", nil)
	require.NoError(t, err)
	_, err = srv.Client().Do(req)
	assert.Error(t, err)

	fake.ClearFaults()
	resp, _ = call(t, srv, http.MethodDelete, "/sessions", "tok", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHold(t *testing.T) {
	fake, srv := startServer(t, WithUser(User{Username: "alice", Password: "pw"}))
	fake.SeedSession("alice", "tok")
	h := fake.Hold(http.MethodGet, "/users/me")

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/me", nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := srv.Client().Do(req)
		if err != nil {
			done <- -1
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-h.Arrived():
	case <-time.After(2 * time.Second):
		t.Fatal("held request never arrived")
	}

	select {
	case <-done:
		t.Fatal("request finished before release")
	case <-time.After(20 * time.Millisecond):
	}

	h.Release()
	h.Release()
	assert.Equal(t, http.StatusOK, <-done)
}

func TestCountingAndNotFound(t *testing.T) {
	fake, srv := startServer(t)

	resp, body := call(t, srv, http.MethodGet, "/accounts", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", body["error"])
	assert.Equal(t, 0, fake.TotalHits())

	call(t, srv, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, 1, fake.TotalHits())
	assert.Equal(t, []string{"GET /users/me"}, fake.Routes())
	assert.Equal(t, 0, fake.ActiveSessions())
}

func TestRecoverPanic(t *testing.T) {
	fake := New()
	h := fake.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAddUser_HashesPassword(t *testing.T) {
	fake, srv := startServer(t)

	u, err := fake.AddUser(User{Username: "carol", Password: "pw"})
	require.NoError(t, err)
	assert.NotEqual(t, "pw", u.Password)
	assert.NotZero(t, u.ID)

	resp, body := call(t, srv, http.MethodPost, "/sessions", "", map[string]string{"username": "carol", "password": "pw"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	_, err = fake.AddUser(User{Username: "dave", Password: strings.Repeat("x", 73)})
	assert.Error(t, err)
}
