package session

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/bankfake"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/storage/filestore"
	"github.com/yndnr/bankline-go/internal/storage/memory"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

func TestRace_RefreshThenLogout(t *testing.T) {
	cases := map[string]struct {
		// deleteFault keeps the server session alive so the stale
		// refresh comes back 200 instead of 401.
		deleteFault *bankfake.Fault
	}{
		"stale success": {deleteFault: &bankfake.Fault{Status: http.StatusInternalServerError}},
		"stale failure": {},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			f := newFixture(t, store, bankfake.WithIssuedTokens("tok-123"))
			resolve(t, f.mgr)
			require.True(t, f.mgr.Login(context.Background(), "alice", "pw1").Success)
			if tc.deleteFault != nil {
				f.fake.Fail(http.MethodDelete, "/sessions", *tc.deleteFault)
			}

			hold := f.fake.Hold(http.MethodGet, "/users/me")
			refreshed := make(chan error, 1)
			go func() { refreshed <- f.mgr.Refresh(context.Background()) }()

			select {
			case <-hold.Arrived():
			case <-time.After(waitFor):
				t.Fatal("refresh never reached the server")
			}

			f.mgr.Logout(context.Background())
			assertAnonymous(t, f, store)

			hold.Release()
			select {
			case err := <-refreshed:
				assert.ErrorIs(t, err, domain.ErrSuperseded)
			case <-time.After(waitFor):
				t.Fatal("refresh never completed")
			}

			assertAnonymous(t, f, store)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StaleResults))
		})
	}
}

func TestRace_StartupFetchThenLogout(t *testing.T) {
	store := memory.New(memory.WithToken("tok-123"))
	f := newFixture(t, store)
	f.fake.SeedSession("alice", "tok-123")
	f.fake.Fail(http.MethodDelete, "/sessions", bankfake.Fault{Status: http.StatusBadGateway})
	hold := f.fake.Hold(http.MethodGet, "/users/me")

	require.NoError(t, f.mgr.Init(context.Background()))
	<-hold.Arrived()

	f.mgr.Logout(context.Background())
	s := resolve(t, f.mgr)
	assert.Equal(t, domain.PhaseAnonymous, s.Phase)

	hold.Release()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.StaleResults) == 1
	}, waitFor, 5*time.Millisecond)
	assertAnonymous(t, f, store)
}

func TestRace_LogoutDuringSessionCreation(t *testing.T) {
	store := memory.New()
	f := newFixture(t, store, bankfake.WithIssuedTokens("tok-123"))
	resolve(t, f.mgr)
	hold := f.fake.Hold(http.MethodPost, "/sessions")

	loggedIn := make(chan Result, 1)
	go func() { loggedIn <- f.mgr.Login(context.Background(), "alice", "pw1") }()

	select {
	case <-hold.Arrived():
	case <-time.After(waitFor):
		t.Fatal("login never reached the server")
	}

	f.mgr.Logout(context.Background())
	assertAnonymous(t, f, store)

	hold.Release()
	var res Result
	select {
	case res = <-loggedIn:
	case <-time.After(waitFor):
		t.Fatal("login never completed")
	}

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrSuperseded)
	assertAnonymous(t, f, store)
	assert.False(t, f.fake.SessionActive("tok-123"), "the session created after logout should be revoked")
	assert.Equal(t, 0, f.fake.Hits(http.MethodGet, "/users/me"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StaleResults))
}

func TestRace_LoginDuringStartupFetch(t *testing.T) {
	store := memory.New(memory.WithToken("tok-old"))
	f := newFixture(t, store, bankfake.WithIssuedTokens("tok-new"))
	hold := f.fake.Hold(http.MethodGet, "/users/me")

	require.NoError(t, f.mgr.Init(context.Background()))
	<-hold.Arrived()

	loggedIn := make(chan Result, 1)
	go func() { loggedIn <- f.mgr.Login(context.Background(), "alice", "pw1") }()

	// Both profile fetches are parked; releasing lets the stale startup
	// fetch (401 for tok-old) and the login fetch race.
	require.Eventually(t, func() bool {
		return f.fake.Hits(http.MethodGet, "/users/me") == 2
	}, waitFor, 5*time.Millisecond)
	hold.Release()

	res := <-loggedIn
	require.True(t, res.Success, "login: %s %v", res.Message, res.Err)

	s := resolve(t, f.mgr)
	assert.Equal(t, domain.PhaseAuthenticated, s.Phase)
	tok, _ := stored(t, store)
	assert.Equal(t, "tok-new", tok)
}

func TestExternalChange_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	fake := bankfake.New(bankfake.WithUser(alice()), bankfake.WithIssuedTokens("tok-a"))
	srv := newHTTPServer(t, fake)

	newManager := func(watch bool) (*Manager, *filestore.Store) {
		store, err := filestore.New(path)
		require.NoError(t, err)
		api, err := apiclient.New(srv)
		require.NoError(t, err)
		m := New(store, api, WithLogger(logger.Nop()), WithStoreWatch(watch))
		t.Cleanup(func() { m.Close() })
		return m, store
	}

	writer, _ := newManager(false)
	follower, _ := newManager(true)
	resolve(t, writer)
	resolve(t, follower)

	ctx := context.Background()
	require.True(t, writer.Login(ctx, "alice", "pw1").Success)
	require.Eventually(t, func() bool {
		return follower.State().IsAuthenticated()
	}, waitFor, 10*time.Millisecond, "follower should pick up the new credential")

	tok, _ := follower.Token()
	assert.Equal(t, "tok-a", tok)

	writer.Logout(ctx)
	require.Eventually(t, func() bool {
		s := follower.State()
		return s.Phase == domain.PhaseAnonymous && !s.HasToken()
	}, waitFor, 10*time.Millisecond, "follower should drop the removed credential")
}

func TestExternalChange_OwnWritesIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	fake := bankfake.New(bankfake.WithUser(alice()))
	srv := newHTTPServer(t, fake)

	store, err := filestore.New(path)
	require.NoError(t, err)
	api, err := apiclient.New(srv)
	require.NoError(t, err)
	m := New(store, api, WithLogger(logger.Nop()), WithStoreWatch(true))
	defer m.Close()

	resolve(t, m)
	require.True(t, m.Login(context.Background(), "alice", "pw1").Success)

	// Give the watcher time to deliver the event for our own write.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fake.Hits(http.MethodGet, "/users/me"))
	assert.True(t, m.State().IsAuthenticated())
}
