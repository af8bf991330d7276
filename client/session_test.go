package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadcrm/go-crm-auth/client"
	"github.com/leadcrm/go-crm-auth/users"
)

// fakeBackend scripts the auth endpoints so session transitions can be driven
// without a real server.
type fakeBackend struct {
	mu          sync.Mutex
	meCalls     int
	loginCalls  int
	logoutCalls int

	meStatus      int
	loginStatus   int
	logoutStatus  int
	refreshStatus int
	user          users.User
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		meStatus:      http.StatusOK,
		loginStatus:   http.StatusOK,
		logoutStatus:  http.StatusOK,
		refreshStatus: http.StatusUnauthorized,
		user: users.User{
			ID:    "user-1",
			Name:  "Dana",
			Email: "dana@example.com",
			Role:  users.RoleManager,
		},
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.meCalls++
		status := f.meStatus
		user := f.user
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(user)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"kind": "invalid_token", "message": "Not authorized"})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.loginCalls++
		status := f.loginStatus
		user := f.user
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]users.User{"user": user})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"kind": "invalid_credentials", "message": "Invalid credentials"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logoutCalls++
		status := f.logoutStatus
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.refreshStatus
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"kind": "invalid_token", "message": "Invalid refresh token"})
		}
	})
	return mux
}

func (f *fakeBackend) calls() (me, login, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls, f.loginCalls, f.logoutCalls
}

func setupSession(t *testing.T, backend *fakeBackend, options ...client.SessionOption) *client.Session {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	api, err := client.New(srv.URL)
	require.NoError(t, err)
	return client.NewSession(api, options...)
}

func TestCheckSessionAuthenticated(t *testing.T) {
	backend := newFakeBackend()
	session := setupSession(t, backend)

	require.Equal(t, client.StateUninitialized, session.State())

	session.CheckSession(context.Background())

	require.Equal(t, client.StateAuthenticated, session.State())
	require.True(t, session.IsAuthenticated())
	require.NoError(t, session.Err())
	require.NotNil(t, session.User())
	require.Equal(t, "dana@example.com", session.User().Email)
}

func TestCheckSessionRunsExactlyOnce(t *testing.T) {
	backend := newFakeBackend()
	session := setupSession(t, backend)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			session.CheckSession(context.Background())
		}()
	}
	wg.Wait()

	// Repeat calls after completion are no-ops too.
	session.CheckSession(context.Background())

	me, _, _ := backend.calls()
	require.Equal(t, 1, me)
	require.Equal(t, client.StateAuthenticated, session.State())
}

// The probe still answers 401 after a successful refresh; the resulting
// APIError is the normal anonymous outcome, not a fault.
func TestCheckSessionAnonymousIsNotAnError(t *testing.T) {
	backend := newFakeBackend()
	backend.meStatus = http.StatusUnauthorized
	backend.refreshStatus = http.StatusOK
	session := setupSession(t, backend)

	session.CheckSession(context.Background())

	require.Equal(t, client.StateAnonymous, session.State())
	require.Nil(t, session.User())
	require.NoError(t, session.Err())

	// Original probe plus one replay after the refresh.
	me, _, _ := backend.calls()
	require.Equal(t, 2, me)
}

func TestCheckSessionServerFaultRecordsError(t *testing.T) {
	backend := newFakeBackend()
	backend.meStatus = http.StatusInternalServerError
	session := setupSession(t, backend)

	session.CheckSession(context.Background())

	require.Equal(t, client.StateAnonymous, session.State())
	require.Error(t, session.Err())

	session.ClearError()
	require.NoError(t, session.Err())
}

func TestLoginTransitions(t *testing.T) {
	backend := newFakeBackend()
	session := setupSession(t, backend)

	user, err := session.Login(context.Background(), "dana@example.com", "Password123")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, client.StateAuthenticated, session.State())

	backend.mu.Lock()
	backend.loginStatus = http.StatusBadRequest
	backend.mu.Unlock()

	_, err = session.Login(context.Background(), "dana@example.com", "wrong")
	require.Error(t, err)
	require.Equal(t, client.StateAnonymous, session.State())
	require.Error(t, session.Err())

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestLogoutResetsUnconditionally(t *testing.T) {
	backend := newFakeBackend()

	var invalidations atomic.Int32
	session := setupSession(t, backend, client.WithInvalidateHook(func() {
		invalidations.Add(1)
	}))

	_, err := session.Login(context.Background(), "dana@example.com", "Password123")
	require.NoError(t, err)

	session.Logout(context.Background())
	require.Equal(t, client.StateAnonymous, session.State())
	require.Nil(t, session.User())
	require.Equal(t, int32(1), invalidations.Load())

	// Double logout is safe.
	session.Logout(context.Background())
	require.Equal(t, client.StateAnonymous, session.State())

	_, _, logouts := backend.calls()
	require.Equal(t, 2, logouts)
}

func TestLogoutResetsEvenWhenServerFails(t *testing.T) {
	backend := newFakeBackend()
	backend.logoutStatus = http.StatusInternalServerError

	session := setupSession(t, backend)

	_, err := session.Login(context.Background(), "dana@example.com", "Password123")
	require.NoError(t, err)

	session.Logout(context.Background())
	require.Equal(t, client.StateAnonymous, session.State())
	require.Nil(t, session.User())
}

// An expired session whose refresh also fails resolves to a plain anonymous
// state: the transport forces the logout, and no error is surfaced.
func TestFailedRefreshForcesAnonymous(t *testing.T) {
	backend := newFakeBackend()
	backend.meStatus = http.StatusUnauthorized
	session := setupSession(t, backend)

	session.CheckSession(context.Background())

	require.Equal(t, client.StateAnonymous, session.State())
	require.NoError(t, session.Err())
}
