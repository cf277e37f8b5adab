package glpi_test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-glpi"
)

const (
	testAppToken  = "test-app-token"
	testUserToken = "test-user-token"
	testUsername  = "glpi"
	testPassword  = "s3cret"
)

var genericError = []string{"#SOME_ERROR", "The error message referencing a link. http://somelink.com/#SOME_ERROR"}

// fakeGLPI is an in-process GLPI API. Routes registered with handle only
// run for requests carrying a live Session-Token.
type fakeGLPI struct {
	t      *testing.T
	mux    *http.ServeMux
	server *httptest.Server

	mu       sync.Mutex
	sessions map[string]bool
	issued   int

	logins     atomic.Int32
	loginDelay atomic.Int64
	failLogin  atomic.Bool
}

func newFakeGLPI(t *testing.T) *fakeGLPI {
	t.Helper()
	f := &fakeGLPI{
		t:        t,
		mux:      http.NewServeMux(),
		sessions: make(map[string]bool),
	}
	f.mux.HandleFunc("GET /initSession", f.initSession)
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGLPI) initSession(w http.ResponseWriter, r *http.Request) {
	f.logins.Add(1)

	if d := time.Duration(f.loginDelay.Load()); d > 0 {
		time.Sleep(d)
	}
	if f.failLogin.Load() || r.Header.Get("App-Token") != testAppToken {
		writeJSON(w, http.StatusBadRequest, genericError)
		return
	}

	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte(testUsername+":"+testPassword))
	switch r.Header.Get("Authorization") {
	case basic, "user_token " + testUserToken:
	default:
		writeJSON(w, http.StatusBadRequest, genericError)
		return
	}
	if r.Header.Get("Session-Token") != "" {
		writeJSON(w, http.StatusBadRequest, []string{"ERROR_MIXED_HEADERS", "session token sent to initSession"})
		return
	}

	f.mu.Lock()
	f.issued++
	token := fmt.Sprintf("session-%d", f.issued)
	f.sessions[token] = true
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"session_token": token})
}

// handle registers a route that requires a live session.
func (f *fakeGLPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(f.t, r.Header.Get("Authorization"), "Authorization sent with a session")
		assert.Equal(f.t, testAppToken, r.Header.Get("App-Token"))

		if !f.valid(r.Header.Get("Session-Token")) {
			writeJSON(w, http.StatusUnauthorized, []string{"ERROR_SESSION_TOKEN_INVALID", "session_token seems invalid"})
			return
		}
		h(w, r)
	})
}

func (f *fakeGLPI) valid(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[token]
}

// expire invalidates every session issued so far.
func (f *fakeGLPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.sessions)
}

func (f *fakeGLPI) client(t *testing.T, opts ...glpi.ClientOption) *glpi.Client {
	t.Helper()
	base := []glpi.ClientOption{
		glpi.WithBaseURL(f.server.URL + "/"),
		glpi.WithAppToken(testAppToken),
		glpi.WithUserToken(testUserToken),
	}
	client, err := glpi.NewClient(append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func (f *fakeGLPI) session(t *testing.T, opts ...glpi.ClientOption) *glpi.Session {
	t.Helper()
	session, err := f.client(t, opts...).InitSession(t.Context())
	require.NoError(t, err)
	return session
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
