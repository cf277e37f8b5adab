package glpi_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-glpi"
)

func TestNewClient(t *testing.T) {
	t.Run("success with user token", func(t *testing.T) {
		client, err := glpi.NewClient(
			glpi.WithBaseURL("https://glpi.example.com/apirest.php/"),
			glpi.WithAppToken("app"),
			glpi.WithUserToken("token"),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, "https://glpi.example.com/apirest.php", client.BaseURL())
	})

	t.Run("success with basic auth", func(t *testing.T) {
		client, err := glpi.NewClient(
			glpi.WithBaseURL("https://glpi.example.com/apirest.php"),
			glpi.WithBasicAuth("glpi", "glpi"),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("error without base URL", func(t *testing.T) {
		_, err := glpi.NewClient(
			glpi.WithUserToken("token"),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, glpi.ErrNoBaseURL)
	})

	t.Run("error without credentials", func(t *testing.T) {
		_, err := glpi.NewClient(
			glpi.WithBaseURL("https://glpi.example.com/apirest.php"),
			glpi.WithAppToken("app"),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, glpi.ErrNoCredentials)
	})

	t.Run("error with partial basic auth", func(t *testing.T) {
		_, err := glpi.NewClient(
			glpi.WithBaseURL("https://glpi.example.com/apirest.php"),
			glpi.WithBasicAuth("glpi", ""),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, glpi.ErrNoCredentials)
	})

	t.Run("error with relative base URL", func(t *testing.T) {
		_, err := glpi.NewClient(
			glpi.WithBaseURL("apirest.php"),
			glpi.WithUserToken("token"),
		)
		require.Error(t, err)
	})

	t.Run("success with all options", func(t *testing.T) {
		client, err := glpi.NewClient(
			glpi.WithBaseURL("https://glpi.example.com/apirest.php"),
			glpi.WithAppToken("app"),
			glpi.WithUserToken("token"),
			glpi.WithUserAgent("test-agent/1.0"),
			glpi.WithTimeout(10*time.Second),
			glpi.WithHTTPClient(&http.Client{}),
			glpi.WithRelogin(true),
			glpi.WithReloginWait(time.Second),
			glpi.WithReloginBackoffUnit(time.Millisecond),
		)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_InitSession(t *testing.T) {
	t.Run("user token", func(t *testing.T) {
		f := newFakeGLPI(t)

		session, err := f.client(t).InitSession(t.Context())
		require.NoError(t, err)

		assert.Equal(t, "session-1", session.SessionToken())
		assert.Equal(t, int32(1), f.logins.Load())
	})

	t.Run("basic auth", func(t *testing.T) {
		f := newFakeGLPI(t)

		client, err := glpi.NewClient(
			glpi.WithBaseURL(f.server.URL),
			glpi.WithAppToken(testAppToken),
			glpi.WithBasicAuth(testUsername, testPassword),
		)
		require.NoError(t, err)

		session, err := client.InitSession(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "session-1", session.SessionToken())
	})

	t.Run("user token wins over basic auth", func(t *testing.T) {
		var authHeader string
		f := newFakeGLPI(t)
		f.mux.HandleFunc("GET /probe/initSession", func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]string{"session_token": "probe"})
		})

		client, err := glpi.NewClient(
			glpi.WithBaseURL(f.server.URL+"/probe"),
			glpi.WithAppToken(testAppToken),
			glpi.WithBasicAuth(testUsername, testPassword),
			glpi.WithUserToken(testUserToken),
		)
		require.NoError(t, err)

		_, err = client.InitSession(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "user_token "+testUserToken, authHeader)
	})

	t.Run("session requests carry no Authorization header", func(t *testing.T) {
		f := newFakeGLPI(t)
		var headers http.Header
		f.handle("GET /getFullSession", func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			writeJSON(w, http.StatusOK, map[string]any{"session": map[string]any{"glpiname": "glpi"}})
		})

		for _, opt := range []glpi.ClientOption{
			glpi.WithUserToken(testUserToken),
			glpi.WithBasicAuth(testUsername, testPassword),
		} {
			client, err := glpi.NewClient(glpi.WithBaseURL(f.server.URL), glpi.WithAppToken(testAppToken), opt)
			require.NoError(t, err)
			session, err := client.InitSession(t.Context())
			require.NoError(t, err)

			_, err = session.GetFullSession(t.Context())
			require.NoError(t, err)

			assert.NotContains(t, headers, "Authorization")
			assert.Equal(t, testAppToken, headers.Get("App-Token"))
			assert.Equal(t, session.SessionToken(), headers.Get("Session-Token"))
		}
	})

	t.Run("login error carries reason and message", func(t *testing.T) {
		f := newFakeGLPI(t)

		client, err := glpi.NewClient(
			glpi.WithBaseURL(f.server.URL),
			glpi.WithAppToken(testAppToken),
			glpi.WithUserToken("wrong"),
		)
		require.NoError(t, err)

		_, err = client.InitSession(t.Context())
		require.Error(t, err)

		var apiErr *glpi.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "Bad Request", apiErr.StatusText)
		assert.Equal(t, genericError[0], apiErr.Reason)
		assert.Equal(t, genericError[1], apiErr.Message)
		assert.Equal(t, int32(1), f.logins.Load(), "login failures must not be retried")
	})

	t.Run("missing session token", func(t *testing.T) {
		f := newFakeGLPI(t)
		f.mux.HandleFunc("GET /empty/initSession", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{})
		})

		client, err := glpi.NewClient(
			glpi.WithBaseURL(f.server.URL+"/empty"),
			glpi.WithUserToken(testUserToken),
		)
		require.NoError(t, err)

		_, err = client.InitSession(t.Context())
		require.ErrorIs(t, err, glpi.ErrNoSessionToken)
	})

	t.Run("transport error", func(t *testing.T) {
		f := newFakeGLPI(t)
		url := f.server.URL
		f.server.Close()

		client, err := glpi.NewClient(glpi.WithBaseURL(url), glpi.WithUserToken(testUserToken))
		require.NoError(t, err)

		_, err = client.InitSession(t.Context())
		require.Error(t, err)

		var transportErr *glpi.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "ECONNREFUSED", transportErr.Code)
	})
}

func TestClient_LostPassword(t *testing.T) {
	t.Run("request reset", func(t *testing.T) {
		f := newFakeGLPI(t)
		var body map[string]any
		f.mux.HandleFunc("PUT /lostPassword", func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Session-Token"))
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, testAppToken, r.Header.Get("App-Token"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusOK)
		})

		err := f.client(t).LostPassword(t.Context(), "user@example.com", "", "")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"email": "user@example.com"}, body)
	})

	t.Run("complete reset", func(t *testing.T) {
		f := newFakeGLPI(t)
		var body map[string]any
		f.mux.HandleFunc("PUT /lostPassword", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusOK)
		})

		err := f.client(t).LostPassword(t.Context(), "user@example.com", "reset-token", "new-password")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"email":                 "user@example.com",
			"password_forget_token": "reset-token",
			"password":              "new-password",
		}, body)
	})

	t.Run("service error", func(t *testing.T) {
		f := newFakeGLPI(t)
		f.mux.HandleFunc("PUT /lostPassword", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, []string{"ERROR_NOT_ALLOWED", "password reset disabled"})
		})

		err := f.client(t).LostPassword(t.Context(), "user@example.com", "", "")

		var validationErr *glpi.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "ERROR_NOT_ALLOWED", validationErr.Reason)
	})
}
