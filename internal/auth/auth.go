// Package auth provides GLPI login credentials and session headers.
package auth

import (
	"encoding/base64"
	"log/slog"
	"net/http"
)

// Header names used by the GLPI REST API.
const (
	HeaderAuthorization = "Authorization"
	HeaderAppToken      = "App-Token"
	HeaderSessionToken  = "Session-Token"
)

// Credentials holds GLPI login credentials.
// Either UserToken or Username/Password must be set; UserToken wins when both are.
type Credentials struct {
	AppToken  string
	UserToken string
	Username  string
	Password  string
}

// Authorization returns the Authorization header value used for initSession.
func (c *Credentials) Authorization() string {
	if c.UserToken != "" {
		return "user_token " + c.UserToken
	}
	raw := c.Username + ":" + c.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// LoginHeaders returns the header set sent to initSession.
func (c *Credentials) LoginHeaders() http.Header {
	h := make(http.Header)
	h.Set(HeaderAuthorization, c.Authorization())
	if c.AppToken != "" {
		h.Set(HeaderAppToken, c.AppToken)
	}
	return h
}

// Valid reports whether credentials are configured.
func (c *Credentials) Valid() bool {
	if c == nil {
		return false
	}
	return c.UserToken != "" || (c.Username != "" && c.Password != "")
}

// Method names the login method without exposing secrets.
func (c *Credentials) Method() string {
	if c.UserToken != "" {
		return "user_token"
	}
	return "basic"
}

// LogValue implements slog.LogValuer so credentials never reach a log verbatim.
func (c *Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", c.Method()),
		slog.Bool("app_token", c.AppToken != ""),
	)
}

// SessionHeaders returns the header set carried once a session is live.
// It never contains an Authorization header.
func SessionHeaders(appToken, sessionToken string) http.Header {
	h := make(http.Header)
	if appToken != "" {
		h.Set(HeaderAppToken, appToken)
	}
	h.Set(HeaderSessionToken, sessionToken)
	return h
}
