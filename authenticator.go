package glpi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tphakala/go-glpi/internal/api"
	"github.com/tphakala/go-glpi/internal/auth"
)

// authenticator trades login credentials for a session token.
type authenticator struct {
	transport *api.Transport
	creds     *auth.Credentials
	logger    *slog.Logger
}

type initSessionResponse struct {
	SessionToken string `json:"session_token"`
}

// login calls initSession with the Authorization and App-Token headers and
// returns a new socket carrying only App-Token and Session-Token.
func (a *authenticator) login(ctx context.Context) (*api.Socket, error) {
	a.logger.DebugContext(ctx, "initSession", "credentials", a.creds)

	socket := api.NewSocket(a.transport, a.creds.LoginHeaders())
	resp, err := socket.Call(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   "initSession",
	})
	if err != nil {
		return nil, newTransportError(err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}

	var body initSessionResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("glpi: decoding initSession response: %w", err)
	}
	if body.SessionToken == "" {
		return nil, ErrNoSessionToken
	}

	a.logger.InfoContext(ctx, "session opened", "credentials", a.creds)

	return api.NewSocket(a.transport, auth.SessionHeaders(a.creds.AppToken, body.SessionToken)), nil
}
