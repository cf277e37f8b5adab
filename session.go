package glpi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tphakala/go-glpi/internal/api"
	"github.com/tphakala/go-glpi/internal/auth"
)

// AllEntities selects every entity in ChangeActiveEntities.
const AllEntities = "all"

// Session is a logged-in GLPI session. It is safe for concurrent use;
// with re-login enabled, an expired session is renewed underneath it.
type Session struct {
	// Items provides access to item, sub-item and search operations.
	Items ItemService

	socket  *api.Socket
	relogin *reloginState
	enabled bool
	logger  *slog.Logger
}

func newSession(c *Client, socket *api.Socket) *Session {
	s := &Session{
		socket:  socket,
		relogin: newReloginState(socket, c.auth.login, c.reloginWait, c.backoffUnit, c.logger),
		enabled: c.relogin,
		logger:  c.logger,
	}
	s.Items = newItemService(s)
	return s
}

// SessionToken returns the current session token.
func (s *Session) SessionToken() string {
	return s.socket.Headers().Get(auth.HeaderSessionToken)
}

// do sends req and decodes a successful JSON body into result. A 401 is
// handed to the re-login coordinator and the request is replayed once;
// the replay's outcome is returned as is.
func (s *Session) do(ctx context.Context, req *api.Request, result any) (*api.Response, error) {
	resp, err := s.send(ctx, req)
	if err != nil && s.enabled && IsUnauthorized(err) {
		loginErr := s.relogin.reauthenticate(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, err)
		}

		resp, err = s.send(ctx, req)
		if err != nil && loginErr != nil {
			err = errors.Join(err, fmt.Errorf("glpi: re-login failed: %w", loginErr))
		}
	}
	if err != nil {
		return resp, err
	}

	if result != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return resp, fmt.Errorf("glpi: unmarshaling response: %w", err)
		}
	}
	return resp, nil
}

// send issues req once and translates failures.
func (s *Session) send(ctx context.Context, req *api.Request) (*api.Response, error) {
	id := uuid.NewString()
	s.logger.DebugContext(ctx, "API request", "id", id, "method", req.Method, "path", req.Path)

	resp, err := s.socket.Call(ctx, req)
	if err != nil {
		s.logger.DebugContext(ctx, "API transport error", "id", id, "error", err)
		return nil, newTransportError(err)
	}

	s.logger.DebugContext(ctx, "API response", "id", id, "status", resp.StatusCode)

	if resp.IsError() {
		return resp, parseError(resp)
	}

	s.relogin.succeeded()
	return resp, nil
}

// call is do for requests built from a method, path and options.
func (s *Session) call(ctx context.Context, method, path string, body, result any, opts []RequestOption) error {
	reqCfg := newRequestConfig(opts...)
	_, err := s.do(ctx, &api.Request{
		Method:  method,
		Path:    path,
		Body:    body,
		Headers: reqCfg.headers,
	}, result)
	return err
}

// KillSession closes the session on the server.
func (s *Session) KillSession(ctx context.Context, opts ...RequestOption) error {
	return s.call(ctx, http.MethodGet, "killSession", nil, nil, opts)
}

// LostPassword is Client.LostPassword sent with the session's headers.
func (s *Session) LostPassword(ctx context.Context, email, resetToken, password string, opts ...RequestOption) error {
	return s.call(ctx, http.MethodPut, "lostPassword", lostPasswordBody(email, resetToken, password), nil, opts)
}

// GetMyProfiles returns the profiles available to the logged-in user.
func (s *Session) GetMyProfiles(ctx context.Context, opts ...RequestOption) ([]Profile, error) {
	var result struct {
		Profiles []Profile `json:"myprofiles"`
	}
	if err := s.call(ctx, http.MethodGet, "getMyProfiles", nil, &result, opts); err != nil {
		return nil, err
	}
	return result.Profiles, nil
}

// GetActiveProfile returns the session's active profile.
func (s *Session) GetActiveProfile(ctx context.Context, opts ...RequestOption) (Item, error) {
	var result struct {
		Profile Item `json:"active_profile"`
	}
	if err := s.call(ctx, http.MethodGet, "getActiveProfile", nil, &result, opts); err != nil {
		return nil, err
	}
	return result.Profile, nil
}

// ChangeActiveProfile switches the session to another profile.
func (s *Session) ChangeActiveProfile(ctx context.Context, profileID int, opts ...RequestOption) error {
	body := map[string]any{"profiles_id": profileID}
	return s.call(ctx, http.MethodPost, "changeActiveProfile", body, nil, opts)
}

// GetMyEntities returns the entities the logged-in user can access.
func (s *Session) GetMyEntities(ctx context.Context, recursive bool, opts ...RequestOption) ([]Entity, error) {
	reqCfg := newRequestConfig(opts...)
	var result struct {
		Entities []Entity `json:"myentities"`
	}
	_, err := s.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "getMyEntities",
		Query:   map[string][]string{"is_recursive": {strconv.FormatBool(recursive)}},
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Entities, nil
}

// GetActiveEntities returns the session's active entities.
func (s *Session) GetActiveEntities(ctx context.Context, opts ...RequestOption) (*ActiveEntity, error) {
	var result struct {
		Active ActiveEntity `json:"active_entity"`
	}
	if err := s.call(ctx, http.MethodGet, "getActiveEntities", nil, &result, opts); err != nil {
		return nil, err
	}
	return &result.Active, nil
}

// ChangeActiveEntities switches the active entity. entityID is a numeric
// entity ID or AllEntities.
func (s *Session) ChangeActiveEntities(ctx context.Context, entityID string, recursive bool, opts ...RequestOption) error {
	if entityID == "" {
		entityID = AllEntities
	}
	var id any = entityID
	if n, err := strconv.Atoi(entityID); err == nil {
		id = n
	}
	body := map[string]any{
		"entities_id":  id,
		"is_recursive": recursive,
	}
	return s.call(ctx, http.MethodPost, "changeActiveEntities", body, nil, opts)
}

// GetFullSession returns the server-side session data.
func (s *Session) GetFullSession(ctx context.Context, opts ...RequestOption) (Item, error) {
	var result struct {
		Session Item `json:"session"`
	}
	if err := s.call(ctx, http.MethodGet, "getFullSession", nil, &result, opts); err != nil {
		return nil, err
	}
	return result.Session, nil
}

// GetGlpiConfig returns the GLPI configuration visible to the session.
func (s *Session) GetGlpiConfig(ctx context.Context, opts ...RequestOption) (Item, error) {
	var result struct {
		Config Item `json:"cfg_glpi"`
	}
	if err := s.call(ctx, http.MethodGet, "getGlpiConfig", nil, &result, opts); err != nil {
		return nil, err
	}
	return result.Config, nil
}
