package glpi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tphakala/go-glpi/internal/api"
	"github.com/tphakala/go-glpi/internal/auth"
)

// Default configuration values.
const (
	defaultTimeout     = api.DefaultTimeout
	defaultReloginWait = 3 * time.Second
	defaultBackoffUnit = time.Second
)

// Client is the GLPI API client. It holds the login configuration; call
// InitSession to obtain a Session for resource calls.
type Client struct {
	transport *api.Transport
	auth      *authenticator
	logger    *slog.Logger

	relogin     bool
	reloginWait time.Duration
	backoffUnit time.Duration
}

// NewClient creates a new GLPI client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout:     defaultTimeout,
		reloginWait: defaultReloginWait,
		backoffUnit: defaultBackoffUnit,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.baseURL == "" {
		return nil, ErrNoBaseURL
	}

	creds := &auth.Credentials{
		AppToken:  cfg.appToken,
		UserToken: cfg.userToken,
		Username:  cfg.username,
		Password:  cfg.password,
	}
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	transport, err := api.NewTransport(cfg.baseURL, cfg.httpClient, cfg.timeout, logger)
	if err != nil {
		return nil, err
	}

	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}

	return &Client{
		transport: transport,
		auth: &authenticator{
			transport: transport,
			creds:     creds,
			logger:    logger,
		},
		logger:      logger,
		relogin:     cfg.relogin,
		reloginWait: cfg.reloginWait,
		backoffUnit: cfg.backoffUnit,
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL.String()
}

// InitSession logs in and returns a live Session. Login failures are
// returned as is and never retried.
func (c *Client) InitSession(ctx context.Context) (*Session, error) {
	socket, err := c.auth.login(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(c, socket), nil
}

// LostPassword requests a password reset mail for email, or, when
// password is set, completes the reset with the token from that mail.
// It needs no session.
func (c *Client) LostPassword(ctx context.Context, email, resetToken, password string, opts ...RequestOption) error {
	headers := make(http.Header)
	if c.auth.creds.AppToken != "" {
		headers.Set(auth.HeaderAppToken, c.auth.creds.AppToken)
	}
	socket := api.NewSocket(c.transport, headers)

	reqCfg := newRequestConfig(opts...)
	resp, err := socket.Call(ctx, &api.Request{
		Method:  http.MethodPut,
		Path:    "lostPassword",
		Body:    lostPasswordBody(email, resetToken, password),
		Headers: reqCfg.headers,
	})
	if err != nil {
		return newTransportError(err)
	}
	if resp.IsError() {
		return parseError(resp)
	}
	return nil
}

func lostPasswordBody(email, resetToken, password string) map[string]any {
	body := map[string]any{"email": email}
	if password != "" {
		body["password_forget_token"] = resetToken
		body["password"] = password
	}
	return body
}
