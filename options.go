package glpi

import (
	"log/slog"
	"net/http"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL     string
	appToken    string
	userToken   string
	username    string
	password    string
	httpClient  *http.Client
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
	relogin     bool
	reloginWait time.Duration
	backoffUnit time.Duration
}

// WithBaseURL sets the GLPI REST API base URL, e.g.
// "https://glpi.example.com/apirest.php".
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAppToken sets the App-Token identifying the API client.
func WithAppToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.appToken = token
	}
}

// WithUserToken logs in with a personal user token. It takes precedence
// over WithBasicAuth.
func WithUserToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.userToken = token
	}
}

// WithBasicAuth logs in with a GLPI login and password.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout (default 40s). It overrides the
// timeout of a client passed to WithHTTPClient on the library's own copy;
// the caller's client is left untouched.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger configures structured logging. Credentials and tokens are
// never logged.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithRelogin enables transparent re-authentication: a request failing
// with 401 triggers a new initSession with the original credentials and
// is then replayed once.
func WithRelogin(enabled bool) ClientOption {
	return func(c *clientConfig) {
		c.relogin = enabled
	}
}

// WithReloginWait sets how long a request that hits a 401 while another
// request is already logging in waits before it is replayed (default 3s).
func WithReloginWait(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d >= 0 {
			c.reloginWait = d
		}
	}
}

// WithReloginBackoffUnit sets the unit of the linear re-login backoff
// (default one second). After three failed attempts in a row, attempt n
// first waits min(n, 60) units.
func WithReloginBackoffUnit(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d >= 0 {
			c.backoffUnit = d
		}
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

func newRequestConfig(opts ...RequestOption) *requestConfig {
	r := &requestConfig{
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to a request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}

// WithRequestID sets the X-Request-ID header for tracing.
func WithRequestID(id string) RequestOption {
	return WithHeader("X-Request-ID", id)
}
