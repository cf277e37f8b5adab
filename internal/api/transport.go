// Package api provides low-level HTTP transport for GLPI API calls.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout bounds every request, login included.
	DefaultTimeout = 40 * time.Second

	// MaxAbortRetries is how many times an aborted connection is retried.
	MaxAbortRetries = 3

	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	abortRetryWait     = time.Millisecond
)

// ErrResponseTooLarge is returned when a response body exceeds the size cap.
var ErrResponseTooLarge = errors.New("response too large")

// Transport handles HTTP communication with the GLPI API.
// It holds no credentials; those live on a Socket.
type Transport struct {
	BaseURL   *url.URL
	UserAgent string

	client *resty.Client
	logger *slog.Logger
}

// NewTransport creates a Transport for baseURL. A nil httpClient gets a
// fresh client with DefaultTimeout; a non-positive timeout keeps the
// client's own. httpClient is copied, so the caller's client is never
// modified.
func NewTransport(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) (*Transport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q is not absolute", baseURL)
	}

	hc := &http.Client{Timeout: DefaultTimeout}
	if httpClient != nil {
		copied := *httpClient
		hc = &copied
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := resty.NewWithClient(hc).
		SetBaseURL(u.String()).
		SetResponseBodyLimit(defaultMaxBodySize).
		SetLogger(&restyLogger{logger: logger}).
		SetRetryCount(MaxAbortRetries).
		SetRetryWaitTime(abortRetryWait).
		SetRetryMaxWaitTime(abortRetryWait).
		AddRetryCondition(abortRetryCondition)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Transport{
		BaseURL:   u,
		UserAgent: "go-glpi/1.0",
		client:    client,
		logger:    logger,
	}, nil
}

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header
}

// Response represents an API response.
type Response struct {
	StatusCode int
	StatusText string
	Body       []byte
	Headers    http.Header
}

// IsError reports whether the service answered with a non-2xx status.
func (r *Response) IsError() bool {
	return r.StatusCode < 200 || r.StatusCode > 299
}

// Do executes req with the given header set and returns the raw response.
// Only transport failures are returned as errors; non-2xx responses are not.
func (t *Transport) Do(ctx context.Context, req *Request, headers http.Header) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", t.UserAgent).
		SetHeaderMultiValues(headers)

	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, strings.TrimLeft(req.Path, "/"))
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, defaultMaxBodySize)
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := resp.Body()

	return &Response{
		StatusCode: resp.StatusCode(),
		StatusText: statusText(resp.StatusCode(), resp.Status()),
		Body:       body,
		Headers:    resp.Header(),
	}, nil
}

// statusText strips the numeric prefix from an HTTP status line.
func statusText(code int, status string) string {
	if text, ok := strings.CutPrefix(status, fmt.Sprintf("%d ", code)); ok {
		return text
	}
	if status != "" {
		return status
	}
	return http.StatusText(code)
}

// abortRetryCondition retries aborted connections only. Cancellation by
// the caller and every HTTP status are left alone.
func abortRetryCondition(resp *resty.Response, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
		return false
	}
	return ErrorCode(err) == CodeConnAborted
}

// Transport error codes.
const (
	CodeConnAborted = "ECONNABORTED"
	CodeConnRefused = "ECONNREFUSED"
	CodeConnReset   = "ECONNRESET"
	CodeNotFound    = "ENOTFOUND"
)

// ErrorCode maps a transport failure onto a socket-style error code.
// It returns "" when the failure has no well-known code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, syscall.ECONNABORTED):
		return CodeConnAborted
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnReset
	case errors.As(err, &dnsErr):
		return CodeNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeConnAborted
	}
	return ""
}

// restyLogger adapts slog onto resty's Errorf/Warnf/Debugf logger.
type restyLogger struct {
	logger *slog.Logger
}

func (l *restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l *restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l *restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}
