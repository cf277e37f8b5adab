package api

import (
	"context"
	"maps"
	"net/http"
	"sync/atomic"

	"github.com/tphakala/go-glpi/internal/auth"
)

// credentialHeaders are owned by the profile; per-request headers cannot
// set them.
var credentialHeaders = []string{
	auth.HeaderAuthorization,
	auth.HeaderAppToken,
	auth.HeaderSessionToken,
}

// Socket binds a Transport to a header profile. The profile can be swapped
// with Configure while other goroutines hold and use the same Socket.
type Socket struct {
	transport *Transport
	profile   atomic.Pointer[http.Header]
}

// NewSocket creates a Socket sending headers over transport.
func NewSocket(transport *Transport, headers http.Header) *Socket {
	s := &Socket{transport: transport}
	s.Configure(headers)
	return s
}

// Configure replaces the whole header profile in one swap. Calls already
// in flight keep the profile they started with.
func (s *Socket) Configure(headers http.Header) {
	profile := headers.Clone()
	if profile == nil {
		profile = make(http.Header)
	}
	s.profile.Store(&profile)
}

// Headers returns a copy of the current header profile.
func (s *Socket) Headers() http.Header {
	return s.profile.Load().Clone()
}

// Transport returns the underlying transport.
func (s *Socket) Transport() *Transport {
	return s.transport
}

// Call sends req with the JSON defaults, then the request's own headers,
// then the profile, later layers winning. Credential headers only ever
// come from the profile.
func (s *Socket) Call(ctx context.Context, req *Request) (*Response, error) {
	headers := http.Header{
		"Accept":       {"application/json"},
		"Content-Type": {"application/json"},
	}
	maps.Copy(headers, req.Headers)
	for _, name := range credentialHeaders {
		headers.Del(name)
	}
	maps.Copy(headers, *s.profile.Load())

	return s.transport.Do(ctx, req, headers)
}
