package glpi

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tphakala/go-glpi/internal/api"
)

const (
	// Failed re-logins tolerated before the linear backoff kicks in.
	reloginFreeTries = 3
	// Backoff ceiling, in backoff units.
	reloginMaxBackoff = 60
)

// reloginState coordinates transparent re-authentication for one Session.
// At most one goroutine negotiates a new session at a time; the others
// wait a fixed window and replay against whatever credentials are current.
type reloginState struct {
	lock  *semaphore.Weighted
	tries atomic.Int64

	wait   time.Duration
	unit   time.Duration
	login  func(context.Context) (*api.Socket, error)
	socket *api.Socket
	logger *slog.Logger
}

func newReloginState(socket *api.Socket, login func(context.Context) (*api.Socket, error), wait, unit time.Duration, logger *slog.Logger) *reloginState {
	return &reloginState{
		lock:   semaphore.NewWeighted(1),
		wait:   wait,
		unit:   unit,
		login:  login,
		socket: socket,
		logger: logger,
	}
}

// succeeded records a healthy response.
func (r *reloginState) succeeded() {
	r.tries.Store(0)
}

// backoff returns the wait before re-login attempt number tries.
func (r *reloginState) backoff(tries int64) time.Duration {
	if tries <= reloginFreeTries {
		return 0
	}
	return time.Duration(min(tries, reloginMaxBackoff)) * r.unit
}

// reauthenticate runs after a request failed with 401. If no negotiation
// is in flight it logs in again and installs the new session headers on
// the shared socket; otherwise it waits for the poll window. The returned
// error is the login failure seen by the negotiating goroutine, or the
// context error; the lock is released either way.
func (r *reloginState) reauthenticate(ctx context.Context) error {
	if !r.lock.TryAcquire(1) {
		r.logger.DebugContext(ctx, "re-login in progress, waiting", "wait", r.wait)
		return sleep(ctx, r.wait)
	}
	defer r.lock.Release(1)

	tries := r.tries.Add(1)
	if d := r.backoff(tries); d > 0 {
		r.logger.WarnContext(ctx, "backing off before re-login", "tries", tries, "delay", d)
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}

	fresh, err := r.login(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "re-login failed", "tries", tries, "error", err)
		return err
	}

	r.socket.Configure(fresh.Headers())
	r.tries.Store(0)
	r.logger.InfoContext(ctx, "session renewed", "tries", tries)
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
