// Package supervisor keeps a controller session up from the caller's side:
// it retries failed connects with exponential backoff and, when asked to,
// reconnects after the session reports a disconnect.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/robertof/go-gearvr-controller/device"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxRetries    = 2
	DefaultBackoffFactor = 500 * time.Millisecond
)

type Options struct {
	// Retries after the first connect attempt fails. Negative retries forever.
	MaxRetries    int
	BackoffFactor time.Duration
	// Reconnect after the session drops instead of returning.
	Reconnect bool
}

// Session is the part of session.Manager the supervisor drives.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect(connectionDead bool) error
	State() device.State
	AddListener(l device.Listener) (remove func())
}

type Supervisor struct {
	session Session
	opts    Options

	disconnected chan struct{}
}

func New(s Session, opts Options) *Supervisor {
	return &Supervisor{
		session:      s,
		opts:         opts,
		disconnected: make(chan struct{}, 1),
	}
}

func (s *Supervisor) backoff(attempt int) time.Duration {
	if s.opts.BackoffFactor <= 0 {
		return 0
	}

	shift := attempt
	if shift > 16 {
		shift = 16
	}

	backoff := s.opts.BackoffFactor << shift

	if backoff < 0 {
		backoff = DefaultBackoffFactor
	}

	return backoff
}

// ConnectWithRetries calls Connect until it succeeds, retries run out or ctx
// is done.
func (s *Supervisor) ConnectWithRetries(ctx context.Context) error {
	for attempt := 0; ; attempt += 1 {
		err := s.session.Connect(ctx)

		if err == nil {
			return nil
		}

		// a transition is already running, retrying would only race it.
		if errors.Is(err, device.ErrInvalidState) {
			return err
		}

		if s.opts.MaxRetries >= 0 && attempt >= s.opts.MaxRetries {
			log.Debug().Int("Attempts", attempt+1).Err(err).Msg("supervisor: giving up on connect")
			return err
		}

		backoff := s.backoff(attempt)

		log.Warn().
			Err(err).
			Int("Attempt", attempt+1).
			Dur("Backoff", backoff).
			Msg("supervisor: connect failed - will retry")

		select {
		case <-ctx.Done():
			log.Trace().Err(ctx.Err()).Msg("supervisor: retry aborted by context cancel")
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Run connects and then blocks until ctx is done, in which case the session is
// disconnected cleanly, or until the session drops and Reconnect is off.
func (s *Supervisor) Run(ctx context.Context) error {
	remove := s.session.AddListener(func(e device.Event) {
		if e.Kind != device.EventDisconnect {
			return
		}

		select {
		case s.disconnected <- struct{}{}:
		default:
		}
	})
	defer remove()

	for {
		if err := s.ConnectWithRetries(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			if s.session.State() == device.StateConnected {
				if err := s.session.Disconnect(false); err != nil {
					log.Warn().Err(err).Msg("supervisor: disconnect on shutdown failed")
				}
			}

			return ctx.Err()
		case <-s.disconnected:
		}

		if !s.opts.Reconnect {
			log.Info().Msg("supervisor: controller disconnected, not reconnecting")
			return nil
		}

		log.Info().Msg("supervisor: controller disconnected, reconnecting")
	}
}
