package match

import (
	"context"
	"errors"
	"time"
)

var ErrStopped = errors.New("session runner stopped")

const leaveTimeout = 5 * time.Second

type command struct {
	fn   func(ctx context.Context) error
	errc chan error
}

// Runner drives a Session from one goroutine: queued transport events,
// scheduler ticks and caller commands are serialized through Run.
type Runner struct {
	session    *Session
	resolution time.Duration
	commands   chan command
	done       chan struct{}
}

func NewRunner(s *Session, resolution time.Duration) *Runner {
	if resolution <= 0 {
		resolution = 50 * time.Millisecond
	}
	return &Runner{
		session:    s,
		resolution: resolution,
		commands:   make(chan command),
		done:       make(chan struct{}),
	}
}

// Run blocks until ctx is done, then leaves the room.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.resolution)
	defer ticker.Stop()

	s := r.session
	for {
		select {
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			defer cancel()
			if err := s.Leave(leaveCtx); err != nil {
				s.logger.Warnf("leave on shutdown: %v", err)
			}
			return nil
		case fn := <-s.Events():
			fn(ctx)
		case cmd := <-r.commands:
			cmd.errc <- cmd.fn(ctx)
		case <-ticker.C:
			s.Advance(s.clock.Now())
		}
	}
}

// Do runs fn on the session loop and returns its error.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, errc: make(chan error, 1)}

	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.errc:
		return err
	case <-r.done:
		select {
		case err := <-cmd.errc:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
