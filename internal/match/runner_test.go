package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport/memory"
	"go.uber.org/zap/zaptest"
)

func TestRunner(t *testing.T) {
	t.Parallel()

	ctx := logging.WithLogger(context.Background(), zaptest.NewLogger(t).Sugar())
	registry := room.NewRegistry(2, clock.Real{})
	broker := memory.NewBroker(registry, clock.Real{})

	s, err := New(ctx, Config{RoomID: "RUN", ParticipantID: "a", Name: "Alice", Game: config.DefaultGame()}, broker.Connect("a"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := NewRunner(s, 5*time.Millisecond)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(runCtx) }()

	if err := r.Do(ctx, s.Create); err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var state room.State
		if err := r.Do(ctx, func(context.Context) error {
			state = s.View().State
			return nil
		}); err != nil {
			t.Fatalf("view: %v", err)
		}
		if state == room.StateWaiting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("state %s, want %s", state, room.StateWaiting)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}

	if !s.View().Left {
		t.Fatal("runner must leave the room on shutdown")
	}
	if _, ok := registry.Get("RUN"); ok {
		t.Fatal("room must be destroyed once its last member left")
	}
	if err := r.Do(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("do after stop: got %v, want %v", err, ErrStopped)
	}
}
