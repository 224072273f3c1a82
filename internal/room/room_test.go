package room

import (
	"errors"
	"testing"

	"github.com/bloops-games/stockrush/internal/apperr"
)

func states(changes []Change) []State {
	var out []State
	for _, c := range changes {
		if c.Kind == ChangeState {
			out = append(out, c.To)
		}
	}
	return out
}

func TestLifecycleToMatched(t *testing.T) {
	t.Parallel()

	r := New("ABC123", 2)
	if r.State() != StateEmpty {
		t.Fatalf("initial state: got %s", r.State())
	}

	changes, err := r.Join(Member{ID: "a", Name: "alice"})
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	if r.State() != StateWaiting {
		t.Fatalf("after first join: got %s, want WAITING", r.State())
	}
	if got := states(changes); len(got) != 1 || got[0] != StateWaiting {
		t.Fatalf("transitions: got %v", got)
	}

	if _, err := r.Join(Member{ID: "b", Name: "bob"}); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if r.State() != StateReadyCheck {
		t.Fatalf("at capacity: got %s, want READY_CHECK", r.State())
	}

	if _, err := r.SetReady("a", true); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if r.State() != StateReadyCheck {
		t.Fatalf("one ready: got %s, want READY_CHECK", r.State())
	}

	changes, err = r.SetReady("b", true)
	if err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if r.State() != StateMatched {
		t.Fatalf("all ready: got %s, want MATCHED", r.State())
	}
	if got := states(changes); len(got) != 1 || got[0] != StateMatched {
		t.Fatalf("transitions: got %v", got)
	}

	if _, err := r.Start("b", "a"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("non-host start: got %v, want validation error", err)
	}
	if _, err := r.Start("a", "a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.State() != StateActive {
		t.Fatalf("after start: got %s, want ACTIVE", r.State())
	}

	if _, err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if r.State() != StateFinished {
		t.Fatalf("after finish: got %s, want FINISHED", r.State())
	}
	if _, err := r.Finish(); err == nil {
		t.Fatal("finishing twice must fail")
	}
}

func TestReadyBelowCapacity(t *testing.T) {
	t.Parallel()

	r := New("ROOM4", 4)
	_, _ = r.Join(Member{ID: "a", Name: "alice"})
	_, _ = r.Join(Member{ID: "b", Name: "bob"})
	if r.State() != StateWaiting {
		t.Fatalf("got %s, want WAITING", r.State())
	}

	if _, err := r.SetReady("b", true); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if r.State() != StateReadyCheck {
		t.Fatalf("got %s, want READY_CHECK", r.State())
	}
	if _, err := r.Start("a", "a"); err == nil {
		t.Fatal("start before matched must fail")
	}
}

func TestJoinFullRoom(t *testing.T) {
	t.Parallel()

	r := New("ABC", 2)
	_, _ = r.Join(Member{ID: "a", Name: "alice"})
	_, _ = r.Join(Member{ID: "b", Name: "bob"})

	before := r.State()
	if _, err := r.Join(Member{ID: "c", Name: "carol"}); !errors.Is(err, apperr.ErrCapacity) {
		t.Fatalf("got %v, want capacity error", err)
	}
	if r.State() != before || r.Len() != 2 {
		t.Fatal("rejected join changed the room")
	}

	if _, err := r.Join(Member{ID: "a", Name: "alice2"}); err != nil {
		t.Fatalf("rejoin of a member: %v", err)
	}
	if m, _ := r.Member("a"); m.Name != "alice2" {
		t.Fatalf("rejoin must update name, got %q", m.Name)
	}
}

func TestDuplicateNameBlocksReady(t *testing.T) {
	t.Parallel()

	r := New("ABC", 2)
	_, _ = r.Join(Member{ID: "a", Name: "Trader"})
	_, _ = r.Join(Member{ID: "b", Name: "trader"})

	if _, err := r.SetReady("b", true); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("got %v, want conflict error", err)
	}
	if _, err := r.SetReady("b", false); err != nil {
		t.Fatalf("unready must be allowed: %v", err)
	}
	if _, err := r.SetReady("zed", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("got %v, want not found error", err)
	}
}

func TestLeaveKeepsStateUntilEmpty(t *testing.T) {
	t.Parallel()

	r := New("ABC", 2)
	_, _ = r.Join(Member{ID: "a", Name: "alice", Ready: true})
	_, _ = r.Join(Member{ID: "b", Name: "bob", Ready: true})
	if r.State() != StateMatched {
		t.Fatalf("got %s, want MATCHED", r.State())
	}

	changes := r.Leave("b")
	if len(changes) != 1 || changes[0].Kind != ChangeLeft {
		t.Fatalf("leave changes: got %+v", changes)
	}
	if r.State() != StateMatched {
		t.Fatalf("after leave: got %s, want MATCHED", r.State())
	}
	if _, err := r.Start("a", "a"); err == nil {
		t.Fatal("start with a missing member must fail")
	}

	if r.Leave("nobody") != nil {
		t.Fatal("leaving a non-member must be a no-op")
	}

	r.Leave("a")
	if r.State() != StateEmpty || r.Len() != 0 {
		t.Fatalf("after last leave: got %s with %d members", r.State(), r.Len())
	}
}

func TestSync(t *testing.T) {
	t.Parallel()

	r := New("ABC", 2)

	changes := r.Sync([]Member{{ID: "b", Name: "bob", Ready: true}, {ID: "a", Name: "alice", Ready: true}})
	if r.State() != StateMatched {
		t.Fatalf("full ready snapshot: got %s, want MATCHED", r.State())
	}
	if got := states(changes); len(got) != 3 {
		t.Fatalf("expected WAITING, READY_CHECK, MATCHED, got %v", got)
	}
	if changes[0].Kind != ChangeJoined || changes[0].Member != "a" {
		t.Fatalf("joins must come first in id order, got %+v", changes[0])
	}

	if r.Sync([]Member{{ID: "a", Name: "alice", Ready: true}, {ID: "b", Name: "bob", Ready: true}}) != nil {
		t.Fatal("identical snapshot must not report changes")
	}

	changes = r.Sync([]Member{{ID: "a", Name: "alice", Ready: true}})
	if len(changes) != 1 || changes[0].Kind != ChangeLeft || changes[0].Member != "b" {
		t.Fatalf("leave changes: got %+v", changes)
	}

	changes = r.Sync(nil)
	if r.State() != StateEmpty {
		t.Fatalf("empty snapshot: got %s", r.State())
	}
	if got := states(changes); len(got) != 1 || got[0] != StateEmpty {
		t.Fatalf("transitions: got %v", got)
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	scores := Rank([]Standing{
		{ID: "a", Cash: 1000, Holdings: 1},
		{ID: "b", Cash: 500, Holdings: 2},
		{ID: "c", Cash: 3000, Holdings: 0},
		{ID: "d", Cash: 100, Holdings: 0},
	}, 500)

	want := []struct {
		id    string
		worth int64
		rank  int
	}{
		{"c", 3000, 1},
		{"a", 1500, 2},
		{"b", 1500, 2},
		{"d", 100, 4},
	}

	for i, w := range want {
		got := scores[i]
		if got.ID != w.id || got.Worth != w.worth || got.Rank != w.rank {
			t.Fatalf("place %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestForce(t *testing.T) {
	t.Parallel()

	r := New("ABC", 2)
	_, _ = r.Join(Member{ID: "a", Name: "alice"})

	changes := r.Force(StateActive)
	if len(changes) != 1 || changes[0].From != StateWaiting || changes[0].To != StateActive {
		t.Fatalf("got %+v", changes)
	}
	if r.Force(StateActive) != nil {
		t.Fatal("forcing the current state must be a no-op")
	}
}
