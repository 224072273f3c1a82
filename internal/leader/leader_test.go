package leader

import (
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/rng"
)

var t0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func TestElect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		records []Record
		want    string
		ok      bool
	}{
		{name: "empty", records: nil, ok: false},
		{name: "single", records: []Record{{ID: "b"}}, want: "b", ok: true},
		{name: "smallest", records: []Record{{ID: "m"}, {ID: "c"}, {ID: "x"}}, want: "c", ok: true},
		{name: "bytewise", records: []Record{{ID: "a"}, {ID: "B"}}, want: "B", ok: true},
		{name: "blank_ignored", records: []Record{{ID: ""}, {ID: "z"}}, want: "z", ok: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Elect(tc.records)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDedupKeepsLatest(t *testing.T) {
	t.Parallel()

	records := []Record{
		{ID: "bob", UpdatedAt: t0.Add(3 * time.Second)},
		{ID: "alice", UpdatedAt: t0},
		{ID: "bob", UpdatedAt: t0.Add(time.Second)},
		{ID: "alice", UpdatedAt: t0.Add(5 * time.Second)},
	}

	got := Dedup(records)
	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	if got[0].ID != "alice" || !got[0].UpdatedAt.Equal(t0.Add(5*time.Second)) {
		t.Fatalf("alice: got %+v", got[0])
	}
	if got[1].ID != "bob" || !got[1].UpdatedAt.Equal(t0.Add(3*time.Second)) {
		t.Fatalf("bob: got %+v", got[1])
	}
}

func TestAgreementOverShuffledSnapshots(t *testing.T) {
	t.Parallel()

	src := rng.New(13)
	ids := []string{"p-7", "p-3", "p-9", "p-3", "p-5", "p-11"}
	want, _ := Elect(Dedup(toRecords(ids)))

	for i := 0; i < 100; i++ {
		shuffled := append([]string(nil), ids...)
		for j := len(shuffled) - 1; j > 0; j-- {
			k := int(src.Uint32n(uint32(j + 1)))
			shuffled[j], shuffled[k] = shuffled[k], shuffled[j]
		}
		if got, _ := Elect(Dedup(toRecords(shuffled))); got != want {
			t.Fatalf("snapshot %v elected %q, want %q", shuffled, got, want)
		}
	}
	if want != "p-11" {
		t.Fatalf("host: got %q, want p-11", want)
	}
	if !IsHost(toRecords(ids), "p-11") || IsHost(toRecords(ids), "p-3") {
		t.Fatal("IsHost disagrees with Elect")
	}
}

func toRecords(ids []string) []Record {
	records := make([]Record, len(ids))
	for i, id := range ids {
		records[i] = Record{ID: id, UpdatedAt: t0}
	}
	return records
}
