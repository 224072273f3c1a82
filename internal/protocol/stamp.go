package protocol

// Stamp orders authoritative series updates: a later ts wins, and on equal ts
// the lexicographically smaller author wins.
type Stamp struct {
	TS     int64
	Author string
}

func (s Stamp) Zero() bool {
	return s.TS == 0 && s.Author == ""
}

// Newer reports whether s replaces cur.
func (s Stamp) Newer(cur Stamp) bool {
	if cur.Zero() {
		return true
	}
	if s.TS != cur.TS {
		return s.TS > cur.TS
	}
	return s.Author < cur.Author
}
