package room

import "sort"

type Standing struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cash     int64  `json:"cash"`
	Holdings int64  `json:"holdings"`
}

type Score struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Worth int64  `json:"worth"`
	Rank  int    `json:"rank"`
}

// Rank values every standing at lastPrice and ranks them descending. Equal
// worth shares a rank and the following rank is skipped (1, 1, 3).
func Rank(standings []Standing, lastPrice int64) []Score {
	scores := make([]Score, 0, len(standings))
	for _, s := range standings {
		scores = append(scores, Score{ID: s.ID, Name: s.Name, Worth: s.Cash + s.Holdings*lastPrice})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Worth == scores[j].Worth {
			return scores[i].ID < scores[j].ID
		}
		return scores[i].Worth > scores[j].Worth
	})

	for i := range scores {
		if i > 0 && scores[i].Worth == scores[i-1].Worth {
			scores[i].Rank = scores[i-1].Rank
			continue
		}
		scores[i].Rank = i + 1
	}

	return scores
}
