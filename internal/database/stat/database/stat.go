package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/stockrush/internal/cache"
	"github.com/bloops-games/stockrush/internal/database"
	"github.com/bloops-games/stockrush/internal/database/stat/model"
	"github.com/bloops-games/stockrush/internal/strpool"
	bolt "go.etcd.io/bbolt"
)

const prefix = "stat"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

// DB keeps one bucket of match results per participant.
type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func (db *DB) bucket(participantID string) string {
	return strpool.Join(':', prefix, participantID)
}

func (db *DB) FetchProfileStat(participantID string) (model.AggregationStat, error) {
	var agg model.AggregationStat

	results, err := db.FetchByParticipant(participantID)
	if err != nil {
		return agg, fmt.Errorf("fetch by participant: %w", err)
	}

	var sum int64
	for i, r := range results {
		if i == 0 || r.Worth > agg.BestWorth {
			agg.BestWorth = r.Worth
		}
		if i == 0 || r.Worth < agg.WorstWorth {
			agg.WorstWorth = r.Worth
		}
		if agg.BestRank == 0 || r.Rank < agg.BestRank {
			agg.BestRank = r.Rank
		}
		if r.Rank == 1 {
			agg.Wins++
		}
		sum += r.Worth
		agg.Count++
	}

	if agg.Count > 0 {
		agg.AvgWorth = sum / int64(agg.Count)
	}

	return agg, nil
}

func (db *DB) FetchByParticipant(participantID string) ([]model.Result, error) {
	key := db.bucket(participantID)
	if db.cache != nil {
		if v, ok := db.cache.Get(key); ok {
			return v.([]model.Result), nil
		}
	}

	var list []model.Result
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return ErrNotFound
		}

		return b.ForEach(func(k, v []byte) error {
			var r model.Result
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("json unmarshal: %w", err)
			}
			list = append(list, r)
			return nil
		})
	}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(key, list)
	}

	return list, nil
}

func (db *DB) Add(r model.Result) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	key := db.bucket(r.ParticipantID)
	b, err := tx.CreateBucketIfNotExists([]byte(key))
	if err != nil {
		return fmt.Errorf("can not create bucket %s: %w", key, err)
	}

	binaryID, err := r.ID.MarshalBinary()
	if err != nil {
		return fmt.Errorf("uuid binary: %w", err)
	}

	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(binaryID, bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(key)
	}

	return nil
}
