package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/stockrush/internal/database"
	"github.com/bloops-games/stockrush/internal/database/session/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "sessions"

var ErrEntryNotFound = fmt.Errorf("not found")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Fetch(roomID string) (model.Session, error) {
	var s model.Session

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return ErrEntryNotFound
		}

		bytes := b.Get([]byte(roomID))
		if bytes == nil {
			return ErrEntryNotFound
		}

		if err := json.Unmarshal(bytes, &s); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return s, ErrEntryNotFound
		}
		return s, fmt.Errorf("view transaction error: %w", err)
	}

	return s, nil
}

func (db *DB) FetchAll() ([]model.Session, error) {
	var list []model.Session

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var s model.Session
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("json unmarshal: %w", err)
			}
			list = append(list, s)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) Put(s model.Session) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b, err := tx.CreateBucketIfNotExists([]byte(prefix))
	if err != nil {
		return fmt.Errorf("can not create bucket: %w", err)
	}

	bytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put([]byte(s.RoomID), bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Delete removes the record of roomID. Missing records are not an error.
func (db *DB) Delete(roomID string) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(prefix))
	if b == nil {
		return nil
	}

	if err := b.Delete([]byte(roomID)); err != nil {
		return fmt.Errorf("delete from bucket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
