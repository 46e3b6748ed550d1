package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketMetadata = []byte("metadata")

// diskStore persists the metadata cache across restarts using BoltDB.
// Only metadata round-trips through it; stream URLs are too volatile to
// be worth writing.
type diskStore struct {
	db *bolt.DB
}

func openDiskStore(dir string) (*diskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "kagura-cache.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMetadata)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &diskStore{db: db}, nil
}

// SaveMetadata replaces the persisted snapshot with the given entries.
func (d *diskStore) SaveMetadata(entries map[string]Entry[Metadata]) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketMetadata); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketMetadata)
		if err != nil {
			return err
		}
		for key, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadMetadata reads back the persisted snapshot. Undecodable entries are
// skipped rather than failing the whole load.
func (d *diskStore) LoadMetadata() (map[string]Entry[Metadata], error) {
	entries := make(map[string]Entry[Metadata])
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry Entry[Metadata]
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			entries[string(k)] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *diskStore) Close() error {
	return d.db.Close()
}
