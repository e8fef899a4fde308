package player

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Melodia/logger"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketPlayer = []byte("player")
	keySnapshot  = []byte("snapshot")
)

// BoltStore keeps the snapshot as one JSON record in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPlayer)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load drops records that fail to decode or carry another version.
func (s *BoltStore) Load() (*Snapshot, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPlayer).Get(keySnapshot); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != SnapshotVersion {
		logger.Warn("[Player] discarding unusable snapshot", logger.Int("version", snap.Version), logger.ErrorField(err))
		return nil, s.Clear()
	}
	return &snap, nil
}

func (s *BoltStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlayer).Put(keySnapshot, data)
	})
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlayer).Delete(keySnapshot)
	})
}
