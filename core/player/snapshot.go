package player

import (
	"sync"

	"Melodia/model"
)

// SnapshotVersion is bumped whenever Snapshot changes shape. Records with any
// other version are discarded on load.
const SnapshotVersion = 1

// Snapshot is the resumable playback state.
type Snapshot struct {
	Version  int         `json:"version"`
	Song     *model.Song `json:"song"`
	Position float64     `json:"position"`
	Playing  bool        `json:"playing"`
}

// SnapshotStore persists one Snapshot.
type SnapshotStore interface {
	// Load returns nil without error when nothing usable is stored.
	Load() (*Snapshot, error)
	Save(s Snapshot) error
	Clear() error
}

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

func (m *MemoryStore) Save(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	m.saves++
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

// Saves counts Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
