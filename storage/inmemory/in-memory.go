package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage"
)

type entry struct {
	Key       []string        `json:"key"`
	Value     json.RawMessage `json:"value,omitempty"`
	Tombstone bool            `json:"tombstone,omitempty"`
}

// MemStore is the in-process store backend: a mutex-guarded map with
// tombstones and optional JSON file persistence.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]map[string]entry // prefix -> dotted key -> entry
}

func NewMemStore(ctx context.Context) *MemStore {
	return &MemStore{
		data: make(map[string]map[string]entry),
	}
}

func (store *MemStore) Get(ctx context.Context, p storage.Prefix, key []string) ([]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	e, ok := store.data[p.String()][model.JoinName(key)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if e.Tombstone {
		return nil, errs.ErrTombstoned
	}
	return e.Value, nil
}

func (store *MemStore) Put(ctx context.Context, p storage.Prefix, key []string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	bucket, ok := store.data[p.String()]
	if !ok {
		bucket = make(map[string]entry)
		store.data[p.String()] = bucket
	}
	bucket[model.JoinName(key)] = entry{Key: key, Value: append([]byte(nil), value...)}
	return nil
}

func (store *MemStore) Delete(ctx context.Context, p storage.Prefix, key []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	bucket, ok := store.data[p.String()]
	if !ok {
		bucket = make(map[string]entry)
		store.data[p.String()] = bucket
	}
	bucket[model.JoinName(key)] = entry{Key: key, Tombstone: true}
	return nil
}

func (store *MemStore) Fold(ctx context.Context, p storage.Prefix, pattern []string, fn storage.FoldFunc) error {
	store.mu.RLock()
	matched := make([]entry, 0)
	for _, e := range store.data[p.String()] {
		if e.Tombstone {
			continue
		}
		if model.MatchName(pattern, e.Key) {
			matched = append(matched, e)
		}
	}
	store.mu.RUnlock()

	// fn runs outside the lock so it may call back into the store
	for _, e := range matched {
		if err := fn(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// SaveToFile persists the whole store, tombstones included, as JSON.
func (store *MemStore) SaveToFile(filePath string) error {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if len(store.data) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(store.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadFromFile restores previously saved records. A missing file is not an
// error: a fresh node simply starts empty.
func (store *MemStore) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var restored map[string]map[string]entry
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.data = restored
	if store.data == nil {
		store.data = make(map[string]map[string]entry)
	}
	return nil
}
