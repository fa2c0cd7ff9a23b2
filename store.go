// FILE: scray/properties/store.go
package properties

import (
	"maps"
	"sync"
)

// Store is a backing source of raw property values. The registry calls Init
// exactly once, when the store is pushed, and Get for every lookup.
type Store interface {
	// Init prepares the store, it may perform I/O.
	Init() error
	// Get returns the raw value held for d, if any. It must not have side
	// effects visible to the registry.
	Get(d Descriptor) (any, bool)
}

// WritableStore is a Store that also accepts values.
type WritableStore interface {
	Store
	// Put stores a storage-format value for d.
	Put(d Descriptor, value any) error
}

// MemoryStore is a writable in-process store.
type MemoryStore struct {
	name   string
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStore creates a memory store, optionally seeded with values keyed
// by property name. The seed map is copied.
func NewMemoryStore(name string, seed map[string]any) *MemoryStore {
	values := make(map[string]any, len(seed))
	maps.Copy(values, seed)
	return &MemoryStore{name: name, values: values}
}

// Init is a no-op.
func (m *MemoryStore) Init() error { return nil }

// Get returns the value stored under d's name.
func (m *MemoryStore) Get(d Descriptor) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[d.Name()]
	return v, ok
}

// Put stores value under d's name.
func (m *MemoryStore) Put(d Descriptor, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[d.Name()] = value
	return nil
}

// Delete removes the value stored under name.
func (m *MemoryStore) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
}

// Values returns a copy of the stored values.
func (m *MemoryStore) Values() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}

func (m *MemoryStore) String() string {
	if m.name == "" {
		return "memory"
	}
	return "memory:" + m.name
}
