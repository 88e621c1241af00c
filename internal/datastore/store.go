// Package datastore holds the versioned, keyed data store that flags and segments are
// read from during evaluation, and written to by the data source.
package datastore

import (
	"sync"

	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
)

// DataKind identifies which collection (flags or segments) an operation applies to.
type DataKind int

// The two kinds of data the store holds.
const (
	Flags DataKind = iota
	Segments
)

func (k DataKind) String() string {
	if k == Flags {
		return "flags"
	}
	return "segments"
}

// Item is a versioned, possibly-deleted (tombstoned) piece of data: either a
// *ldmodel.FeatureFlag or a *ldmodel.Segment.
type Item interface {
	GetKey() string
	GetVersion() int
	IsDeleted() bool
}

// Store is the versioned keyed data store contract: data sources write through Init and
// Upsert, the evaluator reads through Get and All.
type Store interface {
	// Init replaces the entire contents of the store in a single atomic operation.
	Init(flags map[string]*ldmodel.FeatureFlag, segments map[string]*ldmodel.Segment) error
	// Get returns an item by kind and key, or (nil, false) if absent or tombstoned.
	Get(kind DataKind, key string) (Item, bool)
	// All returns every non-deleted item of the given kind, keyed by key.
	All(kind DataKind) map[string]Item
	// Upsert adds or updates a single item. The update is a no-op, per spec, if the
	// store already holds an item with the same key and a version greater than or
	// equal to the new item's version - including against a tombstone.
	Upsert(kind DataKind, key string, item Item) (applied bool, err error)
	// Initialized reports whether Init has been called at least once.
	Initialized() bool
}

// InMemoryStore is the default Store implementation: two lock-guarded maps, one per
// DataKind.
type InMemoryStore struct {
	mu            sync.RWMutex
	items         [2]map[string]Item
	isInitialized bool
}

// NewInMemoryStore creates an empty, uninitialized InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: [2]map[string]Item{Flags: {}, Segments: {}},
	}
}

// Init replaces the entire contents of the store.
func (s *InMemoryStore) Init(flags map[string]*ldmodel.FeatureFlag, segments map[string]*ldmodel.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flagItems := make(map[string]Item, len(flags))
	for k, f := range flags {
		flagItems[k] = f
	}
	segItems := make(map[string]Item, len(segments))
	for k, seg := range segments {
		segItems[k] = seg
	}
	s.items[Flags] = flagItems
	s.items[Segments] = segItems
	s.isInitialized = true
	return nil
}

// Get returns a single item, or (nil, false) if it is absent or a tombstone.
func (s *InMemoryStore) Get(kind DataKind, key string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[kind][key]
	if !ok || item.IsDeleted() {
		return nil, false
	}
	return item, true
}

// All returns every non-deleted item of the given kind.
func (s *InMemoryStore) All(kind DataKind) map[string]Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Item, len(s.items[kind]))
	for k, v := range s.items[kind] {
		if !v.IsDeleted() {
			out[k] = v
		}
	}
	return out
}

// Upsert adds or replaces an item, unless a same-or-newer version is already present.
func (s *InMemoryStore) Upsert(kind DataKind, key string, item Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[kind] == nil {
		s.items[kind] = make(map[string]Item)
	}
	existing, ok := s.items[kind][key]
	if ok && existing.GetVersion() >= item.GetVersion() {
		return false, nil
	}
	s.items[kind][key] = item
	return true, nil
}

// Initialized reports whether Init has ever been called.
func (s *InMemoryStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isInitialized
}

// DeletedFlag and DeletedSegment construct tombstone items: a data source represents a
// delete as an upsert of a Deleted item rather than a separate removal operation.
func DeletedFlag(key string, version int) *ldmodel.FeatureFlag {
	return &ldmodel.FeatureFlag{Key: key, Version: version, Deleted: true}
}

func DeletedSegment(key string, version int) *ldmodel.Segment {
	return &ldmodel.Segment{Key: key, Version: version, Deleted: true}
}
