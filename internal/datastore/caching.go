package datastore

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
)

// StaleValuesPolicy controls what a CachingStore does with a cached value once its TTL
// has expired.
type StaleValuesPolicy int

const (
	// Evict removes the entry on expiry; the next read is a synchronous reload.
	Evict StaleValuesPolicy = iota
	// Refresh blocks the single caller whose read discovers the expired entry while it
	// reloads.
	Refresh
	// RefreshAsync returns the stale value immediately and reloads in the background,
	// deduplicating concurrent reloads of the same key with a singleflight group.
	RefreshAsync
)

// CachingStore wraps a Store with a bounded TTL cache in front of Get and All, per the
// chosen StaleValuesPolicy. Upsert and Init always write through to the underlying
// Store, and update the cache accordingly, so the cache can never return data older
// than the last write this process made.
type CachingStore struct {
	underlying Store
	policy     StaleValuesPolicy
	ttl        time.Duration
	cache      *gocache.Cache
	group      singleflight.Group
}

// NewCachingStore wraps underlying with a TTL cache. A ttl of zero disables caching
// entirely and every call passes straight through.
func NewCachingStore(underlying Store, ttl time.Duration, policy StaleValuesPolicy) *CachingStore {
	cs := &CachingStore{underlying: underlying, policy: policy, ttl: ttl}
	if ttl > 0 {
		cs.cache = gocache.New(ttl, 5*time.Minute)
	}
	return cs
}

func itemCacheKey(kind DataKind, key string) string {
	return kind.String() + ":" + key
}

func allCacheKey(kind DataKind) string {
	return "all:" + kind.String()
}

// Init replaces the store's contents and primes the cache with the new data.
func (cs *CachingStore) Init(flags map[string]*ldmodel.FeatureFlag, segments map[string]*ldmodel.Segment) error {
	if err := cs.underlying.Init(flags, segments); err != nil {
		return err
	}
	if cs.cache == nil {
		return nil
	}
	cs.cache.Flush()
	for kind := Flags; kind <= Segments; kind++ {
		cs.cache.SetDefault(allCacheKey(kind), cs.underlying.All(kind))
	}
	return nil
}

// Get returns an item, consulting the cache according to the configured
// StaleValuesPolicy on expiry.
func (cs *CachingStore) Get(kind DataKind, key string) (Item, bool) {
	if cs.cache == nil {
		return cs.underlying.Get(kind, key)
	}

	cacheKey := itemCacheKey(kind, key)

	if cs.policy == RefreshAsync {
		if raw, expiry, ok := cs.cache.GetWithExpiration(cacheKey); ok {
			entry, _ := raw.(cacheEntry)
			if time.Now().Before(expiry) {
				return entry.item, entry.present
			}
			// Stale: return it immediately, kick off a deduplicated background reload.
			go cs.group.Do(cacheKey, func() (interface{}, error) {
				cs.reloadItem(kind, key, cacheKey)
				return nil, nil
			})
			return entry.item, entry.present
		}
		return cs.reloadItem(kind, key, cacheKey)
	}

	if raw, ok := cs.cache.Get(cacheKey); ok {
		entry, _ := raw.(cacheEntry)
		return entry.item, entry.present
	}

	if cs.policy == Refresh {
		// Dedupe concurrent reloads of the same key onto a single underlying Get call,
		// rather than every waiting caller hitting the underlying store.
		v, _, _ := cs.group.Do(cacheKey, func() (interface{}, error) {
			item, ok := cs.reloadItem(kind, key, cacheKey)
			return cacheEntry{item: item, present: ok}, nil
		})
		entry, _ := v.(cacheEntry)
		return entry.item, entry.present
	}
	return cs.reloadItem(kind, key, cacheKey)
}

type cacheEntry struct {
	item    Item
	present bool
}

func (cs *CachingStore) reloadItem(kind DataKind, key, cacheKey string) (Item, bool) {
	item, ok := cs.underlying.Get(kind, key)
	cs.cache.SetDefault(cacheKey, cacheEntry{item: item, present: ok})
	return item, ok
}

// All returns every non-deleted item of the given kind, consulting the cache.
func (cs *CachingStore) All(kind DataKind) map[string]Item {
	if cs.cache == nil {
		return cs.underlying.All(kind)
	}
	cacheKey := allCacheKey(kind)

	if raw, ok := cs.cache.Get(cacheKey); ok {
		if items, ok := raw.(map[string]Item); ok {
			return items
		}
	}
	items := cs.underlying.All(kind)
	cs.cache.SetDefault(cacheKey, items)
	return items
}

// Upsert writes through to the underlying store and, on success, updates the cache
// directly rather than invalidating it - so an Evict-policy cache never serves a value
// older than this process's own last write.
func (cs *CachingStore) Upsert(kind DataKind, key string, item Item) (bool, error) {
	applied, err := cs.underlying.Upsert(kind, key, item)
	if err != nil || cs.cache == nil {
		return applied, err
	}
	if applied {
		cs.cache.SetDefault(itemCacheKey(kind, key), cacheEntry{item: item, present: !item.IsDeleted()})
	}
	cs.cache.Delete(allCacheKey(kind))
	return applied, nil
}

// Initialized reports whether the underlying store has been initialized.
func (cs *CachingStore) Initialized() bool {
	return cs.underlying.Initialized()
}
