package libuc

import (
	"container/list"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// FactorCache memoizes completed (and partial) factorizations by magnitude.
//
// Unlike the prime cache there is no structural-preservation rule, so plain
// LRU eviction is enough.  Persistence goes through an opaque Storage; only
// complete factorizations are written out.
type FactorCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recent
	maxSize int
	hits    int64
	misses  int64
	persist bool
	storage ucoord.Storage
}

type cacheEntry struct {
	key string
	fz  ucoord.Factorization
}

func NewFactorCache(maxSize int, storage ucoord.Storage) *FactorCache {
	if maxSize <= 0 {
		maxSize = ucoord.DefaultConfig.FactorCacheMaxSize
	}
	return &FactorCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		persist: storage != nil,
		storage: storage,
	}
}

func cacheKey(n *big.Int) string {
	return string(n.Bytes())
}

// Get returns the cached factorization of magnitude n, if present.
func (fc *FactorCache) Get(n *big.Int) (ucoord.Factorization, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	elem, found := fc.entries[cacheKey(n)]
	if !found {
		fc.misses++
		return ucoord.Factorization{}, false
	}
	fc.hits++
	fc.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).fz, true
}

// Set stores the factorization of magnitude n, evicting the least recently
// used entries past the size bound.
func (fc *FactorCache) Set(n *big.Int, fz ucoord.Factorization) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	key := cacheKey(n)
	if elem, exists := fc.entries[key]; exists {
		elem.Value.(*cacheEntry).fz = fz
		fc.lru.MoveToFront(elem)
		return
	}

	fc.entries[key] = fc.lru.PushFront(&cacheEntry{key: key, fz: fz})

	for fc.lru.Len() > fc.maxSize {
		oldest := fc.lru.Back()
		fc.lru.Remove(oldest)
		delete(fc.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (fc *FactorCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries = make(map[string]*list.Element)
	fc.lru.Init()
	fc.hits = 0
	fc.misses = 0
}

func (fc *FactorCache) Size() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}

func (fc *FactorCache) Stats() ucoord.CacheStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	stats := ucoord.CacheStats{
		Size:   fc.lru.Len(),
		Hits:   fc.hits,
		Misses: fc.misses,
	}
	if total := fc.hits + fc.misses; total > 0 {
		stats.HitRate = float64(fc.hits) / float64(total)
	}
	return stats
}

func (fc *FactorCache) SetMaxSize(n int) error {
	if n <= 0 {
		return errors.Wrapf(ucoord.ErrBadCacheSize, "got %d", n)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.maxSize = n
	for fc.lru.Len() > fc.maxSize {
		oldest := fc.lru.Back()
		fc.lru.Remove(oldest)
		delete(fc.entries, oldest.Value.(*cacheEntry).key)
	}
	return nil
}

// SetPersistence attaches (or detaches, with nil) the Storage backing
// SaveToStorage / LoadFromStorage.
func (fc *FactorCache) SetPersistence(storage ucoord.Storage) {
	fc.mu.Lock()
	fc.storage = storage
	fc.persist = storage != nil
	fc.mu.Unlock()
}

// SaveToStorage writes every complete factorization to the attached Storage
// as magnitude bytes -> FactorSet LSM encoding.
func (fc *FactorCache) SaveToStorage() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if !fc.persist || fc.storage == nil {
		return nil
	}

	saved := 0
	var valBuf [256]byte
	for elem := fc.lru.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*cacheEntry)
		if !entry.fz.Complete {
			continue
		}
		val := entry.fz.Factors.AppendLSM(valBuf[:0])
		if err := fc.storage.Put([]byte(entry.key), val); err != nil {
			return err
		}
		saved++
	}
	klog.V(2).Infof("factor cache: saved %d entries", saved)
	return nil
}

// LoadFromStorage replays every persisted factorization into the cache.
// Undecodable entries are skipped, not fatal.
func (fc *FactorCache) LoadFromStorage() error {
	fc.mu.Lock()
	persist, storage := fc.persist, fc.storage
	fc.mu.Unlock()

	if !persist || storage == nil {
		return nil
	}

	loaded := 0
	err := storage.Scan(func(key, val []byte) error {
		var factors ucoord.FactorSet
		if err := factors.InitFromLSM(val); err != nil {
			klog.Warningf("factor cache: skipping bad entry: %v", err)
			return nil
		}
		n := new(big.Int).SetBytes(key)
		fc.Set(n, ucoord.Factorization{
			Factors:  factors,
			Complete: true,
		})
		loaded++
		return nil
	})
	if err != nil {
		return err
	}
	klog.V(2).Infof("factor cache: loaded %d entries", loaded)
	return nil
}
