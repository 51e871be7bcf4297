package libuc

import (
	"math/big"
	"sync"

	"github.com/cznic/mathutil"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// preserveFloor: entries at or below this magnitude are structural and are
// never evicted, no matter how full the cache gets.
const preserveFloor = 1000

// PrimeCache memoizes primality results keyed by magnitude.
//
// The store is an ordered tree so the eviction policy and the
// largestKnownPrime recompute are both plain ordered scans.  All methods are
// safe for concurrent use.
type PrimeCache struct {
	mu                sync.Mutex
	tree              *redblacktree.Tree // *big.Int -> bool
	maxSize           int
	largestKnownPrime *big.Int
	largestChecked    *big.Int
}

func bigCmp(a, b interface{}) int {
	return a.(*big.Int).Cmp(b.(*big.Int))
}

// NewPrimeCache returns a cache seeded with all primes <= 1000.
func NewPrimeCache(maxSize int) *PrimeCache {
	if maxSize <= 0 {
		maxSize = ucoord.DefaultConfig.PrimeCacheMaxSize
	}
	pc := &PrimeCache{
		tree:    redblacktree.NewWith(bigCmp),
		maxSize: maxSize,
	}

	for p := uint16(1); ; {
		next, ok := mathutil.NextPrimeUint16(p)
		if !ok || next > preserveFloor {
			break
		}
		p = next
		pc.tree.Put(big.NewInt(int64(p)), true)
		pc.largestKnownPrime = big.NewInt(int64(p))
	}
	pc.largestChecked = new(big.Int).Set(pc.largestKnownPrime)

	return pc
}

// IsKnownPrime reports the cached primality of n.
// known is false when n has never been recorded.
func (pc *PrimeCache) IsKnownPrime(n *big.Int) (isPrime, known bool) {
	pc.mu.Lock()
	v, found := pc.tree.Get(n)
	pc.mu.Unlock()
	if !found {
		return false, false
	}
	return v.(bool), true
}

// Record stores the primality of n, pruning if the cache has outgrown its
// allowed slack (10% over max).
func (pc *PrimeCache) Record(n *big.Int, isPrime bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, found := pc.tree.Get(n); !found {
		pc.tree.Put(new(big.Int).Set(n), isPrime)
	}

	if pc.largestChecked.Cmp(n) < 0 {
		pc.largestChecked.Set(n)
	}
	if isPrime && pc.largestKnownPrime.Cmp(n) < 0 {
		pc.largestKnownPrime.Set(n)
	}

	if pc.tree.Size() > pc.maxSize+pc.maxSize/10 {
		pc.pruneLocked()
	}
}

// Prune shrinks the cache to 80% of its configured max.
//
// Entries <= preserveFloor are never removed.  Among removable entries,
// composites go before primes, and larger magnitudes go before smaller ones.
func (pc *PrimeCache) Prune() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.pruneLocked()
}

func (pc *PrimeCache) pruneLocked() {
	target := (pc.maxSize * 4) / 5
	floor := big.NewInt(preserveFloor)

	for pass := 0; pass < 2 && pc.tree.Size() > target; pass++ {
		evictPrimes := pass == 1

		var victims []*big.Int
		it := pc.tree.Iterator()
		it.End()
		for it.Prev() {
			if pc.tree.Size()-len(victims) <= target {
				break
			}
			n := it.Key().(*big.Int)
			if n.Cmp(floor) <= 0 {
				break // everything below is preserved
			}
			if it.Value().(bool) == evictPrimes {
				victims = append(victims, n)
			}
		}
		for _, n := range victims {
			pc.tree.Remove(n)
		}
	}

	// Eviction may have discarded the record holder.
	pc.recomputeLargestPrimeLocked()
}

func (pc *PrimeCache) recomputeLargestPrimeLocked() {
	it := pc.tree.Iterator()
	it.End()
	for it.Prev() {
		if it.Value().(bool) {
			pc.largestKnownPrime = new(big.Int).Set(it.Key().(*big.Int))
			return
		}
	}
	pc.largestKnownPrime = big.NewInt(0)
}

// Clear removes every entry strictly greater than thresholdExclusive.
// A nil threshold clears everything above the preservation floor.
func (pc *PrimeCache) Clear(thresholdExclusive *big.Int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if thresholdExclusive == nil {
		thresholdExclusive = big.NewInt(preserveFloor)
	}

	var victims []*big.Int
	it := pc.tree.Iterator()
	it.End()
	for it.Prev() {
		n := it.Key().(*big.Int)
		if n.Cmp(thresholdExclusive) <= 0 {
			break
		}
		victims = append(victims, n)
	}
	for _, n := range victims {
		pc.tree.Remove(n)
	}

	pc.recomputeLargestPrimeLocked()
	if pc.largestChecked.Cmp(thresholdExclusive) > 0 {
		pc.largestChecked = new(big.Int).Set(thresholdExclusive)
	}
}

// SetMaxSize adjusts the cache bound, pruning immediately if already over.
func (pc *PrimeCache) SetMaxSize(n int) error {
	if n <= 0 {
		return errors.Wrapf(ucoord.ErrBadCacheSize, "got %d", n)
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.maxSize = n
	if pc.tree.Size() > n {
		pc.pruneLocked()
	}
	return nil
}

func (pc *PrimeCache) Size() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.tree.Size()
}

func (pc *PrimeCache) Stats() ucoord.PrimeCacheStats {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return ucoord.PrimeCacheStats{
		Size:              pc.tree.Size(),
		LargestKnownPrime: new(big.Int).Set(pc.largestKnownPrime),
		LargestChecked:    new(big.Int).Set(pc.largestChecked),
	}
}
