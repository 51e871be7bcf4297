package libuc

import (
	"math/big"
	"testing"
)

func TestPrimeCacheSeeding(t *testing.T) {
	pc := NewPrimeCache(0)

	for _, p := range []int64{2, 3, 5, 7, 997} {
		isPrime, known := pc.IsKnownPrime(big.NewInt(p))
		if !known || !isPrime {
			t.Fatal("seed prime missing:", p)
		}
	}

	// 1009 > 1000 is not seeded
	if _, known := pc.IsKnownPrime(big.NewInt(1009)); known {
		t.Fatal("cache claims knowledge beyond the seed range")
	}
}

func TestPrimeCacheRecord(t *testing.T) {
	pc := NewPrimeCache(0)

	pc.Record(big.NewInt(1009), true)
	pc.Record(big.NewInt(1007), false) // 19 * 53

	if isPrime, known := pc.IsKnownPrime(big.NewInt(1009)); !known || !isPrime {
		t.Fatal("Record prime fail")
	}
	if isPrime, known := pc.IsKnownPrime(big.NewInt(1007)); !known || isPrime {
		t.Fatal("Record composite fail")
	}

	stats := pc.Stats()
	if stats.LargestKnownPrime.Cmp(big.NewInt(1009)) != 0 {
		t.Fatal("LargestKnownPrime fail:", stats.LargestKnownPrime)
	}
}

func TestPrimeCachePruneKeepsStructure(t *testing.T) {
	pc := NewPrimeCache(0)
	baseline := pc.Size()

	// Push well past the preserve floor
	for v := int64(1001); v < 4001; v += 2 {
		pc.Record(big.NewInt(v), isPrimeSmall(uint64(v)))
	}

	if err := pc.SetMaxSize(baseline); err != nil {
		t.Fatal(err)
	}
	pc.Prune()

	if pc.Size() > baseline+baseline/10 {
		t.Fatal("prune did not enforce the bound:", pc.Size())
	}

	// Entries at or below the preserve floor survive pruning
	for _, p := range []int64{2, 3, 5, 7, 11, 997} {
		if _, known := pc.IsKnownPrime(big.NewInt(p)); !known {
			t.Fatal("prune evicted a preserved prime:", p)
		}
	}
}

func TestPrimeCacheClear(t *testing.T) {
	pc := NewPrimeCache(0)
	pc.Record(big.NewInt(1009), true)
	pc.Record(big.NewInt(2003), true)

	pc.Clear(big.NewInt(2000))

	if _, known := pc.IsKnownPrime(big.NewInt(2003)); known {
		t.Fatal("Clear left an entry above the threshold")
	}
	if _, known := pc.IsKnownPrime(big.NewInt(1009)); !known {
		t.Fatal("Clear evicted an entry below the threshold")
	}

	stats := pc.Stats()
	if stats.LargestKnownPrime.Cmp(big.NewInt(1009)) != 0 {
		t.Fatal("largest known prime not recomputed:", stats.LargestKnownPrime)
	}
}

func TestPrimeCacheBadMaxSize(t *testing.T) {
	pc := NewPrimeCache(0)
	if pc.SetMaxSize(-1) == nil {
		t.Fatal("negative max size must error")
	}
}
