package libuc

import (
	"math/big"
	"testing"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

func newTester() *PrimeTester {
	return NewPrimeTester(NewPrimeCache(0), ucoord.StaticConfig(ucoord.DefaultConfig))
}

func TestMillerRabinAgainstTrialDivision(t *testing.T) {
	n := new(big.Int)
	for u := uint64(2); u < 10000; u++ {
		want := isPrimeSmall(u)
		got := millerRabin(n.SetUint64(u), mrWitnesses64)
		if got != want {
			t.Fatalf("disagree at %d: got %v", u, got)
		}
	}
}

func TestIsPrimeKnownValues(t *testing.T) {
	pt := newTester()
	opts := ucoord.DefaultPrimeTestOpts

	primes := []string{
		"97",
		"2147483647",            // 2^31 - 1
		"2305843009213693951",   // 2^61 - 1
		"618970019642690137449562111",              // 2^89 - 1
		"170141183460469231731687303715884105727", // 2^127 - 1, above the huge threshold
	}
	for _, s := range primes {
		n, _ := new(big.Int).SetString(s, 10)
		if !pt.IsPrime(n, opts) {
			t.Fatal("known prime rejected:", s)
		}
	}

	composites := []string{
		"91",                  // 7 * 13
		"561",                 // Carmichael
		"825265",              // Carmichael
		"2305843009213693953", // 2^61 + 1 = 3 * 768614336404564651...
		"170141183460469231731687303715884105725",
	}
	for _, s := range composites {
		n, _ := new(big.Int).SetString(s, 10)
		if pt.IsPrime(n, opts) {
			t.Fatal("composite accepted:", s)
		}
	}
}

func TestIsPrimeEdgeValues(t *testing.T) {
	pt := newTester()
	opts := ucoord.PrimeTestOpts{}

	for _, v := range []int64{-7, -1, 0, 1} {
		if pt.IsPrime(big.NewInt(v), opts) {
			t.Fatal("non-positive or unit value accepted:", v)
		}
	}
	if !pt.IsPrime(big.NewInt(2), opts) {
		t.Fatal("2 is prime")
	}
}

func TestIsPrimeCacheInteraction(t *testing.T) {
	cache := NewPrimeCache(0)
	pt := NewPrimeTester(cache, ucoord.StaticConfig(ucoord.DefaultConfig))

	n := big.NewInt(104729) // the 10000th prime

	// UpdateCache off leaves the cache untouched
	pt.IsPrime(n, ucoord.PrimeTestOpts{UseCache: true})
	if _, known := cache.IsKnownPrime(n); known {
		t.Fatal("cache written without UpdateCache")
	}

	pt.IsPrime(n, ucoord.DefaultPrimeTestOpts)
	if isPrime, known := cache.IsKnownPrime(n); !known || !isPrime {
		t.Fatal("cache not updated")
	}

	// A poisoned cache entry wins when UseCache is set
	cache.Record(big.NewInt(1009), false)
	if pt.IsPrime(big.NewInt(1009), ucoord.DefaultPrimeTestOpts) {
		t.Fatal("expected the cached verdict")
	}
	if !pt.IsPrime(big.NewInt(1009), ucoord.PrimeTestOpts{}) {
		t.Fatal("bypassing the cache must retest")
	}
}

func TestMillerRabinDeterministic(t *testing.T) {
	n, _ := new(big.Int).SetString("618970019642690137449562111", 10)
	for i := 0; i < 3; i++ {
		if !millerRabin(n, mrWitnessPool[:8]) {
			t.Fatal("verdict must be reproducible")
		}
	}
}
