package libuc

import (
	"math/big"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// Deterministic Miller-Rabin witness set, sufficient for all n < 2^64.
var mrWitnesses64 = []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// Witness pool for magnitudes >= 2^64.  Drawn in order, never randomly, so a
// given magnitude always tests the same way from run to run.
var mrWitnessPool = []uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
	59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113,
	127, 131, 137, 139, 149, 151, 157, 163, 167, 173,
}

// smallPrimesProduct is the product of the first 15 odd primes; a single GCD
// against it sieves out most composites before any witness exponentiation.
var smallPrimesProduct = new(big.Int).SetUint64(16294579238595022365)

const hugeBitLen = 100 // above this, sieve first and reduce the round count

// PrimeTester answers primality queries, memoizing through a PrimeCache.
type PrimeTester struct {
	cache  *PrimeCache
	cfgSrc ucoord.ConfigSource
}

func NewPrimeTester(cache *PrimeCache, cfgSrc ucoord.ConfigSource) *PrimeTester {
	if cfgSrc == nil {
		cfgSrc = ucoord.StaticConfig(ucoord.DefaultConfig)
	}
	return &PrimeTester{
		cache:  cache,
		cfgSrc: cfgSrc,
	}
}

// IsPrime reports whether n is prime.
//
// Below 10,000 the answer comes from trial division; below 2^64 from
// deterministic Miller-Rabin; above that from Miller-Rabin with a fixed
// witness sequence whose length comes from the current Config.
func (pt *PrimeTester) IsPrime(n *big.Int, opts ucoord.PrimeTestOpts) bool {
	if n.Sign() <= 0 {
		return false
	}

	if opts.UseCache && pt.cache != nil {
		if isPrime, known := pt.cache.IsKnownPrime(n); known {
			return isPrime
		}
	}

	isPrime := pt.test(n)

	if opts.UpdateCache && pt.cache != nil {
		pt.cache.Record(n, isPrime)
	}
	return isPrime
}

func (pt *PrimeTester) test(n *big.Int) bool {
	if n.IsUint64() {
		u := n.Uint64()
		if u < 10000 {
			return isPrimeSmall(u)
		}
		return millerRabin(n, mrWitnesses64)
	}

	// >= 2^64: deterministic witness sequence, length set by config.
	cfg := pt.cfgSrc.Config()
	rounds := cfg.MillerRabinRounds

	if n.BitLen() > hugeBitLen {
		// Short-circuit obvious composites before the expensive rounds.
		if n.Bit(0) == 0 {
			return false
		}
		g := new(big.Int).GCD(nil, nil, n, smallPrimesProduct)
		if g.Cmp(bigIntOne) != 0 {
			return false
		}
		rounds = cfg.MillerRabinRoundsHuge
	}

	if rounds <= 0 {
		rounds = ucoord.DefaultConfig.MillerRabinRounds
	}
	if rounds > len(mrWitnessPool) {
		rounds = len(mrWitnessPool)
	}
	return millerRabin(n, mrWitnessPool[:rounds])
}

// isPrimeSmall trial-divides by 2, 3, then integers of the form 6k±1.
func isPrimeSmall(u uint64) bool {
	if u <= 1 {
		return false
	}
	if u <= 3 {
		return true
	}
	if u%2 == 0 || u%3 == 0 {
		return false
	}
	for d := uint64(5); d*d <= u; d += 6 {
		if u%d == 0 || u%(d+2) == 0 {
			return false
		}
	}
	return true
}

// millerRabin runs the witness loop: write n-1 = 2^r * d with d odd, then for
// each witness a reject as composite on a^d != ±1 with no intermediate square
// hitting -1 within r-1 squarings.
func millerRabin(n *big.Int, witnesses []uint64) bool {
	if n.Bit(0) == 0 {
		return n.Cmp(bigIntTwo) == 0
	}
	if n.Cmp(bigIntThree) <= 0 {
		return n.Cmp(bigIntOne) > 0
	}

	nMinus1 := new(big.Int).Sub(n, bigIntOne)
	d := new(big.Int).Set(nMinus1)
	r := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		r++
	}

	x := new(big.Int)
	a := new(big.Int)
	for _, w := range witnesses {
		a.SetUint64(w)
		if a.Cmp(nMinus1) >= 0 {
			continue // witness congruent to ±1 proves nothing
		}

		x.Exp(a, d, n)
		if x.Cmp(bigIntOne) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}

		passed := false
		for i := 0; i < r-1; i++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(nMinus1) == 0 {
				passed = true
				break
			}
		}
		if !passed {
			return false
		}
	}
	return true
}

var (
	bigIntOne   = big.NewInt(1)
	bigIntTwo   = big.NewInt(2)
	bigIntThree = big.NewInt(3)
)
