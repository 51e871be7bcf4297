package libuc

import (
	"math/big"
	"sync"

	"github.com/cznic/mathutil"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// factorizeTrial divides out 2, 3, then candidates of the form 6k±1 up to
// sqrt(n).  Always returns a complete factorization; only selected for
// magnitudes small enough that the sqrt bound is affordable.
func factorizeTrial(n *big.Int) ucoord.FactorSet {
	if n.IsUint64() {
		return factorizeTrialU64(n.Uint64())
	}

	var factors ucoord.FactorSet
	rem := new(big.Int).Set(n)

	d := new(big.Int)
	q := new(big.Int)
	r := new(big.Int)
	dd := new(big.Int)

	divideOut := func(p uint64) {
		d.SetUint64(p)
		exp := uint32(0)
		for {
			q.QuoRem(rem, d, r)
			if r.Sign() != 0 {
				break
			}
			rem.Set(q)
			exp++
		}
		if exp > 0 {
			factors.Insert(d, exp)
		}
	}

	divideOut(2)
	divideOut(3)
	for p := uint64(5); ; p += 6 {
		dd.SetUint64(p)
		dd.Mul(dd, dd)
		if dd.Cmp(rem) > 0 {
			break
		}
		divideOut(p)
		divideOut(p + 2)
	}

	if rem.Cmp(bigIntOne) > 0 {
		factors.Insert(rem, 1)
	}
	return factors
}

func factorizeTrialU64(u uint64) ucoord.FactorSet {
	var factors ucoord.FactorSet

	divideOut := func(p uint64) {
		exp := uint32(0)
		for u%p == 0 {
			u /= p
			exp++
		}
		if exp > 0 {
			factors.Insert(new(big.Int).SetUint64(p), exp)
		}
	}

	divideOut(2)
	divideOut(3)
	for p := uint64(5); p*p <= u; p += 6 {
		divideOut(p)
		divideOut(p + 2)
	}

	if u > 1 {
		factors.Insert(new(big.Int).SetUint64(u), 1)
	}
	return factors
}

var (
	smallPrimesOnce sync.Once
	smallPrimes     []uint32 // every prime <= 65521
)

// smallPrimeTable lazily builds the full 16-bit prime list.
func smallPrimeTable() []uint32 {
	smallPrimesOnce.Do(func() {
		smallPrimes = make([]uint32, 0, 6542)
		for p := uint16(1); ; {
			next, ok := mathutil.NextPrimeUint16(p)
			if !ok {
				break
			}
			p = next
			smallPrimes = append(smallPrimes, uint32(p))
		}
	})
	return smallPrimes
}

// factorizeTrialOpt is trial division over the precomputed prime table,
// skipping every composite candidate; past the table it falls back to 6k±1.
func factorizeTrialOpt(n *big.Int) ucoord.FactorSet {
	factors, rem := stripSmallPrimes(n)
	if rem.Cmp(bigIntOne) == 0 {
		return factors
	}

	// Remaining part has no factor <= 65521.
	d := new(big.Int)
	q := new(big.Int)
	r := new(big.Int)
	dd := new(big.Int)

	divideOut := func(p uint64) {
		d.SetUint64(p)
		exp := uint32(0)
		for {
			q.QuoRem(rem, d, r)
			if r.Sign() != 0 {
				break
			}
			rem.Set(q)
			exp++
		}
		if exp > 0 {
			factors.Insert(d, exp)
		}
	}

	for p := uint64(65537); ; p += 6 {
		dd.SetUint64(p)
		dd.Mul(dd, dd)
		if dd.Cmp(rem) > 0 {
			break
		}
		divideOut(p)
		divideOut(p + 2)
	}

	if rem.Cmp(bigIntOne) > 0 {
		factors.Insert(rem, 1)
	}
	return factors
}

// stripSmallPrimes divides out every prime in the 16-bit table, returning the
// stripped terms and whatever part is left (1 when fully factored).
// The remainder, if > 1, has no prime factor <= 65521.
func stripSmallPrimes(n *big.Int) (ucoord.FactorSet, *big.Int) {
	var factors ucoord.FactorSet
	rem := new(big.Int).Set(n)

	if rem.IsUint64() {
		u := rem.Uint64()
		for _, p32 := range smallPrimeTable() {
			p := uint64(p32)
			if p*p > u {
				break
			}
			exp := uint32(0)
			for u%p == 0 {
				u /= p
				exp++
			}
			if exp > 0 {
				factors.Insert(new(big.Int).SetUint64(p), exp)
			}
		}
		if u > 1 && mathutil.IsPrimeUint64(u) {
			factors.Insert(new(big.Int).SetUint64(u), 1)
			u = 1
		}
		return factors, new(big.Int).SetUint64(u)
	}

	d := new(big.Int)
	q := new(big.Int)
	r := new(big.Int)
	for _, p32 := range smallPrimeTable() {
		d.SetUint64(uint64(p32))
		exp := uint32(0)
		for {
			q.QuoRem(rem, d, r)
			if r.Sign() != 0 {
				break
			}
			rem.Set(q)
			exp++
		}
		if exp > 0 {
			factors.Insert(d, exp)
		}
		if rem.Cmp(bigIntOne) == 0 {
			break
		}
	}
	return factors, rem
}
