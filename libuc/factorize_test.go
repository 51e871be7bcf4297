package libuc

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

func newTestEngine() *Engine {
	return NewEngine(EngineOpts{})
}

func TestFactorizeOptimalBasics(t *testing.T) {
	en := newTestEngine()

	fz, err := en.FactorizeOptimal(big.NewInt(360), ucoord.DefaultFactorizeOpts)
	if err != nil {
		t.Fatal(err)
	}
	if !fz.Complete || fz.Factors.String() != "2^3*3^2*5" {
		t.Fatal("bad factorization:", fz.Factors.String())
	}

	fz, err = en.FactorizeOptimal(big.NewInt(1), ucoord.DefaultFactorizeOpts)
	if err != nil || !fz.Complete || len(fz.Factors) != 0 {
		t.Fatal("1 must factor to the empty set")
	}

	if _, err = en.FactorizeOptimal(big.NewInt(0), ucoord.DefaultFactorizeOpts); !errors.Is(err, ucoord.ErrInvalidValue) {
		t.Fatal("0 must be rejected:", err)
	}
	if _, err = en.FactorizeOptimal(big.NewInt(-6), ucoord.DefaultFactorizeOpts); !errors.Is(err, ucoord.ErrInvalidValue) {
		t.Fatal("negative magnitudes must be rejected:", err)
	}
}

func TestFactorizeRoundtrip(t *testing.T) {
	en := newTestEngine()
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		n := big.NewInt(rnd.Int63n(1 << 40))
		if n.Sign() == 0 {
			continue
		}
		fz, err := en.FactorizeOptimal(n, ucoord.DefaultFactorizeOpts)
		if err != nil {
			t.Fatal(err)
		}
		if fz.Product().Cmp(n) != 0 {
			t.Fatalf("roundtrip fail at %s: got %s", n, fz.Product())
		}
	}
}

func TestFactorizeHomomorphism(t *testing.T) {
	en := newTestEngine()

	a := big.NewInt(2 * 2 * 3 * 7 * 10007)
	c := big.NewInt(3 * 5 * 10007)

	fa, err := en.FactorizeOptimal(a, ucoord.DefaultFactorizeOpts)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := en.FactorizeOptimal(c, ucoord.DefaultFactorizeOpts)
	if err != nil {
		t.Fatal(err)
	}

	merged := fa.Factors.Clone()
	for _, Fi := range fc.Factors {
		merged.Insert(Fi.Prime, Fi.Exp)
	}

	prod := new(big.Int).Mul(a, c)
	fprod, err := en.FactorizeOptimal(prod, ucoord.DefaultFactorizeOpts)
	if err != nil {
		t.Fatal(err)
	}
	if !fprod.Factors.IsEqual(merged) {
		t.Fatal("factorization must respect multiplication")
	}
}

func TestFactorizeCacheHits(t *testing.T) {
	en := newTestEngine()
	n := big.NewInt(987654321)

	if _, err := en.FactorizeOptimal(n, ucoord.DefaultFactorizeOpts); err != nil {
		t.Fatal(err)
	}
	before := en.FactorCache().Stats()

	if _, err := en.FactorizeOptimal(n, ucoord.DefaultFactorizeOpts); err != nil {
		t.Fatal(err)
	}
	after := en.FactorCache().Stats()

	if after.Hits != before.Hits+1 {
		t.Fatal("second lookup must hit the cache")
	}
}

func TestFactorizeValidateOption(t *testing.T) {
	en := newTestEngine()
	opts := ucoord.DefaultFactorizeOpts
	opts.ValidateFactors = true

	fz, err := en.FactorizeOptimal(big.NewInt(5591617*64), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fz.Factors.ExpOf(big.NewInt(2)) != 6 || fz.Factors.ExpOf(big.NewInt(5591617)) != 1 {
		t.Fatal("bad factors:", fz.Factors.String())
	}
}

func TestPollardRho(t *testing.T) {
	n := big.NewInt(35184372088631) // 5591617 * 6292343

	f := pollardRho(n, 0, 0)
	if f == nil {
		t.Fatal("rho found nothing")
	}
	if new(big.Int).Mod(n, f).Sign() != 0 {
		t.Fatal("rho returned a non-divisor:", f)
	}
	if f.Cmp(bigIntOne) <= 0 || f.Cmp(n) >= 0 {
		t.Fatal("rho returned a trivial divisor:", f)
	}
}

func TestPollardRhoEven(t *testing.T) {
	if f := pollardRho(big.NewInt(1 << 20), 0, 0); f.Cmp(bigIntTwo) != 0 {
		t.Fatal("even magnitudes must yield 2")
	}
}

func TestECMFindFactor(t *testing.T) {
	n := big.NewInt(1689259081189) // 1299709 * 1299721

	f := ecmFindFactor(n, ecmParams{curves: 200})
	if f == nil {
		t.Fatal("ecm found nothing")
	}
	if new(big.Int).Mod(n, f).Sign() != 0 || f.Cmp(bigIntOne) <= 0 || f.Cmp(n) >= 0 {
		t.Fatal("ecm returned a bad divisor:", f)
	}
}

func TestQuadraticSieve(t *testing.T) {
	n := big.NewInt(1000036000099) // 1000003 * 1000033

	f := qsFindFactor(n, qsParams{})
	if f == nil {
		t.Fatal("qs found nothing")
	}
	if new(big.Int).Mod(n, f).Sign() != 0 || f.Cmp(bigIntOne) <= 0 || f.Cmp(n) >= 0 {
		t.Fatal("qs returned a bad divisor:", f)
	}
}

func TestTonelliShanks(t *testing.T) {
	cases := []struct{ a, p uint64 }{
		{2, 7}, {4, 13}, {10, 13}, {56, 101}, {1030, 10009}, {44402, 100049},
	}
	for _, tc := range cases {
		if legendreU64(tc.a, tc.p) != 1 {
			t.Fatalf("%d is not a residue mod %d", tc.a, tc.p)
		}
		r := tonelliShanksU64(tc.a, tc.p)
		if r*r%tc.p != tc.a%tc.p {
			t.Fatalf("bad root %d for %d mod %d", r, tc.a, tc.p)
		}
	}
}

func TestSievePrimes(t *testing.T) {
	primes := sievePrimes(30)
	want := []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	if len(primes) != len(want) {
		t.Fatal("wrong prime count:", primes)
	}
	for i, p := range want {
		if primes[i] != p {
			t.Fatal("bad sieve output:", primes)
		}
	}
}

func TestStripSmallPrimes(t *testing.T) {
	// The prime leftover fits uint64, so the fast path finishes it in place.
	n := new(big.Int).Mul(big.NewInt(2*2*3*65521), big.NewInt(1000003))
	factors, remaining := stripSmallPrimes(n)

	if factors.ExpOf(big.NewInt(2)) != 2 || factors.ExpOf(big.NewInt(3)) != 1 || factors.ExpOf(big.NewInt(65521)) != 1 {
		t.Fatal("small primes not stripped:", factors.String())
	}
	if factors.ExpOf(big.NewInt(1000003)) != 1 || remaining.Cmp(bigIntOne) != 0 {
		t.Fatal("prime leftover not finished:", factors.String(), remaining)
	}

	// A semiprime of two >16-bit primes survives as the remainder.
	n = new(big.Int).Mul(big.NewInt(3), big.NewInt(35184372088631))
	factors, remaining = stripSmallPrimes(n)
	if factors.ExpOf(big.NewInt(3)) != 1 {
		t.Fatal("small primes not stripped:", factors.String())
	}
	if remaining.Cmp(big.NewInt(35184372088631)) != 0 {
		t.Fatal("bad remaining:", remaining)
	}
}

func TestFactorizeAll(t *testing.T) {
	en := newTestEngine()

	mags := []*big.Int{
		big.NewInt(360),
		big.NewInt(1),
		big.NewInt(104729),
		big.NewInt(35184372088631),
	}
	results, errs := en.FactorizeAll(mags, 3, ucoord.DefaultFactorizeOpts)

	if len(results) != len(mags) {
		t.Fatal("result count mismatch")
	}
	for i, fz := range results {
		if errs[i] != nil {
			t.Fatal("unexpected error at", mags[i], errs[i])
		}
		if !fz.Complete {
			t.Fatal("incomplete result at", mags[i])
		}
		if fz.Product().Cmp(mags[i]) != 0 {
			t.Fatalf("order or content mismatch at %s", mags[i])
		}
	}
}

func TestFactorizeAllReportsErrors(t *testing.T) {
	en := newTestEngine()

	mags := []*big.Int{
		big.NewInt(360),
		big.NewInt(0),
		big.NewInt(-6),
	}
	results, errs := en.FactorizeAll(mags, 2, ucoord.DefaultFactorizeOpts)

	if errs[0] != nil {
		t.Fatal("unexpected error for 360:", errs[0])
	}
	if results[0].Product().Cmp(mags[0]) != 0 {
		t.Fatal("wrong factorization for 360")
	}
	for _, i := range []int{1, 2} {
		if !errors.Is(errs[i], ucoord.ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue at %s, got %v", mags[i], errs[i])
		}
	}
}
