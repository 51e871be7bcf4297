package libuc

import (
	"math/big"
	mrand "math/rand"

	"github.com/zeebo/xxh3"
)

// Lenstra's elliptic-curve method over random Weierstrass curves
// y^2 = x^3 + ax + b mod n.  Every point addition probes a modular inverse;
// an inverse that fails to exist surrenders a gcd with n, which is exactly
// the factor we're hunting.  Tuned for factors in the tens of digits.

type ecmParams struct {
	curves     int
	b1, b2     int64
	memCeiling int // max precomputed stage-2 gap points
}

type ecPoint struct {
	x, y *big.Int
	inf  bool
}

type ecCurve struct {
	n, a *big.Int

	// set when a failed inversion exposes a nontrivial gcd with n
	factor *big.Int
}

var ecInfinity = ecPoint{inf: true}

// add computes P + Q, recording a discovered factor (or giving up on the
// curve when the gcd degenerates to n itself).
func (cv *ecCurve) add(P, Q ecPoint) ecPoint {
	if cv.factor != nil {
		return ecInfinity
	}
	if P.inf {
		return Q
	}
	if Q.inf {
		return P
	}

	num := new(big.Int)
	den := new(big.Int)

	if P.x.Cmp(Q.x) == 0 {
		if P.y.Cmp(Q.y) != 0 || P.y.Sign() == 0 {
			return ecInfinity // P == -Q
		}
		// tangent: (3x^2 + a) / 2y
		num.Mul(P.x, P.x)
		num.Mul(num, bigIntThree)
		num.Add(num, cv.a)
		den.Lsh(P.y, 1)
	} else {
		num.Sub(Q.y, P.y)
		den.Sub(Q.x, P.x)
	}
	den.Mod(den, cv.n)

	inv := new(big.Int).ModInverse(den, cv.n)
	if inv == nil {
		g := new(big.Int).GCD(nil, nil, den, cv.n)
		if g.Cmp(bigIntOne) > 0 && g.Cmp(cv.n) < 0 {
			cv.factor = g
		} else {
			cv.factor = cv.n // degenerate; abandon this curve
		}
		return ecInfinity
	}

	lambda := num.Mul(num, inv)
	lambda.Mod(lambda, cv.n)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, P.x)
	x3.Sub(x3, Q.x)
	x3.Mod(x3, cv.n)

	y3 := new(big.Int).Sub(P.x, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, P.y)
	y3.Mod(y3, cv.n)

	return ecPoint{x: x3, y: y3}
}

func (cv *ecCurve) mul(k int64, P ecPoint) ecPoint {
	Q := ecInfinity
	for k > 0 {
		if k&1 == 1 {
			Q = cv.add(Q, P)
			if cv.factor != nil {
				return ecInfinity
			}
		}
		P = cv.add(P, P)
		if cv.factor != nil {
			return ecInfinity
		}
		k >>= 1
	}
	return Q
}

// ecmFindFactor runs up to prm.curves random curves against n, returning a
// nontrivial factor or nil.  Curves are seeded from n itself so the outcome
// for a given magnitude is reproducible.
func ecmFindFactor(n *big.Int, prm ecmParams) *big.Int {
	if n.Bit(0) == 0 {
		return big.NewInt(2)
	}
	if prm.curves <= 0 {
		prm.curves = 20
	}
	if prm.b1 <= 0 {
		prm.b1 = 11000
	}
	if prm.b2 < prm.b1 {
		prm.b2 = 100 * prm.b1
	}
	if prm.memCeiling <= 0 {
		prm.memCeiling = 128
	}

	stage1Primes := sievePrimes(prm.b1)
	stage2Primes := sievePrimes(prm.b2)

	rnd := mrand.New(mrand.NewSource(int64(xxh3.Hash(n.Bytes()))))

	for ci := 0; ci < prm.curves; ci++ {
		// Random curve through a random point: pick a, x, y then solve for b.
		a := new(big.Int).Rand(rnd, n)
		x := new(big.Int).Rand(rnd, n)
		y := new(big.Int).Rand(rnd, n)

		cv := &ecCurve{n: n, a: a}
		P := ecPoint{x: x, y: y}

		if g := ecmRunCurve(cv, P, prm, stage1Primes, stage2Primes); g != nil {
			return g
		}
	}
	return nil
}

func ecmRunCurve(cv *ecCurve, P ecPoint, prm ecmParams, stage1, stage2 []int64) *big.Int {

	// Stage 1: multiply P by every prime power <= B1.
	for _, p := range stage1 {
		for pk := p; pk <= prm.b1; pk *= p {
			P = cv.mul(p, P)
			if g := cv.take(); g != nil {
				return g
			}
			if P.inf {
				return nil
			}
		}
	}

	// Stage 2: walk primes in (B1, B2] by gap additions against a bounded
	// table of even multiples of P.
	maxGap := int64(2 * prm.memCeiling)
	gapTable := make(map[int64]ecPoint)
	gapPoint := func(g int64) ecPoint {
		if Q, ok := gapTable[g]; ok {
			return Q
		}
		Q := cv.mul(g, P)
		if int64(len(gapTable)) < maxGap {
			gapTable[g] = Q
		}
		return Q
	}

	var R ecPoint
	last := int64(0)
	for _, q := range stage2 {
		if q <= prm.b1 {
			continue
		}
		if last == 0 {
			R = cv.mul(q, P)
		} else {
			R = cv.add(R, gapPoint(q-last))
		}
		if g := cv.take(); g != nil {
			return g
		}
		if R.inf {
			return nil
		}
		last = q
	}
	return nil
}

// take returns a found nontrivial factor.  A degenerate gcd reports nil;
// the marker stays set, which retires the rest of the curve.
func (cv *ecCurve) take() *big.Int {
	g := cv.factor
	if g == nil {
		return nil
	}
	if g.Cmp(cv.n) == 0 {
		return nil // degenerate gcd; caller moves to the next curve
	}
	return g
}
