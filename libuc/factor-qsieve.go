package libuc

import (
	"math/big"
	"math/bits"
)

// Single-polynomial quadratic sieve: build a factor base of primes with
// (n|p) = 1, scan a sieve interval around sqrt(n) for B-smooth values of
// Q(x) = (sqrtN+x)^2 - n, then combine relations over GF(2) into a
// congruence of squares.  Higher fixed cost than ECM, so the selector only
// reaches for it above the ECM threshold.

type qsParams struct {
	fbSize   int // factor base size (number of primes)
	interval int // sieve interval length
}

type qsRelation struct {
	x    int64
	exps []uint16 // exponent of fb[j] in Q(x)
}

// sievePrimes returns every prime <= limit (sieve of Eratosthenes).
func sievePrimes(limit int64) []int64 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	var primes []int64
	for p := int64(2); p <= limit; p++ {
		if composite[p] {
			continue
		}
		primes = append(primes, p)
		for m := p * p; m <= limit; m += p {
			composite[m] = true
		}
	}
	return primes
}

// powModU64 computes a^e mod m for m small enough that m^2 fits in 64 bits.
func powModU64(a, e, m uint64) uint64 {
	a %= m
	r := uint64(1)
	for e > 0 {
		if e&1 == 1 {
			r = r * a % m
		}
		a = a * a % m
		e >>= 1
	}
	return r
}

// legendreU64 returns 1 when a is a quadratic residue mod odd prime p,
// p-1 when a non-residue, 0 when p divides a.
func legendreU64(a, p uint64) uint64 {
	return powModU64(a, (p-1)/2, p)
}

// tonelliShanksU64 solves r^2 = a (mod p) for odd prime p; the caller must
// have already established that a is a residue.
func tonelliShanksU64(a, p uint64) uint64 {
	a %= p
	if a == 0 {
		return 0
	}
	if p%4 == 3 {
		return powModU64(a, (p+1)/4, p)
	}

	// p-1 = q * 2^s with q odd
	q := p - 1
	s := uint64(0)
	for q&1 == 0 {
		q >>= 1
		s++
	}

	// find a non-residue z
	z := uint64(2)
	for legendreU64(z, p) != p-1 {
		z++
	}

	m := s
	c := powModU64(z, q, p)
	t := powModU64(a, q, p)
	r := powModU64(a, (q+1)/2, p)

	for t != 1 {
		// find least i with t^(2^i) == 1
		i := uint64(0)
		t2 := t
		for t2 != 1 {
			t2 = t2 * t2 % p
			i++
		}
		b := powModU64(c, uint64(1)<<(m-i-1), p)
		m = i
		c = b * b % p
		t = t * c % p
		r = r * b % p
	}
	return r
}

// qsFindFactor returns a nontrivial factor of n, or nil if the configured
// factor base and interval fail to produce enough smooth relations.
func qsFindFactor(n *big.Int, prm qsParams) *big.Int {
	if n.Bit(0) == 0 {
		return big.NewInt(2)
	}
	if prm.fbSize <= 0 {
		prm.fbSize = 200
	}
	if prm.interval <= 0 {
		prm.interval = 100000
	}

	// Perfect squares defeat the congruence trick; peel them off first.
	root := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(root, root).Cmp(n) == 0 {
		return root
	}

	fb := qsFactorBase(n, prm.fbSize)
	if len(fb) == 0 {
		return nil
	}

	sqrtN := new(big.Int).Sqrt(n)
	sqrtN.Add(sqrtN, bigIntOne)

	relations := qsSieve(n, sqrtN, fb, prm.interval)
	if len(relations) <= len(fb) {
		return nil // not enough relations to guarantee a dependency
	}

	return qsSolve(n, sqrtN, fb, relations)
}

// qsFactorBase selects 2 plus odd primes p with (n|p) = 1.
func qsFactorBase(n *big.Int, fbSize int) []int64 {
	limit := int64(fbSize) * 40
	if limit < 10000 {
		limit = 10000
	}

	nMod := new(big.Int)
	fb := make([]int64, 0, fbSize)
	fb = append(fb, 2)

	for _, p := range sievePrimes(limit) {
		if len(fb) >= fbSize {
			break
		}
		if p == 2 {
			continue
		}
		a := nMod.Mod(n, big.NewInt(p)).Uint64()
		if a == 0 {
			// n is divisible by p: that IS a factor, but the caller's
			// small-prime scan should have caught it long ago.
			continue
		}
		if legendreU64(a, uint64(p)) == 1 {
			fb = append(fb, p)
		}
	}
	return fb
}

func qsSieve(n, sqrtN *big.Int, fb []int64, interval int) []qsRelation {
	logs := make([]uint16, interval)

	// Sieve each prime's two square roots of n across the interval.
	for _, p := range fb {
		pu := uint64(p)
		logp := uint16(bits.Len64(pu))

		nModP := new(big.Int).Mod(n, big.NewInt(p)).Uint64()
		baseModP := new(big.Int).Mod(sqrtN, big.NewInt(p)).Uint64()

		var roots []uint64
		if p == 2 {
			roots = []uint64{(nModP + 2 - baseModP) % 2}
		} else {
			r := tonelliShanksU64(nModP, pu)
			r1 := (r + pu - baseModP%pu) % pu
			r2 := (pu - r + pu - baseModP%pu) % pu
			roots = []uint64{r1}
			if r2 != r1 {
				roots = append(roots, r2)
			}
		}

		for _, r := range roots {
			for x := int64(r); x < int64(interval); x += p {
				logs[x] += logp
			}
		}
	}

	// Collect candidates whose accumulated logs come close to log2(Q(x)),
	// then confirm smoothness by trial division over the factor base.
	want := len(fb) + 8
	relations := make([]qsRelation, 0, want)

	q := new(big.Int)
	t := new(big.Int)
	for x := 0; x < interval && len(relations) < want; x++ {
		t.SetInt64(int64(x))
		t.Add(t, sqrtN)
		q.Mul(t, t)
		q.Sub(q, n)

		threshold := q.BitLen() - 26
		if threshold > 0 && int(logs[x]) < threshold {
			continue
		}

		if exps, smooth := qsTrialDivide(q, fb); smooth {
			relations = append(relations, qsRelation{x: int64(x), exps: exps})
		}
	}
	return relations
}

func qsTrialDivide(q *big.Int, fb []int64) ([]uint16, bool) {
	exps := make([]uint16, len(fb))
	rem := new(big.Int).Set(q)
	d := new(big.Int)
	quo := new(big.Int)
	r := new(big.Int)

	for j, p := range fb {
		d.SetInt64(p)
		for {
			quo.QuoRem(rem, d, r)
			if r.Sign() != 0 {
				break
			}
			rem.Set(quo)
			exps[j]++
		}
	}
	return exps, rem.Cmp(bigIntOne) == 0
}

// qsSolve eliminates the parity matrix over GF(2) and tries each dependency
// as a congruence of squares.
func qsSolve(n, sqrtN *big.Int, fb []int64, relations []qsRelation) *big.Int {
	m := len(relations)
	vecWords := (len(fb) + 63) / 64
	comboWords := (m + 63) / 64

	type gfRow struct {
		vec   []uint64
		combo []uint64
	}

	rows := make([]gfRow, m)
	for i, rel := range relations {
		row := gfRow{
			vec:   make([]uint64, vecWords),
			combo: make([]uint64, comboWords),
		}
		for j, e := range rel.exps {
			if e&1 == 1 {
				row.vec[j/64] |= 1 << (j % 64)
			}
		}
		row.combo[i/64] |= 1 << (i % 64)
		rows[i] = row
	}

	pivotOf := make(map[int]int) // column -> row index

	firstBit := func(vec []uint64) int {
		for w, word := range vec {
			if word != 0 {
				return w*64 + bits.TrailingZeros64(word)
			}
		}
		return -1
	}
	xorInto := func(dst, src gfRow) {
		for w := range dst.vec {
			dst.vec[w] ^= src.vec[w]
		}
		for w := range dst.combo {
			dst.combo[w] ^= src.combo[w]
		}
	}

	for i := 0; i < m; i++ {
		for {
			col := firstBit(rows[i].vec)
			if col < 0 {
				// Dependency found: the combo rows multiply to a square.
				if g := qsTryDependency(n, sqrtN, fb, relations, rows[i].combo); g != nil {
					return g
				}
				break
			}
			pivot, exists := pivotOf[col]
			if !exists {
				pivotOf[col] = i
				break
			}
			xorInto(rows[i], rows[pivot])
		}
	}
	return nil
}

func qsTryDependency(n, sqrtN *big.Int, fb []int64, relations []qsRelation, combo []uint64) *big.Int {
	expSum := make([]uint64, len(fb))
	X := big.NewInt(1)
	t := new(big.Int)

	for i, rel := range relations {
		if combo[i/64]&(1<<(i%64)) == 0 {
			continue
		}
		t.SetInt64(rel.x)
		t.Add(t, sqrtN)
		X.Mul(X, t)
		X.Mod(X, n)
		for j, e := range rel.exps {
			expSum[j] += uint64(e)
		}
	}

	Y := big.NewInt(1)
	pk := new(big.Int)
	for j, p := range fb {
		if expSum[j] == 0 {
			continue
		}
		pk.Exp(big.NewInt(p), new(big.Int).SetUint64(expSum[j]/2), n)
		Y.Mul(Y, pk)
		Y.Mod(Y, n)
	}

	// gcd(X - Y, n), then the conjugate if the first try is trivial
	g := new(big.Int).Sub(X, Y)
	g.Mod(g, n)
	g.GCD(nil, nil, g, n)
	if g.Cmp(bigIntOne) > 0 && g.Cmp(n) < 0 {
		return g
	}

	g.Add(X, Y)
	g.Mod(g, n)
	if g.Sign() != 0 {
		g.GCD(nil, nil, g, n)
		if g.Cmp(bigIntOne) > 0 && g.Cmp(n) < 0 {
			return g
		}
	}
	return nil
}
