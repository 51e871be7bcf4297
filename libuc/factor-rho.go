package libuc

import (
	"math/big"
	"time"
)

// pollardRho probes n for a nontrivial factor by iterating x <- x^2 + c mod n
// with Floyd cycle detection, retrying with a new c whenever a cycle closes
// without yielding a factor.
//
// Returns nil when the iteration or time budget runs out — the caller
// escalates to the next algorithm.  Output is deterministic for a given n.
func pollardRho(n *big.Int, maxIter int, timeLimit time.Duration) *big.Int {
	if n.Bit(0) == 0 {
		return big.NewInt(2)
	}
	if maxIter <= 0 {
		maxIter = 100000
	}

	deadline := time.Time{}
	if timeLimit > 0 {
		deadline = time.Now().Add(timeLimit)
	}

	x := new(big.Int)
	y := new(big.Int)
	c := new(big.Int)
	diff := new(big.Int)
	g := new(big.Int)

	step := func(v *big.Int) {
		v.Mul(v, v)
		v.Add(v, c)
		v.Mod(v, n)
	}

	iters := 0
	for ci := int64(1); ci <= 20; ci++ {
		c.SetInt64(ci)
		x.SetInt64(2)
		y.SetInt64(2)

		for {
			step(x)
			step(y)
			step(y)

			diff.Sub(x, y)
			diff.Abs(diff)
			if diff.Sign() == 0 {
				break // cycle closed, retry with the next c
			}
			g.GCD(nil, nil, diff, n)
			if g.Cmp(bigIntOne) > 0 {
				if g.Cmp(n) == 0 {
					break
				}
				return new(big.Int).Set(g)
			}

			iters++
			if iters >= maxIter {
				return nil
			}
			if !deadline.IsZero() && iters&1023 == 0 && time.Now().After(deadline) {
				return nil
			}
		}
	}
	return nil
}
