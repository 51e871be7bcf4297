package libuc

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

func TestUCIntConstructors(t *testing.T) {
	en := newTestEngine()

	z := en.FromInt64(-360)
	require.Equal(t, -1, z.Sign())
	require.Equal(t, "-2^3*3^2*5", z.String())

	require.True(t, en.Zero().IsZero())
	require.Equal(t, 0, en.Zero().Sign())
	require.Equal(t, "0", en.Zero().String())
	require.Equal(t, "1", en.One().String())

	v, ok := en.FromInt64(360).Int64()
	require.True(t, ok)
	require.Equal(t, int64(360), v)
}

func TestUCIntFromString(t *testing.T) {
	en := newTestEngine()

	z, err := en.FromString("360", 10)
	require.NoError(t, err)
	require.Equal(t, "2^3*3^2*5", z.String())

	z, err = en.FromString("-2^3*3^2*5", 0)
	require.NoError(t, err)
	require.Equal(t, "-360", z.ToBig().String())

	z, err = en.FromString("ff", 16)
	require.NoError(t, err)
	require.Equal(t, "3*5*17", z.String())

	// non-prime coordinate in an expression
	_, err = en.FromString("4^2*3", 10)
	require.ErrorIs(t, err, ucoord.ErrNonPrimeFactor)

	_, err = en.FromString("", 10)
	require.ErrorIs(t, err, ucoord.ErrInvalidValue)
}

func TestUCIntFromFactorSet(t *testing.T) {
	en := newTestEngine()

	var factors ucoord.FactorSet
	factors.Insert(big.NewInt(2), 3)
	factors.Insert(big.NewInt(5), 1)

	z, err := en.FromFactorSet(factors, true)
	require.NoError(t, err)
	require.Equal(t, "-40", z.ToBig().String())

	factors.Insert(big.NewInt(9), 1)
	_, err = en.FromFactorSet(factors, false)
	require.ErrorIs(t, err, ucoord.ErrNonPrimeFactor)
}

func TestUCIntMulDiv(t *testing.T) {
	en := newTestEngine()

	a := en.FromInt64(756)
	c := en.FromInt64(12)

	q, err := a.Div(c)
	require.NoError(t, err)
	require.Equal(t, "63", q.ToBig().String())

	prod := q.Mul(c)
	require.True(t, prod.Equal(a))

	// 42 / 18 is not exact in exponent space
	_, err = en.FromInt64(42).Div(en.FromInt64(18))
	require.ErrorIs(t, err, ucoord.ErrInexactDivision)

	_, err = a.Div(en.Zero())
	require.ErrorIs(t, err, ucoord.ErrDivideByZero)

	q, err = a.Div(a.Neg())
	require.NoError(t, err)
	require.Equal(t, "-1", q.ToBig().String())
}

func TestUCIntPow(t *testing.T) {
	en := newTestEngine()

	z, err := en.FromInt64(-2).Pow(3)
	require.NoError(t, err)
	require.Equal(t, "-8", z.ToBig().String())

	z, err = en.FromInt64(-2).Pow(2)
	require.NoError(t, err)
	require.Equal(t, "4", z.ToBig().String())

	z, err = en.Zero().Pow(0)
	require.NoError(t, err)
	require.Equal(t, "1", z.ToBig().String())

	z, err = en.Zero().Pow(5)
	require.NoError(t, err)
	require.True(t, z.IsZero())

	_, err = en.FromInt64(2).Pow(-1)
	require.ErrorIs(t, err, ucoord.ErrNegativeExponent)
}

func TestUCIntPowExponentOverflow(t *testing.T) {
	en := newTestEngine()

	a, err := en.FromInt64(2).Pow(1 << 20)
	require.NoError(t, err)
	require.Equal(t, uint32(1<<20), a.GetFactorization().Factors[0].Exp)

	// Exponent products past MaxUint32 must error, never wrap to a
	// smaller (or zero) stored exponent.
	_, err = a.Pow(1 << 13)
	require.ErrorIs(t, err, ucoord.ErrInvalidValue)

	// 2^20 * 2^44 == 2^64, which wraps a uint64 product to exactly 0.
	_, err = a.Pow(1 << 44)
	require.ErrorIs(t, err, ucoord.ErrInvalidValue)

	_, err = en.FromInt64(3).Pow(int64(math.MaxUint32) + 1)
	require.ErrorIs(t, err, ucoord.ErrInvalidValue)

	b, err := en.FromInt64(3).Pow(math.MaxUint32)
	require.NoError(t, err)
	require.Equal(t, uint32(math.MaxUint32), b.GetFactorization().Factors[0].Exp)
}

func TestUCIntGCDLCM(t *testing.T) {
	en := newTestEngine()

	a := en.FromInt64(48)
	c := en.FromInt64(18)

	g, err := a.GCD(c)
	require.NoError(t, err)
	require.Equal(t, "6", g.ToBig().String())

	l, err := a.LCM(c)
	require.NoError(t, err)
	require.Equal(t, "144", l.ToBig().String())

	// gcd * lcm == |a * c|
	gl := g.Mul(l)
	require.Equal(t, "864", gl.ToBig().String())

	_, err = en.Zero().GCD(en.Zero())
	require.ErrorIs(t, err, ucoord.ErrUndefinedGCD)

	g, err = en.Zero().GCD(en.FromInt64(-12))
	require.NoError(t, err)
	require.Equal(t, "12", g.ToBig().String())

	l, err = en.Zero().LCM(en.FromInt64(7))
	require.NoError(t, err)
	require.True(t, l.IsZero())
}

func TestUCIntAddSub(t *testing.T) {
	en := newTestEngine()

	sum := en.FromInt64(100).Add(en.FromInt64(-36))
	require.Equal(t, "2^6", sum.String())

	diff := en.FromInt64(7).Sub(en.FromInt64(7))
	require.True(t, diff.IsZero())

	diff = en.FromInt64(3).Sub(en.FromInt64(10))
	require.Equal(t, "-7", diff.ToBig().String())
}

func TestUCIntModOps(t *testing.T) {
	en := newTestEngine()

	r, err := en.FromInt64(-7).Mod(en.FromInt64(5))
	require.NoError(t, err)
	require.Equal(t, "3", r.ToBig().String()) // least non-negative residue

	_, err = en.FromInt64(7).Mod(en.Zero())
	require.ErrorIs(t, err, ucoord.ErrDivideByZero)

	_, err = en.FromInt64(7).Mod(en.FromInt64(-5))
	require.ErrorIs(t, err, ucoord.ErrBadModulus)

	r, err = en.FromInt64(3).ModPow(en.FromInt64(100), en.FromInt64(7))
	require.NoError(t, err)
	require.Equal(t, "4", r.ToBig().String()) // 3^100 mod 7

	inv, err := en.FromInt64(3).ModInverse(en.FromInt64(11))
	require.NoError(t, err)
	require.Equal(t, "4", inv.ToBig().String())

	_, err = en.FromInt64(6).ModInverse(en.FromInt64(9))
	require.ErrorIs(t, err, ucoord.ErrNoModInverse)

	root, err := en.FromInt64(10).ModSqrt(en.FromInt64(13))
	require.NoError(t, err)
	sq := new(big.Int).Mul(root.ToBig(), root.ToBig())
	require.Equal(t, int64(10), sq.Mod(sq, big.NewInt(13)).Int64())

	_, err = en.FromInt64(5).ModSqrt(en.FromInt64(13))
	require.ErrorIs(t, err, ucoord.ErrNoModSqrt)

	_, err = en.FromInt64(5).ModSqrt(en.FromInt64(12))
	require.ErrorIs(t, err, ucoord.ErrBadModulus)
}

func TestUCIntRadical(t *testing.T) {
	en := newTestEngine()

	r, err := en.FromInt64(360).Radical()
	require.NoError(t, err)
	require.Equal(t, "2*3*5", r.String())

	r, err = en.Zero().Radical()
	require.NoError(t, err)
	require.True(t, r.IsZero())
}

func TestUCIntIsIntrinsicPrime(t *testing.T) {
	en := newTestEngine()

	require.True(t, en.FromInt64(104729).IsIntrinsicPrime())
	require.False(t, en.FromInt64(-7).IsIntrinsicPrime())
	require.False(t, en.FromInt64(4).IsIntrinsicPrime())
	require.False(t, en.FromInt64(1).IsIntrinsicPrime())
	require.False(t, en.Zero().IsIntrinsicPrime())
}

func TestUCIntCompare(t *testing.T) {
	en := newTestEngine()

	require.Equal(t, 0, en.FromInt64(360).Cmp(en.FromInt64(360)))
	require.Equal(t, -1, en.FromInt64(-5).Cmp(en.FromInt64(3)))
	require.Equal(t, 1, en.FromInt64(10).Cmp(en.FromInt64(-10)))

	require.True(t, en.FromInt64(-12).Equal(en.FromInt64(-12)))
	require.False(t, en.FromInt64(12).Equal(en.FromInt64(-12)))
	require.True(t, en.FromInt64(12).Neg().Abs().Equal(en.FromInt64(12)))

	require.Equal(t, en.FromInt64(360).Hash(), en.FromInt64(360).Hash())
	require.NotEqual(t, en.FromInt64(360).Hash(), en.FromInt64(-360).Hash())
}

func TestUCIntPartial(t *testing.T) {
	en := newTestEngine()

	var factors ucoord.FactorSet
	factors.Insert(big.NewInt(2), 2)

	z, err := en.FromPartial(factors, big.NewInt(35184372088631), false)
	require.NoError(t, err)
	require.False(t, z.IsComplete())

	fz := z.GetFactorization()
	require.False(t, fz.Complete)
	require.Equal(t, "35184372088631", fz.Remaining.String())

	// completion happens on demand and sticks
	r, err := z.Radical()
	require.NoError(t, err)
	require.Equal(t, "2*5591617*6292343", r.String())
	require.True(t, z.IsComplete())

	_, err = en.FromPartial(factors, big.NewInt(1), false)
	require.ErrorIs(t, err, ucoord.ErrInvalidValue)
}

func TestUCIntInvariantsUnderRandomOps(t *testing.T) {
	en := newTestEngine()
	rnd := rand.New(rand.NewSource(7))

	z := en.FromInt64(1)
	shadow := big.NewInt(1)

	for i := 0; i < 60; i++ {
		v := rnd.Int63n(2000) - 1000
		if v == 0 {
			v = 1
		}
		w := en.FromInt64(v)

		switch rnd.Intn(3) {
		case 0:
			z = z.Mul(w)
			shadow.Mul(shadow, big.NewInt(v))
		case 1:
			z = z.Add(w)
			shadow.Add(shadow, big.NewInt(v))
		case 2:
			z = z.Sub(w)
			shadow.Sub(shadow, big.NewInt(v))
		}

		require.Equal(t, shadow.String(), z.ToBig().String(), "diverged at step %d", i)

		fz := z.GetFactorization()
		require.NoError(t, fz.Factors.Validate())
		if !z.IsZero() {
			require.NoError(t, en.verifyFactorSet(fz.Factors))
		}
	}
}
