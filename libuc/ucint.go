package libuc

import (
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// UCInt is an arbitrary-precision integer in universal coordinates: a sign,
// a zero flag, and a canonical prime -> exponent mapping.
//
// A UCInt is either Resolved (factors populated) or Deferred (holds an
// unfactored magnitude that resolves exactly once, on first access).  A
// resolved value may still be partial: factors plus one unfactored
// Remaining part > 1.
//
// Instances are immutable through the public surface and cheap to share,
// but resolution mutates internal state, so a single UCInt must not be
// accessed from multiple goroutines without external synchronization.
type UCInt struct {
	en        *Engine
	negative  bool
	zero      bool
	factors   ucoord.FactorSet
	remaining *big.Int // unfactored part > 1, nil when fully factored

	deferred    *big.Int // magnitude awaiting factorization
	resolveOnce sync.Once
}

// resolve forces a Deferred value to Resolved.  Idempotent and memoized.
func (z *UCInt) resolve() {
	z.resolveOnce.Do(func() {
		if z.deferred == nil {
			return
		}
		fz, err := z.en.FactorizeOptimal(z.deferred, ucoord.DefaultFactorizeOpts)
		if err == nil {
			z.factors = fz.Factors
			if !fz.Complete {
				z.remaining = fz.Remaining
			}
		} else {
			// AllowPartial is on, so the only way here is an invalid
			// magnitude, which the constructors already rejected.
			z.remaining = z.deferred
		}
		z.deferred = nil
	})
}

// ensureComplete resolves z and then finishes any partial remainder,
// failing with ErrUnfactored when the remainder defeats every algorithm.
func (z *UCInt) ensureComplete() error {
	z.resolve()
	if z.remaining == nil {
		return nil
	}
	fz, err := z.en.FactorizeOptimal(z.remaining, ucoord.FactorizeOpts{
		UseCache:        true,
		ValidateFactors: true,
	})
	if err != nil {
		return err
	}
	if !fz.Complete {
		return errors.Wrap(ucoord.ErrUnfactored, "partial value could not be completed")
	}
	for _, Fi := range fz.Factors {
		z.factors.Insert(Fi.Prime, Fi.Exp)
	}
	z.remaining = nil
	return nil
}

func (en *Engine) newResolved(negative bool, factors ucoord.FactorSet, remaining *big.Int) *UCInt {
	return &UCInt{
		en:        en,
		negative:  negative,
		factors:   factors,
		remaining: remaining,
	}
}

func (en *Engine) newDeferred(negative bool, magnitude *big.Int) *UCInt {
	return &UCInt{
		en:       en,
		negative: negative,
		deferred: magnitude,
	}
}

// Zero returns the canonical zero (no sign, empty mapping).
func (en *Engine) Zero() *UCInt {
	return &UCInt{en: en, zero: true}
}

// One returns the canonical unit (empty mapping).
func (en *Engine) One() *UCInt {
	return &UCInt{en: en}
}

// FromInt64 constructs a value from a machine integer; factorization is
// deferred until first access.
func (en *Engine) FromInt64(v int64) *UCInt {
	if v == 0 {
		return en.Zero()
	}
	mag := new(big.Int).SetInt64(v)
	neg := mag.Sign() < 0
	mag.Abs(mag)
	return en.newDeferred(neg, mag)
}

// FromBig constructs a value from a big integer; factorization is deferred.
func (en *Engine) FromBig(v *big.Int) (*UCInt, error) {
	if v == nil {
		return nil, errors.Wrap(ucoord.ErrInvalidValue, "nil magnitude")
	}
	if v.Sign() == 0 {
		return en.Zero(), nil
	}
	mag := new(big.Int).Abs(v)
	return en.newDeferred(v.Sign() < 0, mag), nil
}

// FromString parses either a plain integer in the given base (0 means
// auto-detect per big.Int conventions) or, for decimal input, a canonical
// coordinate expression such as "-2^3*3^2*5".
func (en *Engine) FromString(s string, base int) (*UCInt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ucoord.ErrInvalidValue, "empty string")
	}

	if v, ok := new(big.Int).SetString(s, base); ok {
		return en.FromBig(v)
	}

	if base == 0 || base == 10 {
		factors, negative, err := parseCoordExpr(s)
		if err != nil {
			return nil, err
		}
		return en.FromFactorSet(factors, negative)
	}

	return nil, errors.Wrapf(ucoord.ErrInvalidValue, "unparseable %q (base %d)", s, base)
}

// FromFactorSet constructs a value directly from prime coordinates.
// Every key is verified prime here, at construction, never later.
func (en *Engine) FromFactorSet(factors ucoord.FactorSet, negative bool) (*UCInt, error) {
	factors = factors.Clone()
	if err := en.verifyFactorSet(factors); err != nil {
		return nil, err
	}
	return en.newResolved(negative, factors, nil), nil
}

// FromPartial constructs a partially factored value: known coordinates plus
// one unfactored remaining part > 1.
func (en *Engine) FromPartial(factors ucoord.FactorSet, remaining *big.Int, negative bool) (*UCInt, error) {
	if remaining == nil || remaining.Cmp(bigIntOne) <= 0 {
		return nil, errors.Wrap(ucoord.ErrInvalidValue, "remaining part must be > 1")
	}
	factors = factors.Clone()
	if err := en.verifyFactorSet(factors); err != nil {
		return nil, err
	}
	return en.newResolved(negative, factors, new(big.Int).Set(remaining)), nil
}

func (z *UCInt) IsZero() bool { return z.zero }

// Engine returns the engine this value was constructed by.
func (z *UCInt) Engine() *Engine { return z.en }

// Sign returns -1, 0, or +1.
func (z *UCInt) Sign() int {
	if z.zero {
		return 0
	}
	if z.negative {
		return -1
	}
	return 1
}

// Neg returns -z (zero stays zero: zero carries no sign).
func (z *UCInt) Neg() *UCInt {
	if z.zero {
		return z.en.Zero()
	}
	out := z.shallowView()
	out.negative = !z.negative
	return out
}

// Abs returns |z|.
func (z *UCInt) Abs() *UCInt {
	if !z.negative {
		return z
	}
	out := z.shallowView()
	out.negative = false
	return out
}

// shallowView copies value state after forcing resolution.
func (z *UCInt) shallowView() *UCInt {
	z.resolve()
	return z.en.newResolved(z.negative, z.factors.Clone(), z.remaining)
}

// IsComplete reports whether the factorization carries no unresolved part.
func (z *UCInt) IsComplete() bool {
	z.resolve()
	return z.remaining == nil
}

// GetFactorization returns the resolved coordinates of |z|.
func (z *UCInt) GetFactorization() ucoord.Factorization {
	z.resolve()
	fz := ucoord.Factorization{
		Factors:  z.factors.Clone(),
		Complete: z.remaining == nil,
	}
	if z.remaining != nil {
		fz.Remaining = new(big.Int).Set(z.remaining)
	}
	return fz
}

// ToBig reconstructs the plain integer value.
func (z *UCInt) ToBig() *big.Int {
	if z.zero {
		return new(big.Int)
	}
	z.resolve()
	m := z.factors.Product()
	if z.remaining != nil {
		m.Mul(m, z.remaining)
	}
	if z.negative {
		m.Neg(m)
	}
	return m
}

// Int64 returns the value as an int64 when it fits.
func (z *UCInt) Int64() (int64, bool) {
	v := z.ToBig()
	if !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// String renders the canonical coordinate expression, e.g. "-2^3*3^2*5".
// An unresolved remaining part renders bracketed: "2^2*[9007199254740993]".
func (z *UCInt) String() string {
	if z.zero {
		return "0"
	}
	z.resolve()

	b := strings.Builder{}
	if z.negative {
		b.WriteByte('-')
	}
	if len(z.factors) == 0 && z.remaining == nil {
		b.WriteByte('1')
		return b.String()
	}
	b.WriteString(z.factors.String())
	if z.remaining != nil {
		if len(z.factors) > 0 {
			b.WriteByte('*')
		} else {
			// drop the leading "1"
			b.Reset()
			if z.negative {
				b.WriteByte('-')
			}
		}
		b.WriteByte('[')
		b.WriteString(z.remaining.String())
		b.WriteByte(']')
	}
	return b.String()
}

// Text renders the plain integer value in the given base.
func (z *UCInt) Text(base int) string {
	return z.ToBig().Text(base)
}

// Hash returns a structural hash of the canonical form.
func (z *UCInt) Hash() uint64 {
	if z.zero {
		return xxh3.Hash([]byte{0})
	}
	z.resolve()

	var buf [256]byte
	enc := buf[:0]
	if z.negative {
		enc = append(enc, 1)
	} else {
		enc = append(enc, 2)
	}
	enc = z.factors.AppendLSM(enc)
	if z.remaining != nil {
		enc = append(enc, 0xFF)
		enc = append(enc, z.remaining.Bytes()...)
	}
	return xxh3.Hash(enc)
}

// Cmp compares numeric values: -1, 0, +1.
func (z *UCInt) Cmp(y *UCInt) int {
	return z.ToBig().Cmp(y.ToBig())
}

// Equal is structural equality of canonical forms: same sign, same prime
// set, same exponents.  No numeric tolerance.
func (z *UCInt) Equal(y *UCInt) bool {
	if z.zero || y.zero {
		return z.zero == y.zero
	}
	if z.negative != y.negative {
		return false
	}
	z.resolve()
	y.resolve()
	if !z.factors.IsEqual(y.factors) {
		return false
	}
	if (z.remaining == nil) != (y.remaining == nil) {
		return false
	}
	if z.remaining != nil && z.remaining.Cmp(y.remaining) != 0 {
		return false
	}
	return true
}

// Mul multiplies via exponent addition: union of primes, summed exponents,
// XOR of signs.
func (z *UCInt) Mul(y *UCInt) *UCInt {
	if z.zero || y.zero {
		return z.en.Zero()
	}
	z.resolve()
	y.resolve()

	factors := z.factors.Clone()
	for _, Fi := range y.factors {
		factors.Insert(Fi.Prime, Fi.Exp)
	}

	var remaining *big.Int
	if z.remaining != nil {
		remaining = new(big.Int).Set(z.remaining)
	}
	if y.remaining != nil {
		if remaining == nil {
			remaining = new(big.Int).Set(y.remaining)
		} else {
			remaining.Mul(remaining, y.remaining)
		}
	}

	return z.en.newResolved(z.negative != y.negative, factors, remaining)
}

// Div divides via exponent subtraction.  Defined only over exact division:
// any prime of y with a higher exponent than in z is ErrInexactDivision.
func (z *UCInt) Div(y *UCInt) (*UCInt, error) {
	if y.zero {
		return nil, errors.Wrap(ucoord.ErrDivideByZero, "divisor is zero")
	}
	if z.zero {
		return z.en.Zero(), nil
	}
	if err := z.ensureComplete(); err != nil {
		return nil, err
	}
	if err := y.ensureComplete(); err != nil {
		return nil, err
	}

	factors := z.factors.Clone()
	for _, Fi := range y.factors {
		if !factors.Remove(Fi.Prime, Fi.Exp) {
			return nil, errors.Wrapf(ucoord.ErrInexactDivision, "prime %s", Fi.Prime)
		}
	}
	return z.en.newResolved(z.negative != y.negative, factors, nil), nil
}

// Pow raises z to a non-negative integer power by multiplying exponents.
// z^0 == 1 for every z, including zero.
func (z *UCInt) Pow(e int64) (*UCInt, error) {
	if e < 0 {
		return nil, errors.Wrapf(ucoord.ErrNegativeExponent, "pow(%d)", e)
	}
	if e == 0 {
		return z.en.One(), nil
	}
	if z.zero {
		return z.en.Zero(), nil
	}
	z.resolve()

	factors := make(ucoord.FactorSet, 0, len(z.factors))
	for _, Fi := range z.factors {
		// Check before multiplying; the product itself can wrap uint64.
		if uint64(e) > math.MaxUint32/uint64(Fi.Exp) {
			return nil, errors.Wrapf(ucoord.ErrInvalidValue, "exponent overflow at prime %s", Fi.Prime)
		}
		factors = append(factors, ucoord.FactorTerm{
			Prime: new(big.Int).Set(Fi.Prime),
			Exp:   Fi.Exp * uint32(e),
		})
	}

	var remaining *big.Int
	if z.remaining != nil {
		remaining = new(big.Int).Exp(z.remaining, big.NewInt(e), nil)
	}

	negative := z.negative && e%2 == 1
	return z.en.newResolved(negative, factors, remaining), nil
}

// GCD takes per-prime exponent minimums.  Always positive.
// gcd(0,0) is an error; gcd(0,n) == |n|.
func (z *UCInt) GCD(y *UCInt) (*UCInt, error) {
	if z.zero && y.zero {
		return nil, errors.Wrap(ucoord.ErrUndefinedGCD, "both operands are zero")
	}
	if z.zero {
		return y.Abs().shallowView(), nil
	}
	if y.zero {
		return z.Abs().shallowView(), nil
	}

	// Exponent arithmetic needs both factorizations in full; fall back to
	// plain-integer gcd when a remainder cannot be resolved.
	if z.ensureComplete() != nil || y.ensureComplete() != nil {
		g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(z.ToBig()), new(big.Int).Abs(y.ToBig()))
		return z.en.FromBig(g)
	}

	var factors ucoord.FactorSet
	for _, Fi := range z.factors {
		if e := y.factors.ExpOf(Fi.Prime); e > 0 {
			exp := Fi.Exp
			if e < exp {
				exp = e
			}
			factors.Insert(Fi.Prime, exp)
		}
	}
	return z.en.newResolved(false, factors, nil), nil
}

// LCM takes per-prime exponent maximums.  Always positive; lcm(0,n) == 0.
func (z *UCInt) LCM(y *UCInt) (*UCInt, error) {
	if z.zero || y.zero {
		return z.en.Zero(), nil
	}

	if z.ensureComplete() != nil || y.ensureComplete() != nil {
		a := new(big.Int).Abs(z.ToBig())
		b := new(big.Int).Abs(y.ToBig())
		g := new(big.Int).GCD(nil, nil, a, b)
		l := a.Mul(a, b)
		l.Quo(l, g)
		return z.en.FromBig(l)
	}

	factors := z.factors.Clone()
	for _, Fi := range y.factors {
		if have := factors.ExpOf(Fi.Prime); have < Fi.Exp {
			factors.Insert(Fi.Prime, Fi.Exp-have)
		}
	}
	return z.en.newResolved(false, factors, nil), nil
}

// Add reconstructs both operands, adds, and re-factorizes lazily.
// Factorization is not closed under addition, so there is no exponent
// shortcut here; this round trip is the dominant cost of additive ops.
func (z *UCInt) Add(y *UCInt) *UCInt {
	sum := new(big.Int).Add(z.ToBig(), y.ToBig())
	out, _ := z.en.FromBig(sum)
	return out
}

// Sub is Add with the sign of y flipped.
func (z *UCInt) Sub(y *UCInt) *UCInt {
	diff := new(big.Int).Sub(z.ToBig(), y.ToBig())
	out, _ := z.en.FromBig(diff)
	return out
}

// Mod reduces z modulo y over plain integers.  The result is the
// non-negative least residue.
func (z *UCInt) Mod(y *UCInt) (*UCInt, error) {
	m := y.ToBig()
	if err := checkModulus(m); err != nil {
		return nil, err
	}
	r := new(big.Int).Mod(z.ToBig(), m)
	out, _ := z.en.FromBig(r)
	return out, nil
}

// ModPow computes z^e mod m by standard modular exponentiation.
func (z *UCInt) ModPow(e, mod *UCInt) (*UCInt, error) {
	m := mod.ToBig()
	if err := checkModulus(m); err != nil {
		return nil, err
	}
	ev := e.ToBig()
	if ev.Sign() < 0 {
		return nil, errors.Wrap(ucoord.ErrNegativeExponent, "modpow")
	}
	r := new(big.Int).Exp(z.ToBig(), ev, m)
	out, _ := z.en.FromBig(r)
	return out, nil
}

// ModInverse computes z^-1 mod m by the extended Euclidean algorithm.
func (z *UCInt) ModInverse(mod *UCInt) (*UCInt, error) {
	m := mod.ToBig()
	if err := checkModulus(m); err != nil {
		return nil, err
	}
	inv := new(big.Int).ModInverse(z.ToBig(), m)
	if inv == nil {
		return nil, errors.Wrapf(ucoord.ErrNoModInverse, "mod %s", m)
	}
	out, _ := z.en.FromBig(inv)
	return out, nil
}

// ModSqrt computes a square root of z mod p (p an odd prime) by
// Tonelli-Shanks.
func (z *UCInt) ModSqrt(mod *UCInt) (*UCInt, error) {
	p := mod.ToBig()
	if err := checkModulus(p); err != nil {
		return nil, err
	}
	if p.Bit(0) == 0 || !z.en.IsPrime(p) {
		return nil, errors.Wrapf(ucoord.ErrBadModulus, "%s is not an odd prime", p)
	}
	r := new(big.Int).ModSqrt(z.ToBig(), p)
	if r == nil {
		return nil, errors.Wrapf(ucoord.ErrNoModSqrt, "mod %s", p)
	}
	out, _ := z.en.FromBig(r)
	return out, nil
}

func checkModulus(m *big.Int) error {
	if m.Sign() == 0 {
		return errors.Wrap(ucoord.ErrDivideByZero, "zero modulus")
	}
	if m.Sign() < 0 {
		return errors.Wrapf(ucoord.ErrBadModulus, "got %s", m)
	}
	return nil
}

// Radical forces every exponent to 1 (the squarefree kernel).
func (z *UCInt) Radical() (*UCInt, error) {
	if z.zero {
		return z.en.Zero(), nil
	}
	if err := z.ensureComplete(); err != nil {
		return nil, err
	}
	factors := make(ucoord.FactorSet, 0, len(z.factors))
	for _, Fi := range z.factors {
		factors = append(factors, ucoord.FactorTerm{
			Prime: new(big.Int).Set(Fi.Prime),
			Exp:   1,
		})
	}
	return z.en.newResolved(z.negative, factors, nil), nil
}

// IsIntrinsicPrime is true iff z is positive with exactly one coordinate of
// exponent 1.
func (z *UCInt) IsIntrinsicPrime() bool {
	if z.zero || z.negative {
		return false
	}
	z.resolve()
	return z.remaining == nil && len(z.factors) == 1 && z.factors[0].Exp == 1
}
