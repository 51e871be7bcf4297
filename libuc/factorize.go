package libuc

import (
	"math/big"

	"github.com/cznic/mathutil"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// FactorizeOptimal factors the positive magnitude n, choosing the cheapest
// algorithm whose digit-length ceiling covers n and escalating on failure.
//
// The factorization cache is consulted first.  If every algorithm fails on
// some cofactor, the result is a partial Factorization (Complete == false)
// unless opts.AllowPartial is off, in which case ErrUnfactored is returned.
func (en *Engine) FactorizeOptimal(n *big.Int, opts ucoord.FactorizeOpts) (ucoord.Factorization, error) {
	if n == nil || n.Sign() <= 0 {
		return ucoord.Factorization{}, errors.Wrap(ucoord.ErrInvalidValue, "magnitude must be > 0")
	}

	if n.Cmp(bigIntOne) == 0 {
		return ucoord.Factorization{Complete: true}, nil
	}

	if opts.UseCache {
		if fz, found := en.cache.Get(n); found {
			return fz, nil
		}
	}

	cfg := en.cfgSrc.Config()
	fz := en.factorize(n, cfg, opts)

	if !fz.Complete && !opts.AllowPartial {
		return ucoord.Factorization{}, errors.Wrapf(ucoord.ErrUnfactored, "remaining part has %d digits", digitLen(fz.Remaining))
	}

	if opts.ValidateFactors {
		if err := en.verifyFactorSet(fz.Factors); err != nil {
			return ucoord.Factorization{}, err
		}
	}

	if opts.UseCache {
		en.cache.Set(n, fz)
	}
	return fz, nil
}

func (en *Engine) factorize(n *big.Int, cfg ucoord.Config, opts ucoord.FactorizeOpts) ucoord.Factorization {
	digits := digitLen(n)

	// Magnitudes that fit a uint32 go straight to the precomputed path.
	if n.IsUint64() && n.Uint64() <= 1<<32-1 {
		var factors ucoord.FactorSet
		for _, term := range mathutil.FactorInt(uint32(n.Uint64())) {
			factors.Insert(new(big.Int).SetUint64(uint64(term.Prime)), term.Power)
		}
		return ucoord.Factorization{Factors: factors, Complete: true}
	}

	if digits <= cfg.TrialDivisionDigits {
		return ucoord.Factorization{Factors: factorizeTrial(n), Complete: true}
	}
	if digits <= cfg.OptTrialDigits {
		return ucoord.Factorization{Factors: factorizeTrialOpt(n), Complete: true}
	}

	// General path: strip the 16-bit primes, then split what's left with the
	// heavier algorithms, recursing through composite cofactors.
	factors, rem := stripSmallPrimes(n)

	remaining := big.NewInt(1)
	work := []*big.Int{}
	if rem.Cmp(bigIntOne) > 0 {
		work = append(work, rem)
	}

	for len(work) > 0 {
		m := work[len(work)-1]
		work = work[:len(work)-1]

		if en.tester.IsPrime(m, ucoord.DefaultPrimeTestOpts) {
			factors.Insert(m, 1)
			continue
		}

		f := en.findFactor(m, cfg)
		if f == nil {
			klog.V(2).Infof("factorize: leaving %d-digit cofactor unresolved", digitLen(m))
			remaining.Mul(remaining, m)
			continue
		}

		work = append(work, f, new(big.Int).Quo(m, f))
	}

	fz := ucoord.Factorization{Factors: factors, Complete: true}
	if remaining.Cmp(bigIntOne) > 0 {
		fz.Remaining = remaining
		fz.Complete = false
	}
	return fz
}

// findFactor returns one nontrivial factor of the odd composite m, or nil if
// every algorithm whose ceiling covers m fails.
func (en *Engine) findFactor(m *big.Int, cfg ucoord.Config) *big.Int {
	digits := digitLen(m)

	if digits <= cfg.PollardRhoDigits {
		if f := pollardRho(m, cfg.RhoMaxIterations, cfg.RhoTimeLimit); f != nil {
			return f
		}
		klog.V(2).Infof("factorize: pollard rho exhausted on %d digits, escalating", digits)
	}

	if digits <= cfg.ECMDigits {
		f := ecmFindFactor(m, ecmParams{
			curves:     cfg.ECMCurves,
			b1:         cfg.ECMStage1B1,
			b2:         cfg.ECMStage2B2,
			memCeiling: cfg.ECMMemoryCeiling,
		})
		if f != nil {
			return f
		}
		klog.V(2).Infof("factorize: ecm exhausted on %d digits, escalating", digits)
	}

	if digits <= cfg.QuadraticSieveDigits {
		f := qsFindFactor(m, qsParams{
			fbSize:   cfg.QSFactorBaseSize,
			interval: cfg.QSSieveInterval,
		})
		if f != nil {
			return f
		}
	}

	return nil
}

// verifyFactorSet re-tests every key: structural canonical form plus
// primality (small keys by trial division, large by Miller-Rabin).
func (en *Engine) verifyFactorSet(factors ucoord.FactorSet) error {
	if err := factors.Validate(); err != nil {
		return err
	}
	for _, Fi := range factors {
		if !en.tester.IsPrime(Fi.Prime, ucoord.DefaultPrimeTestOpts) {
			return errors.Wrapf(ucoord.ErrNonPrimeFactor, "key %s", Fi.Prime)
		}
	}
	return nil
}

// digitLen returns the decimal digit count of |n|.
func digitLen(n *big.Int) int {
	if n == nil || n.Sign() == 0 {
		return 1
	}
	// 1233/4096 ~ log10(2); cheap estimate confirmed against the boundary.
	est := n.BitLen() * 1233 / 4096
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(est)), nil)
	if pow.CmpAbs(n) > 0 {
		return est
	}
	return est + 1
}
