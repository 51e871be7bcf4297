package libuc

import (
	"math"
	"math/big"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

type CoordExpr struct {
	Neg   string       `parser:"@('-')?"`
	Terms []*CoordTerm `parser:"@@ (('*' | '·') @@)*"`
}

type CoordTerm struct {
	Prime string `parser:"@Int"`
	Exp   string `parser:"('^' @Int)?"`
}

type coordBuilder struct {
	factors ucoord.FactorSet
}

func (cb *coordBuilder) applyTerm(term *CoordTerm) error {
	prime, ok := new(big.Int).SetString(term.Prime, 10)
	if !ok {
		return errors.Wrapf(ucoord.ErrBadFactorSet, "bad prime literal %q", term.Prime)
	}

	exp := uint64(1)
	if term.Exp != "" {
		var err error
		exp, err = strconv.ParseUint(term.Exp, 10, 64)
		if err != nil || exp == 0 || exp > math.MaxUint32 {
			return errors.Wrapf(ucoord.ErrBadExponent, "bad exponent literal %q", term.Exp)
		}
	}

	cb.factors.Insert(prime, uint32(exp))
	return nil
}

var parseExpr = participle.MustBuild[CoordExpr]()

// parseCoordExpr parses a coordinate expression such as "-2^3*3^2*5" into a
// raw factor set and sign.  Structural and primality validation is deferred
// to the constructor.
func parseCoordExpr(expr string) (ucoord.FactorSet, bool, error) {
	parsed, err := parseExpr.ParseString("", expr)
	if err != nil {
		return nil, false, errors.Wrapf(ucoord.ErrInvalidValue, "parse %q: %v", expr, err)
	}

	var cb coordBuilder
	for _, term := range parsed.Terms {
		if err := cb.applyTerm(term); err != nil {
			return nil, false, err
		}
	}

	return cb.factors, parsed.Neg == "-", nil
}
