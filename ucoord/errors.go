package ucoord

import "errors"

// Errors
var (
	ErrInvalidValue     = errors.New("invalid or unparseable value")
	ErrBadFactorSet     = errors.New("invalid factorization")
	ErrNonPrimeFactor   = errors.New("factorization key is not prime")
	ErrBadExponent      = errors.New("factorization exponent must be > 0")
	ErrDivideByZero     = errors.New("division by zero")
	ErrInexactDivision  = errors.New("not exactly divisible")
	ErrNegativeExponent = errors.New("negative exponent")
	ErrBadModulus       = errors.New("modulus must be positive")
	ErrNoModInverse     = errors.New("no modular inverse exists")
	ErrNoModSqrt        = errors.New("no modular square root exists")
	ErrUndefinedGCD     = errors.New("gcd(0,0) is undefined")
	ErrBadCacheSize     = errors.New("cache size must be > 0")
	ErrUnfactored       = errors.New("unable to complete factorization")
	ErrUnmarshal        = errors.New("unmarshal failed")
	ErrBadCatalogParam  = errors.New("bad catalog param")
)
