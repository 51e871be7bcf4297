package ucoord

import (
	"math/big"
	"time"
)

// Config carries every tunable threshold the engine reads.
//
// The engine treats a Config as a read-only snapshot and re-reads it from its
// ConfigSource on each top-level call, so a reconfiguration is picked up by
// the next operation without restart.
type Config struct {

	// Digit-length ceilings (decimal digits of the magnitude) used by the
	// algorithm selector.  The cheapest algorithm whose ceiling covers the
	// magnitude is tried first, escalating on failure.
	TrialDivisionDigits  int
	OptTrialDigits       int
	PollardRhoDigits     int
	ECMDigits            int
	QuadraticSieveDigits int

	// Miller-Rabin round counts for magnitudes >= 2^64.  RoundsHuge applies
	// above 2^100, where each witness exponentiation is expensive enough to
	// warrant a reduced count after the small-prime sieve.
	MillerRabinRounds     int
	MillerRabinRoundsHuge int

	// Pollard's Rho limits.  A zero time limit disables the wall clock check.
	RhoMaxIterations int
	RhoTimeLimit     time.Duration

	// ECM parameters: number of random curves to try, stage bounds, and the
	// max number of precomputed stage-2 table points (the memory ceiling).
	ECMCurves        int
	ECMStage1B1      int64
	ECMStage2B2      int64
	ECMMemoryCeiling int

	// Quadratic sieve parameters.
	QSFactorBaseSize int
	QSSieveInterval  int

	// Cache bounds.
	PrimeCacheMaxSize  int
	FactorCacheMaxSize int
}

// DefaultConfig factors comfortably through ~25 digit magnitudes on a laptop.
var DefaultConfig = Config{
	TrialDivisionDigits:   6,
	OptTrialDigits:        10,
	PollardRhoDigits:      20,
	ECMDigits:             35,
	QuadraticSieveDigits:  45,
	MillerRabinRounds:     20,
	MillerRabinRoundsHuge: 8,
	RhoMaxIterations:      200000,
	RhoTimeLimit:          2 * time.Second,
	ECMCurves:             40,
	ECMStage1B1:           11000,
	ECMStage2B2:           600000,
	ECMMemoryCeiling:      512,
	QSFactorBaseSize:      400,
	QSSieveInterval:       200000,
	PrimeCacheMaxSize:     20000,
	FactorCacheMaxSize:    4000,
}

// ConfigSource supplies a Config snapshot per engine call.
type ConfigSource interface {
	Config() Config
}

type staticConfig Config

func (cfg staticConfig) Config() Config { return Config(cfg) }

// StaticConfig wraps a fixed Config as a ConfigSource.
func StaticConfig(cfg Config) ConfigSource { return staticConfig(cfg) }

// Factorization is the result of a factorization request.
//
// When Complete is false, Remaining holds a single unfactored composite
// part (> 1) and the full magnitude is Factors.Product() * Remaining.
// An incomplete result is a successful return, not an error.
type Factorization struct {
	Factors   FactorSet
	Remaining *big.Int
	Complete  bool
}

// Product reconstructs the magnitude this Factorization describes.
func (fz Factorization) Product() *big.Int {
	m := fz.Factors.Product()
	if fz.Remaining != nil {
		m.Mul(m, fz.Remaining)
	}
	return m
}

// PrimeTestOpts controls cache interaction of a single primality query.
type PrimeTestOpts struct {
	UseCache    bool // consult the prime cache before testing
	UpdateCache bool // record the result (both prime and composite) after testing
}

var DefaultPrimeTestOpts = PrimeTestOpts{
	UseCache:    true,
	UpdateCache: true,
}

// FactorizeOpts controls a single FactorizeOptimal call.
type FactorizeOpts struct {
	UseCache        bool // consult (and populate) the factorization cache
	ValidateFactors bool // re-verify every candidate factor with the primality tester
	AllowPartial    bool // return an incomplete Factorization instead of ErrUnfactored
}

var DefaultFactorizeOpts = FactorizeOpts{
	UseCache:        true,
	ValidateFactors: true,
	AllowPartial:    true,
}

// CacheStats reports factorization cache usage.
type CacheStats struct {
	Size    int
	Hits    int64
	Misses  int64
	HitRate float64
}

// PrimeCacheStats reports prime cache usage.
type PrimeCacheStats struct {
	Size              int
	LargestKnownPrime *big.Int
	LargestChecked    *big.Int
}

// Storage is the opaque key-value collaborator the factorization cache
// persists through.  Keys are magnitude bytes (big-endian), values are
// FactorSet LSM encodings; Storage itself never interprets either.
type Storage interface {

	// Put stores val under key, replacing any existing value.
	Put(key, val []byte) error

	// Get invokes onVal with the value stored under key, or returns
	// ErrKeyNotFound-like behavior by returning a non-nil error.
	Get(key []byte, onVal func(val []byte) error) error

	// Scan visits every stored entry in ascending key order.
	// Enumeration stops early if onEntry returns a non-nil error.
	Scan(onEntry func(key, val []byte) error) error
}

// CatalogOpts specifies params for opening a factorization catalog.
type CatalogOpts struct {
	DbPathName string // omit for an in-memory db
	ReadOnly   bool   // open in read-only mode
}

// Catalog is a persistent Storage with a lifecycle and entry accounting.
type Catalog interface {
	Storage

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumEntries returns the number of factorizations stored.
	NumEntries() int64

	Close() error
}

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Signals all open catalogs to close, then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed.
	Done() <-chan struct{}
}
