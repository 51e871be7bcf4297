package libuc

import (
	"math/big"
	"sync"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

// EngineOpts specifies params for assembling an Engine.
type EngineOpts struct {
	Config  ucoord.ConfigSource // nil means DefaultConfig
	Storage ucoord.Storage      // optional persistence for the factor cache
}

// Engine bundles the prime cache, primality tester, factorization cache and
// algorithm selector into one explicit context object.  There is no ambient
// global state: callers construct an Engine and thread it through.
type Engine struct {
	cfgSrc ucoord.ConfigSource
	primes *PrimeCache
	tester *PrimeTester
	cache  *FactorCache
}

func NewEngine(opts EngineOpts) *Engine {
	cfgSrc := opts.Config
	if cfgSrc == nil {
		cfgSrc = ucoord.StaticConfig(ucoord.DefaultConfig)
	}
	cfg := cfgSrc.Config()

	primes := NewPrimeCache(cfg.PrimeCacheMaxSize)
	en := &Engine{
		cfgSrc: cfgSrc,
		primes: primes,
		tester: NewPrimeTester(primes, cfgSrc),
		cache:  NewFactorCache(cfg.FactorCacheMaxSize, opts.Storage),
	}
	return en
}

// PrimeCache exposes the engine's prime cache for management calls.
func (en *Engine) PrimeCache() *PrimeCache { return en.primes }

// FactorCache exposes the engine's factorization cache for management calls.
func (en *Engine) FactorCache() *FactorCache { return en.cache }

// IsPrime tests n with default cache behavior.
func (en *Engine) IsPrime(n *big.Int) bool {
	return en.tester.IsPrime(n, ucoord.DefaultPrimeTestOpts)
}

// Tester returns the engine's primality tester.
func (en *Engine) Tester() *PrimeTester { return en.tester }

// FactorizeAll factors a batch of magnitudes across numWorkers goroutines.
//
// Workers share nothing but the engine's two caches (which are themselves
// mutex guarded); results and errors land at the index of their input, so a
// failed magnitude is distinguishable from a genuine partial factorization.
func (en *Engine) FactorizeAll(magnitudes []*big.Int, numWorkers int, opts ucoord.FactorizeOpts) ([]ucoord.Factorization, []error) {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	results := make([]ucoord.Factorization, len(magnitudes))
	errs := make([]error, len(magnitudes))
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i], errs[i] = en.FactorizeOptimal(magnitudes[i], opts)
			}
		}()
	}

	for i := range magnitudes {
		next <- i
	}
	close(next)
	wg.Wait()

	return results, errs
}
