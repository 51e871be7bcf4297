package main

import (
	goflag "flag"
	"fmt"
	"math/big"
	"os"

	"github.com/plan-systems/klog"
	"github.com/spf13/pflag"

	"github.com/ucoord-systems/go-ucoord/libuc"
	"github.com/ucoord-systems/go-ucoord/ucoord"
)

func main() {

	fset := goflag.NewFlagSet("", goflag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	verbosity := pflag.StringP("verbosity", "v", "2", "log verbosity level")
	workers := pflag.IntP("workers", "w", 4, "worker count for batch factorization")
	pflag.Parse()

	fset.Set("v", *verbosity)

	args := pflag.Args()
	if len(args) > 0 && args[0] == "factor" {
		runFactorize(args[1:], *workers)
	} else {
		pathname := ""
		if len(args) > 0 {
			pathname = args[0]
		}
		go_gpython(pathname)
	}

	klog.Flush()
}

// runFactorize factorizes each given value (plain integer or coordinate
// expression) and prints the canonical form.
func runFactorize(values []string, workers int) {
	if len(values) == 0 {
		fmt.Fprintln(os.Stderr, "usage: goucoord factor VALUE [VALUE ...]")
		os.Exit(1)
	}

	en := libuc.NewEngine(libuc.EngineOpts{})

	zs := make([]*libuc.UCInt, len(values))
	mags := make([]*big.Int, 0, len(values))
	for i, val := range values {
		z, err := en.FromString(val, 0)
		if err != nil {
			klog.Fatalf("bad value %q: %v", val, err)
		}
		zs[i] = z
		if v, ok := new(big.Int).SetString(val, 0); ok && v.Sign() != 0 {
			mags = append(mags, v.Abs(v))
		}
	}

	// Warm the shared factor cache across all magnitudes in parallel, then
	// render each value; resolution hits the cache.
	_, errs := en.FactorizeAll(mags, workers, ucoord.DefaultFactorizeOpts)
	for i, err := range errs {
		if err != nil {
			klog.Warningf("factorizing %s: %v", mags[i], err)
		}
	}

	for i, z := range zs {
		fmt.Printf("%s = %s\n", values[i], z.String())
	}
}
