// Package testutil provides testing utilities for epictree.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded thread-safe RNG and a deterministic synthetic
// export generator:
//
//	rng := testutil.NewRNG(seed)
//	export := testutil.MakeExport(rng, testutil.DefaultExportSpec())
package testutil
