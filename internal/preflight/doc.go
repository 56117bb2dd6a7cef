// Package preflight runs the checks behind `gutenindex doctor`: whether the
// data directory is usable, whether the machine has room for the corpus, and
// whether the catalog and search backend can be reached.
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, target)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
