// Package preflight runs the environment checks behind `amanscout doctor`.
//
// Required checks (disk space, write access to the data directory, file
// descriptor limit) must pass before serving. The language model, embedder
// and browser checks only warn, since each has a fallback:
// heuristic ranking, static embeddings and the remaining scrape strategies.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
