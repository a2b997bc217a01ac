// Package operations runs the batch pipeline as an ordered list of steps.
//
// A Step validates its preconditions and executes against a shared
// OperationState that records each step's status, timing and metadata
// (row counts, files written). The Runner executes registered steps in
// order, wraps every step in a trace span, observes its duration in the
// batch metrics and stops at the first failure, marking later steps as
// skipped. Steps that implement Skipper can opt out of a run.
//
// Pipeline holds the concrete steps: loading sources, classifier
// assignment, yield curve export, starting inventory, disturbance events,
// transition rules, classifier values and the archive update. Results move
// between steps as typed fields on the Pipeline.
//
// Example usage:
//
//	pipeline := operations.NewPipeline(cfg, paths, opts, diag, metrics, logger)
//	registry := operations.NewRegistry()
//	if err := operations.Register(registry, pipeline.Steps()); err != nil {
//		return err
//	}
//	state, err := operations.NewRunner(registry, nil, tracing, metrics, logger).Run(ctx)
package operations
