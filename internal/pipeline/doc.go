// Package pipeline holds the per-batch stages of the listener: the seen-set
// filter, the metadata fetch stage, and the download stage.
//
// Each stage runs its items through a fresh bounded worker pool that is fully
// drained before the stage returns. Workers only perform I/O and report a
// result; every mutation of shared state (metadata files, ledger appends,
// counters) happens in the single goroutine that collects results, so no
// locks guard the seen set or the ledger files. Cancelling the context makes
// the collector return immediately with the context error while workers
// observe the same cancellation and unwind on their own.
package pipeline
