// Package asyncx provides the concurrency primitives used across the
// service: ordered fan-out, a bounded worker pool, and retries with
// backoff, all with first-class context support.
//
// # Ordered Map
//
// [Map] applies a transformation to every element of a slice concurrently
// and returns the results in the original order. Batch evaluation of search
// results relies on this ordering guarantee.
//
//	scored, err := asyncx.Map(ctx, items, func(ctx context.Context, it Item) (Scored, error) {
//	    return eval.Score(ctx, query, it)
//	})
//
// # Worker Pool
//
// [Pool] is the bounded alternative to [Map]. It limits concurrency to a
// fixed number of workers, which matters for rate-limited embedding APIs.
// Document ingestion embeds its chunk batches through a Pool.
//
// # Retry
//
// [RetryWithBackoff] retries a function with exponential backoff, doubling
// the wait after every failure and respecting context cancellation between
// attempts.
//
// The package has no external dependencies and relies solely on the Go
// standard library.
package asyncx
