// Package orchestrator implements multi-object copy/move operations on top
// of single-object driver primitives.
//
// Fan-out is a bounded worker pool shared across all drivers rather than
// reimplemented per vendor. Partial-failure policy: the first error stops
// further work from being enqueued, items already dispatched drain to
// completion, and nothing completed is rolled back - callers treat a failed
// batch as "some prefix succeeded, reconcile idempotently".
package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// DefaultConcurrency is the worker-pool width used when Options.Concurrency
// is zero.
const DefaultConcurrency = 8

// Options configures a batch operation.
type Options struct {
	// Concurrency is the maximum number of copy calls in flight. Default 8.
	Concurrency int

	// RateLimit caps provider calls per second across all workers. Zero
	// means unlimited.
	RateLimit float64
}

// Mapping is one source-to-destination pair of a batch.
type Mapping struct {
	From string
	To   string
}

// ItemResult records the outcome of one mapping. Results are positioned by
// submission order regardless of completion order.
type ItemResult struct {
	Mapping Mapping

	// Dispatched reports whether the copy was started at all. Mappings
	// after the first error are never dispatched.
	Dispatched bool

	// Err is the copy error, nil on success or when never dispatched.
	Err error
}

// Orchestrator runs multi-object operations against a resolved driver.
type Orchestrator struct {
	opts Options
}

// New creates an orchestrator, applying defaults for zero option values.
func New(opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Orchestrator{opts: opts}
}

// Copy delegates a single server-side copy to the driver.
func (o *Orchestrator) Copy(ctx context.Context, drv provider.Driver, in provider.CopyInput) error {
	return drv.CopyObject(ctx, in)
}

// Move delegates a single move to the driver. A *provider.MoveError passes
// through untouched so callers see the degraded "copied but not deleted"
// case distinctly.
func (o *Orchestrator) Move(ctx context.Context, drv provider.Driver, in provider.MoveInput) error {
	return drv.MoveObject(ctx, in)
}

// BatchCopy copies every mapping with bounded concurrency.
//
// When the driver implements provider.BatchCopier the whole batch is
// delegated to its native path. Otherwise mappings are dispatched in order
// through a semaphore of width opts.Concurrency; the first failure prevents
// later mappings from being dispatched while in-flight copies drain.
//
// The returned slice always has len(mappings) entries, positionally matching
// the input. The error is the first failure encountered, nil when all
// dispatched copies succeeded.
func (o *Orchestrator) BatchCopy(ctx context.Context, drv provider.Driver, mappings []Mapping) ([]ItemResult, error) {
	results := make([]ItemResult, len(mappings))
	for i, m := range mappings {
		results[i] = ItemResult{Mapping: m}
	}
	if len(mappings) == 0 {
		return results, nil
	}

	if bc, ok := drv.(provider.BatchCopier); ok {
		inputs := make([]provider.CopyInput, len(mappings))
		for i, m := range mappings {
			inputs[i] = provider.CopyInput{From: m.From, To: m.To}
		}
		err := bc.BatchCopy(ctx, inputs, o.opts.Concurrency)
		// The native path reports no per-item outcomes; on success all items
		// are done, on failure the caller reconciles the whole batch.
		for i := range results {
			results[i].Dispatched = true
			if err != nil {
				results[i].Err = err
			}
		}
		return results, err
	}

	var limiter *rate.Limiter
	if o.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.opts.RateLimit), 1)
	}

	sem := make(chan struct{}, o.opts.Concurrency)
	stop := make(chan struct{})

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			close(stop)
		})
	}

dispatch:
	for i, m := range mappings {
		// Stop dispatching after the first failure or on cancellation, but
		// let acquired workers drain. The stop check runs before the
		// semaphore acquire so a failure is never outraced by free capacity.
		select {
		case <-stop:
			break dispatch
		case <-ctx.Done():
			fail(ctx.Err())
			break dispatch
		default:
		}

		select {
		case <-stop:
			break dispatch
		case <-ctx.Done():
			fail(ctx.Err())
			break dispatch
		case sem <- struct{}{}:
		}

		results[i].Dispatched = true
		wg.Add(1)
		go func(idx int, mapping Mapping) {
			defer wg.Done()
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[idx].Err = err
					fail(err)
					return
				}
			}

			err := drv.CopyObject(ctx, provider.CopyInput{From: mapping.From, To: mapping.To})
			if err != nil {
				results[idx].Err = err
				fail(err)
			}
		}(i, m)
	}

	wg.Wait()
	return results, firstErr
}
