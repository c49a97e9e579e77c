package render

import (
	"context"
	"log"
	"sync/atomic"

	"dicom-viewer/internal/cache"
	"dicom-viewer/internal/frame"
)

// Prefetcher decodes frames ahead of navigation on background goroutines.
// Every request is tagged with the generation current at launch; a decode
// that finishes after the context has moved on (generation bumped) is
// discarded instead of racing the display state. Outstanding decode work
// cannot always be aborted, so staleness is the cancellation mechanism.
type Prefetcher struct {
	source     frame.Source
	cache      *cache.Cache
	generation atomic.Int64

	// onReady, when set, is called for decodes that complete while still
	// current. It runs on the decoding goroutine.
	onReady func(id string)
}

// NewPrefetcher wires a prefetcher over the shared cache.
func NewPrefetcher(source frame.Source, c *cache.Cache) *Prefetcher {
	return &Prefetcher{source: source, cache: c}
}

// OnReady registers the fresh-completion callback.
func (p *Prefetcher) OnReady(fn func(id string)) {
	p.onReady = fn
}

// Generation returns the current generation number.
func (p *Prefetcher) Generation() int64 {
	return p.generation.Load()
}

// Advance bumps the generation, staling every outstanding prefetch.
// Call it whenever the context navigates to a different series.
func (p *Prefetcher) Advance() int64 {
	return p.generation.Add(1)
}

// Prefetch launches background decodes for the given frame ids.
// Duplicate requests for a key share one decode through the cache's
// in-flight set.
func (p *Prefetcher) Prefetch(ctx context.Context, ids []string) {
	gen := p.generation.Load()
	for _, id := range ids {
		go p.fetchOne(ctx, id, gen)
	}
}

func (p *Prefetcher) fetchOne(ctx context.Context, id string, gen int64) {
	if p.generation.Load() != gen {
		return
	}

	if err := p.cache.Preload(ctx, p.source, id); err != nil {
		if ctx.Err() == nil {
			log.Printf("prefetch %s: %v", id, err)
		}
		return
	}

	if p.generation.Load() != gen {
		// Stale: the context moved on while we were decoding. The frame
		// may sit in the cache, but it is never applied to the display.
		return
	}
	if p.onReady != nil {
		p.onReady(id)
	}
}
