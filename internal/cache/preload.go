package cache

import (
	"context"

	"dicom-viewer/internal/frame"
)

// inflightFetch is the rendezvous for one in-progress decode. Later
// callers for the same key wait on done instead of starting a second
// decode.
type inflightFetch struct {
	done  chan struct{}
	frame *frame.Frame
	err   error
}

// GetOrFetch returns the cached frame, or decodes it through the source.
// Concurrent calls for the same key trigger exactly one decode; the
// others block until that decode settles (or their context is canceled).
func (c *Cache) GetOrFetch(ctx context.Context, source frame.Source, key string) (*frame.Frame, error) {
	if f, ok := c.Get(key); ok {
		return f, nil
	}

	c.mu.Lock()
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.frame, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflightFetch{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	f, err := source.Fetch(ctx, key)
	if err == nil {
		if setErr := c.Set(key, f); setErr != nil {
			// Oversized frames are served uncached.
			_ = setErr
		}
	}

	fl.frame, fl.err = f, err
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(fl.done)

	return f, err
}

// Preload decodes and caches a frame ahead of need, flagging it so the
// evictor spares it until its first read. Duplicate preloads for a key
// share one decode.
func (c *Cache) Preload(ctx context.Context, source frame.Source, key string) error {
	_, err := c.GetOrFetch(ctx, source, key)
	if err != nil {
		return err
	}
	c.MarkForPreload(key)
	return nil
}
