// Package app provides application state and events for the viewer.
package app

import (
	"context"
	"log"
	"sync"

	"dicom-viewer/internal/cache"
	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/intensity"
	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/render"
	"dicom-viewer/internal/viewport"
)

// EventType identifies different application events.
type EventType int

const (
	EventStudyLoaded EventType = iota
	EventFrameChanged
	EventViewportChanged
	EventWindowChanged
	EventMeasurementsChanged
	EventFrameReady
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// prefetchRadius is how many neighbors are decoded ahead on navigation.
const prefetchRadius = 2

// State holds one display context: the loaded study, its viewport, the
// shared cache and pipeline, and the measurement engine. The viewport is
// single-writer; all mutation goes through State methods.
type State struct {
	mu sync.RWMutex

	Source       frame.Source
	Cache        *cache.Cache
	Pipeline     *render.Pipeline
	Prefetcher   *render.Prefetcher
	Viewport     *viewport.Viewport
	Measurements *measure.Engine

	Presets     []intensity.Preset
	DragMapping viewport.DragMapping

	frameIDs     []string
	currentIndex int

	listeners map[EventType][]EventListener
}

// NewState wires a display context over a frame source.
func NewState(source frame.Source, maxCacheBytes, maxCacheEntries int, comp render.Compositor) *State {
	c := cache.New(maxCacheBytes, maxCacheEntries)
	s := &State{
		Source:       source,
		Cache:        c,
		Pipeline:     render.NewPipeline(source, c, comp),
		Prefetcher:   render.NewPrefetcher(source, c),
		Viewport:     viewport.New(),
		Measurements: measure.NewEngine(),
		Presets:      intensity.DefaultPresets(),
		DragMapping:  viewport.DefaultDragMapping(),
		listeners:    make(map[EventType][]EventListener),
	}
	s.Prefetcher.OnReady(func(id string) {
		s.Emit(EventFrameReady, id)
	})
	return s
}

// SetSource swaps the frame source, clearing the cache and rebuilding
// the pipeline and prefetcher around it. The display window and
// measurements are left to the caller.
func (s *State) SetSource(source frame.Source) {
	s.Prefetcher.Advance()
	s.Cache.Clear()

	s.mu.Lock()
	s.Source = source
	s.Pipeline = render.NewPipeline(source, s.Cache, s.Pipeline.Compositor())
	s.Prefetcher = render.NewPrefetcher(source, s.Cache)
	s.mu.Unlock()

	s.Prefetcher.OnReady(func(id string) {
		s.Emit(EventFrameReady, id)
	})
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadStudy replaces the frame list, stales outstanding prefetches, and
// positions on the first frame.
func (s *State) LoadStudy(ctx context.Context, frameIDs []string) {
	s.mu.Lock()
	s.frameIDs = append([]string(nil), frameIDs...)
	s.currentIndex = 0
	s.mu.Unlock()

	s.Prefetcher.Advance()
	s.Emit(EventStudyLoaded, frameIDs)
	if len(frameIDs) > 0 {
		s.Emit(EventFrameChanged, frameIDs[0])
		s.prefetchNeighbors(ctx)
	}
}

// FrameIDs returns the loaded study's frame ids.
func (s *State) FrameIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameIDs
}

// CurrentFrameID returns the displayed frame's id, or "".
func (s *State) CurrentFrameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frameIDs) == 0 {
		return ""
	}
	return s.frameIDs[s.currentIndex]
}

// CurrentIndex returns the displayed frame's position.
func (s *State) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// Navigate moves through the study by delta frames, clamped to its ends,
// and prefetches the new neighborhood.
func (s *State) Navigate(ctx context.Context, delta int) {
	s.mu.Lock()
	if len(s.frameIDs) == 0 {
		s.mu.Unlock()
		return
	}
	idx := s.currentIndex + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.frameIDs) {
		idx = len(s.frameIDs) - 1
	}
	changed := idx != s.currentIndex
	s.currentIndex = idx
	id := s.frameIDs[idx]
	s.mu.Unlock()

	if changed {
		s.Emit(EventFrameChanged, id)
		s.prefetchNeighbors(ctx)
	}
}

// prefetchNeighbors queues decodes around the current position.
func (s *State) prefetchNeighbors(ctx context.Context) {
	s.mu.RLock()
	var ids []string
	for d := -prefetchRadius; d <= prefetchRadius; d++ {
		i := s.currentIndex + d
		if d == 0 || i < 0 || i >= len(s.frameIDs) {
			continue
		}
		ids = append(ids, s.frameIDs[i])
	}
	s.mu.RUnlock()

	if len(ids) > 0 {
		s.Prefetcher.Prefetch(ctx, ids)
	}
}

// CurrentFrame fetches the displayed frame through the cache.
func (s *State) CurrentFrame(ctx context.Context) (*frame.Frame, error) {
	id := s.CurrentFrameID()
	if id == "" {
		return nil, nil
	}
	return s.Cache.GetOrFetch(ctx, s.Source, id)
}

// ApplyDefaultWindow adopts the frame's native window and calibrates the
// measurement engine from its pixel spacing.
func (s *State) ApplyDefaultWindow(f *frame.Frame) {
	if f == nil {
		return
	}
	s.Measurements.SetCalibration(f.Spacing)
	if f.DefaultWindowWidth > 0 {
		if err := s.Viewport.SetWindowLevel(f.DefaultWindowCenter, f.DefaultWindowWidth); err != nil {
			log.Printf("app: %v", err)
		}
		s.Emit(EventWindowChanged, nil)
	}
}

// ApplyPreset sets the viewport window from a named preset.
func (s *State) ApplyPreset(p intensity.Preset) {
	w := p.WindowValue()
	if err := s.Viewport.SetWindowLevel(w.Center, w.Width); err != nil {
		log.Printf("app: preset %s: %v", p.Name, err)
	}
	s.Emit(EventWindowChanged, nil)
}

// AutoWindow derives the window from the current frame's histogram.
func (s *State) AutoWindow(ctx context.Context) error {
	f, err := s.CurrentFrame(ctx)
	if err != nil || f == nil {
		return err
	}
	center, width := intensity.AutoWindow(f)
	if err := s.Viewport.SetWindowLevel(center, width); err != nil {
		log.Printf("app: %v", err)
	}
	s.Emit(EventWindowChanged, nil)
	return nil
}
