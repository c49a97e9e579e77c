package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"time"

	"dicom-viewer/internal/cache"
	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/intensity"
	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/colorutil"
)

// Stats reports per-stage timings and outcomes for one render call.
type Stats struct {
	DecodeMs    float64 `json:"decodeMs"`
	LUTMs       float64 `json:"lutMs"`
	CompositeMs float64 `json:"compositeMs"`

	CacheHit    bool `json:"cacheHit"`
	Uncached    bool `json:"uncached"`
	Placeholder bool `json:"placeholder"`
}

// Pipeline renders frames: cache or decode, window through the LUT,
// composite under the viewport transform, draw measurement overlays.
// A pipeline serves one display context and is driven by that context's
// single writer; decoding may happen concurrently via the prefetcher.
type Pipeline struct {
	source frame.Source
	cache  *cache.Cache
	intens *intensity.Transform
	comp   Compositor
}

// NewPipeline wires a pipeline. Dependencies are injected here; there is
// no runtime probing for alternates.
func NewPipeline(source frame.Source, c *cache.Cache, comp Compositor) *Pipeline {
	if comp == nil {
		comp = NewSoftwareCompositor()
	}
	return &Pipeline{
		source: source,
		cache:  c,
		intens: intensity.NewTransform(),
		comp:   comp,
	}
}

// Compositor returns the active compositing strategy.
func (p *Pipeline) Compositor() Compositor {
	return p.comp
}

// CacheStats exposes the frame cache counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Render draws the identified frame onto the surface under the viewport
// state, then overlays measurements. On decode failure it renders a
// placeholder and returns the error; the caller may retry.
func (p *Pipeline) Render(ctx context.Context, frameID string, vp *viewport.Viewport, surf Surface, eng *measure.Engine) (Stats, error) {
	var stats Stats

	canvasW, canvasH := surf.Size()
	if canvasW <= 0 || canvasH <= 0 {
		return stats, ErrSurfaceUnavailable
	}

	decodeStart := time.Now()
	f, hit := p.cache.Get(frameID)
	stats.CacheHit = hit
	if !hit {
		var err error
		f, err = p.source.Fetch(ctx, frameID)
		if err != nil {
			stats.Placeholder = true
			stats.DecodeMs = msSince(decodeStart)
			p.renderPlaceholder(surf, frameID)
			return stats, err
		}
		if setErr := p.cache.Set(frameID, f); setErr != nil {
			var tooLarge *cache.FrameTooLargeError
			if !errors.As(setErr, &tooLarge) {
				return stats, setErr
			}
			// Render it anyway; it just will not be cached.
			stats.Uncached = true
		}
	}
	stats.DecodeMs = msSince(decodeStart)

	lutStart := time.Now()
	lut := p.intens.LUT(f, intensity.Window{
		Center: vp.WindowCenter,
		Width:  vp.WindowWidth,
		Invert: vp.Invert,
	})
	gray := lut.ApplyImage(f)
	stats.LUTMs = msSince(lutStart)

	compositeStart := time.Now()
	dst := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	fillRGBA(dst, colorutil.Black)

	cw, ch := float64(canvasW), float64(canvasH)
	iw, ih := float64(f.Width), float64(f.Height)
	p.comp.Composite(dst, gray, vp.Transform(cw, ch, iw, ih))

	drawMeasurements(dst, eng, vp, cw, ch, iw, ih)
	stats.CompositeMs = msSince(compositeStart)

	surf.Clear()
	if err := surf.DrawBuffer(0, 0, canvasW, canvasH, dst.Pix); err != nil {
		return stats, err
	}
	return stats, nil
}

// renderPlaceholder paints a solid background with an error label so a
// bad frame never takes the whole context down.
func (p *Pipeline) renderPlaceholder(surf Surface, frameID string) {
	w, h := surf.Size()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRGBA(dst, colorutil.Gray(32))
	DrawLabel(dst, "DECODE FAILED", w/2, h/2-8, colorutil.Orange, 2)
	DrawLabel(dst, frameID, w/2, h/2+8, colorutil.Gray(200), 1)

	surf.Clear()
	_ = surf.DrawBuffer(0, 0, w, h, dst.Pix)
}

func fillRGBA(dst *image.RGBA, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
