// Command framedump renders DICOM frames to windowed PNG files without a
// display, using the same pipeline as the interactive viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"dicom-viewer/internal/cache"
	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/intensity"
	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/render"
	"dicom-viewer/internal/viewport"
)

func main() {
	input := flag.String("in", "", "Path to a DICOM file or study directory")
	outDir := flag.String("out", ".", "Output directory for PNG files")
	center := flag.Float64("center", 0, "Window center (0 = frame default)")
	width := flag.Float64("width", 0, "Window width (0 = frame default)")
	auto := flag.Bool("auto", false, "Derive the window from each frame's histogram")
	invert := flag.Bool("invert", false, "Invert the grayscale output")
	size := flag.Int("size", 0, "Output canvas size in pixels (0 = native frame size)")
	flag.Parse()

	if *input == "" {
		fmt.Println("Usage: framedump -in <study> [-out dir] [-center N -width N | -auto] [-invert] [-size N]")
		os.Exit(1)
	}

	root := *input
	if info, err := os.Stat(root); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat input: %v\n", err)
		os.Exit(1)
	} else if !info.IsDir() {
		root = filepath.Dir(*input)
	}

	ids, err := frame.ListStudy(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list study: %v\n", err)
		os.Exit(1)
	}

	source := frame.NewDICOMSource(root)
	if len(ids) == 1 {
		if expanded, err := source.ExpandFrames(ids[0]); err == nil {
			ids = expanded
		}
	}
	fmt.Printf("Found %d frames\n", len(ids))

	pipeline := render.NewPipeline(source, cache.New(64*1024*1024, 64), nil)
	ctx := context.Background()

	failed := 0
	for _, id := range ids {
		if err := dumpFrame(ctx, pipeline, source, id, *outDir, *center, *width, *auto, *invert, *size); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", id, err)
			failed++
		}
	}

	fmt.Printf("Wrote %d frames to %s\n", len(ids)-failed, *outDir)
	if failed > 0 {
		os.Exit(1)
	}
}

func dumpFrame(ctx context.Context, pipeline *render.Pipeline, source frame.Source, id, outDir string, center, width float64, auto, invert bool, size int) error {
	f, err := source.Fetch(ctx, id)
	if err != nil {
		return err
	}

	wc, ww := center, width
	switch {
	case auto:
		wc, ww = intensity.AutoWindow(f)
	case ww <= 0:
		wc, ww = f.DefaultWindowCenter, f.DefaultWindowWidth
		if ww <= 0 {
			wc, ww = intensity.AutoWindow(f)
		}
	}

	w, h := f.Width, f.Height
	if size > 0 {
		w, h = size, size
	}

	vp := viewport.New()
	_ = vp.SetWindowLevel(wc, ww)
	vp.Invert = invert
	vp.FitToWindow(float64(w), float64(h), float64(f.Width), float64(f.Height))

	surf := render.NewImageSurface(w, h)
	if _, err := pipeline.Render(ctx, id, vp, surf, measure.NewEngine()); err != nil {
		return err
	}

	name := strings.NewReplacer("/", "_", "\\", "_", "#", "_f").Replace(id) + ".png"
	out, err := os.Create(filepath.Join(outDir, name))
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, surf.Image())
}
