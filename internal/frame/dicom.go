package frame

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// DICOMSource decodes frames from DICOM files under a root directory.
// A frame id is the path relative to the root, with an optional
// "#<index>" suffix selecting a frame of a multi-frame object.
type DICOMSource struct {
	Root string
}

// NewDICOMSource creates a source rooted at dir.
func NewDICOMSource(dir string) *DICOMSource {
	return &DICOMSource{Root: dir}
}

// Fetch decodes the identified frame.
func (s *DICOMSource) Fetch(ctx context.Context, id string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	relPath, frameIndex, err := splitFrameID(id)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}

	dataset, err := dicom.ParseFile(filepath.Join(s.Root, relPath), nil)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}

	f, err := frameFromDataset(&dataset, id, frameIndex)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}
	return f, nil
}

// splitFrameID separates "path#index" into its parts. A missing suffix
// selects frame 0.
func splitFrameID(id string) (string, int, error) {
	path := id
	index := 0
	if i := strings.LastIndex(id, "#"); i >= 0 {
		path = id[:i]
		n, err := strconv.Atoi(id[i+1:])
		if err != nil || n < 0 {
			return "", 0, fmt.Errorf("bad frame index in id %q", id)
		}
		index = n
	}
	if path == "" {
		return "", 0, fmt.Errorf("empty path in id %q", id)
	}
	return path, index, nil
}

func frameFromDataset(dataset *dicom.Dataset, id string, frameIndex int) (*Frame, error) {
	pixelEl, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("no pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(pixelEl.Value)
	if frameIndex >= len(info.Frames) {
		return nil, fmt.Errorf("frame index %d out of range (%d frames)",
			frameIndex, len(info.Frames))
	}

	native, err := info.Frames[frameIndex].GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("native frame: %w", err)
	}

	f := &Frame{
		ID:            id,
		Width:         native.Cols,
		Height:        native.Rows,
		BitsPerSample: native.BitsPerSample,
		Pixels:        make([]uint16, native.Rows*native.Cols),
		RescaleSlope:  1,
	}
	for i, samples := range native.Data {
		if len(samples) > 0 {
			f.Pixels[i] = uint16(samples[0])
		}
	}

	f.Modality = firstString(dataset, tag.Modality)

	// PixelSpacing is row spacing then column spacing.
	if spacing := floatStrings(dataset, tag.PixelSpacing); len(spacing) >= 2 {
		f.Spacing = PixelSpacing{Row: spacing[0], Col: spacing[1]}
	}

	if slope := floatStrings(dataset, tag.RescaleSlope); len(slope) > 0 && slope[0] != 0 {
		f.RescaleSlope = slope[0]
	}
	if intercept := floatStrings(dataset, tag.RescaleIntercept); len(intercept) > 0 {
		f.RescaleIntercept = intercept[0]
	}

	// Window metadata may be multi-valued; the first preset wins.
	if wc := floatStrings(dataset, tag.WindowCenter); len(wc) > 0 {
		f.DefaultWindowCenter = wc[0]
	}
	if ww := floatStrings(dataset, tag.WindowWidth); len(ww) > 0 {
		f.DefaultWindowWidth = ww[0]
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// firstString returns the first string value of the tagged element, or "".
func firstString(dataset *dicom.Dataset, t tag.Tag) string {
	el, err := dataset.FindElementByTag(t)
	if err != nil {
		return ""
	}
	if vals, ok := el.Value.GetValue().([]string); ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// floatStrings parses a multi-valued decimal string element.
func floatStrings(dataset *dicom.Dataset, t tag.Tag) []float64 {
	el, err := dataset.FindElementByTag(t)
	if err != nil {
		return nil
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
