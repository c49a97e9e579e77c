package frame

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// FileSource decodes frames from ordinary grayscale image files (PNG,
// JPEG, TIFF) under a root directory. It exists for screenshots and
// secondary-capture exports that arrive without DICOM wrapping. TIFF
// resolution metadata, when present, calibrates pixel spacing.
type FileSource struct {
	Root string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Root: dir}
}

// SupportedFormats returns the list of supported file extensions.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Fetch decodes the identified image file into a frame.
func (s *FileSource) Fetch(ctx context.Context, id string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsSupportedFormat(id) {
		return nil, &DecodeError{ID: id, Err: fmt.Errorf("unsupported format %q", filepath.Ext(id))}
	}

	path := filepath.Join(s.Root, id)
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}

	bounds := img.Bounds()
	f := &Frame{
		ID:            id,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		BitsPerSample: 16,
		Pixels:        make([]uint16, bounds.Dx()*bounds.Dy()),
		Modality:      "OT",
		RescaleSlope:  1,
	}

	i := 0
	var minV, maxV uint16 = 0xffff, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Luma approximation; grayscale inputs hit the fast path
			// where r == g == b.
			v := uint16((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
			f.Pixels[i] = v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			i++
		}
	}

	// Full-range default window when the file carries no display hints.
	f.DefaultWindowCenter = (float64(minV) + float64(maxV)) / 2
	f.DefaultWindowWidth = float64(maxV) - float64(minV)
	if f.DefaultWindowWidth < 1 {
		f.DefaultWindowWidth = 1
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if dpi, err := extractTIFFDPI(path); err == nil && dpi > 0 {
			mm := 25.4 / dpi
			f.Spacing = PixelSpacing{Row: mm, Col: mm}
		}
	}

	return f, nil
}

// extractTIFFDPI attempts to extract DPI from TIFF metadata.
func extractTIFFDPI(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	// Read TIFF header to determine byte order
	header := make([]byte, 8)
	if _, err := file.Read(header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	if header[0] == 'I' && header[1] == 'I' {
		byteOrder = binary.LittleEndian
	} else if header[0] == 'M' && header[1] == 'M' {
		byteOrder = binary.BigEndian
	} else {
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := file.Seek(int64(ifdOffset), 0); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(file, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // Default to inches

	for i := uint16(0); i < numEntries; i++ {
		entry := make([]byte, 12)
		if _, err := file.Read(entry); err != nil {
			return 0, err
		}

		entryTag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch entryTag {
		case 282: // XResolution
			if fieldType == 5 { // RATIONAL
				xRes = readTIFFRational(file, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 { // RATIONAL
				yRes = readTIFFRational(file, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 { // SHORT
				resUnit = uint16(valueOffset)
			}
		}
	}

	if xRes == 0 && yRes == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}

	// Convert from centimeters to inches if needed
	if resUnit == 3 {
		dpi *= 2.54
	}

	if dpi == 0 {
		return 0, fmt.Errorf("DPI is zero")
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL value (two uint32s) from a TIFF file.
func readTIFFRational(file *os.File, offset int64, byteOrder binary.ByteOrder) float64 {
	currentPos, _ := file.Seek(0, 1)
	defer file.Seek(currentPos, 0)

	file.Seek(offset, 0)
	var num, denom uint32
	binary.Read(file, byteOrder, &num)
	binary.Read(file, byteOrder, &denom)

	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
