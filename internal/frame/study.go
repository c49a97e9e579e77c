package frame

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// dicomExtensions are the file suffixes treated as DICOM objects when
// scanning a study directory.
var dicomExtensions = map[string]bool{
	".dcm":   true,
	".dicom": true,
}

// ListStudy scans a directory tree for DICOM files and returns their
// frame ids in lexical order, which matches acquisition order for the
// usual zero-padded slice naming.
func ListStudy(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !dicomExtensions[strings.ToLower(filepath.Ext(root))] {
			return nil, fmt.Errorf("%s is not a DICOM file", root)
		}
		return []string{filepath.Base(root)}, nil
	}

	var ids []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !dicomExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ids = append(ids, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}

// ExpandFrames expands a single-file id into per-frame ids for
// multi-frame objects. Single-frame objects come back unchanged.
func (s *DICOMSource) ExpandFrames(id string) ([]string, error) {
	relPath, _, err := splitFrameID(id)
	if err != nil {
		return nil, err
	}

	dataset, err := dicom.ParseFile(filepath.Join(s.Root, relPath), nil)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}

	n := frameCount(&dataset)
	if n <= 1 {
		return []string{relPath}, nil
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s#%d", relPath, i)
	}
	return ids, nil
}

func frameCount(dataset *dicom.Dataset) int {
	pixelEl, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return 0
	}
	return len(dicom.MustGetPixelDataInfo(pixelEl.Value).Frames)
}
