package intensity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a named display window for a modality.
type Preset struct {
	Name     string  `yaml:"name"`
	Modality string  `yaml:"modality"`
	Center   float64 `yaml:"center"`
	Width    float64 `yaml:"width"`
}

// Window converts the preset to a display window.
func (p Preset) WindowValue() Window {
	return Window{Center: p.Center, Width: p.Width}.Normalized()
}

// DefaultPresets returns the built-in window presets for common CT and
// projection-radiography viewing.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Soft Tissue", Modality: "CT", Center: 40, Width: 400},
		{Name: "Bone", Modality: "CT", Center: 400, Width: 2000},
		{Name: "Lung", Modality: "CT", Center: -600, Width: 1500},
		{Name: "Brain", Modality: "CT", Center: 50, Width: 350},
		{Name: "Default", Modality: "DX", Center: 32768, Width: 65535},
	}
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads user presets from a YAML file and appends them to the
// built-in set. A missing file yields just the defaults.
func LoadPresets(path string) ([]Preset, error) {
	presets := DefaultPresets()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return presets, nil
	}
	if err != nil {
		return presets, err
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return presets, fmt.Errorf("parse presets %s: %w", path, err)
	}

	for _, p := range pf.Presets {
		if p.Name == "" || p.Width <= 0 {
			continue
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// PresetsForModality filters presets matching the modality; an empty
// modality on either side matches everything.
func PresetsForModality(presets []Preset, modality string) []Preset {
	if modality == "" {
		return presets
	}
	var out []Preset
	for _, p := range presets {
		if p.Modality == "" || p.Modality == modality {
			out = append(out, p)
		}
	}
	return out
}
