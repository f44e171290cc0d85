package prefabs

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys understood in PrefabSpec.Data.
const (
	KeyModel = "Model"
	KeyShape = "Shape"
)

// Keys understood in PrefabSpec.Collision. Bounds are BoundsPrefix followed
// by a 1-based index.
const (
	KeyMass           = "Mass"
	KeyFriction       = "Friction"
	KeyRestitution    = "Restitution"
	KeyAngularDamping = "AngularDamping"
	KeyLinearDamping  = "LinearDamping"
	BoundsPrefix      = "Bounds"
)

// PrefabSpec is the resource form of an entity prefab.
type PrefabSpec struct {
	Name       string             `yaml:"name"`
	Components []string           `yaml:"components"`
	Data       map[string]string  `yaml:"data"`
	Collision  map[string]float64 `yaml:"collision"`
}

// Clone returns a deep copy.
func (s PrefabSpec) Clone() PrefabSpec {
	return PrefabSpec{
		Name:       s.Name,
		Components: slices.Clone(s.Components),
		Data:       maps.Clone(s.Data),
		Collision:  maps.Clone(s.Collision),
	}
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// ParseSpec decodes a prefab from raw YAML. A missing name defaults to
// fallback.
func ParseSpec(data []byte, fallback string) (PrefabSpec, error) {
	var spec PrefabSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return PrefabSpec{}, fmt.Errorf("prefabs: unmarshal %s: %w", fallback, err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		spec.Name = fallback
	}
	return spec, nil
}

// LoadPrefab loads filename and names the spec after the file when the YAML
// does not.
func LoadPrefab(filename string) (PrefabSpec, error) {
	spec, err := LoadSpec[PrefabSpec](filename)
	if err != nil {
		return PrefabSpec{}, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		spec.Name = NameOf(filename)
	}
	return spec, nil
}

// NameOf derives a prefab name from its file name.
func NameOf(filename string) string {
	base := path.Base(cleanPrefabPath(filename))
	return strings.TrimSuffix(base, path.Ext(base))
}
