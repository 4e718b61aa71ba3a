// Package scene reads declarative Boolean scenes from TOML or YAML files,
// runs them through the builder and reports the outcome.
package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/chazu/xylem/pkg/builder"
	"github.com/chazu/xylem/pkg/kernel"
	"github.com/chazu/xylem/pkg/kernel/brep"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/topo"
)

// Scene is one Boolean operation over named arguments.
//
//	operation = "cut"
//	fuzzy = 1e-5
//
//	[[objects]]
//	name = "block"
//	box = { size = [20, 20, 10] }
//
//	[[tools]]
//	name = "hole"
//	cylinder = { radius = 4, height = 30 }
//	at = [10, 10, 5]
type Scene struct {
	Operation string  `toml:"operation" yaml:"operation"`
	Fuzzy     float64 `toml:"fuzzy" yaml:"fuzzy"`
	Objects   []Shape `toml:"objects" yaml:"objects"`
	Tools     []Shape `toml:"tools" yaml:"tools"`
}

// Shape is a primitive placed in model space. Exactly one of Box,
// Cylinder, Prism and Polygon is set. Rotation (degrees about X, Y, Z) is
// applied before translation.
type Shape struct {
	Name     string      `toml:"name" yaml:"name"`
	Box      *Box        `toml:"box" yaml:"box"`
	Cylinder *Cylinder   `toml:"cylinder" yaml:"cylinder"`
	Prism    *Prism      `toml:"prism" yaml:"prism"`
	Polygon  *Polygon    `toml:"polygon" yaml:"polygon"`
	At       *[3]float64 `toml:"at" yaml:"at"`
	Rotate   *[3]float64 `toml:"rotate" yaml:"rotate"`
}

// Box has its minimum corner at the origin.
type Box struct {
	Size [3]float64 `toml:"size" yaml:"size"`
}

// Cylinder is centred on the origin along Z.
type Cylinder struct {
	Radius   float64 `toml:"radius" yaml:"radius"`
	Height   float64 `toml:"height" yaml:"height"`
	Segments int     `toml:"segments" yaml:"segments"`
}

// Prism extrudes a counter-clockwise XY profile from z=0.
type Prism struct {
	Profile [][2]float64 `toml:"profile" yaml:"profile"`
	Height  float64      `toml:"height" yaml:"height"`
}

// Polygon is a single planar face.
type Polygon struct {
	Points [][3]float64 `toml:"points" yaml:"points"`
}

// DefaultSegments is the number of sides of a cylinder when none is given.
const DefaultSegments = 32

// Format is a scene file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("scene: unsupported file type %q", filepath.Ext(path))
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	sc, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scene and checks it.
func Parse(data []byte, f Format) (*Scene, error) {
	var sc Scene
	switch f {
	case FormatTOML:
		if err := toml.Unmarshal(data, &sc); err != nil {
			return nil, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the operation and that every shape names one primitive.
func (sc *Scene) Validate() error {
	op, err := builder.ParseOperation(sc.Operation)
	if err != nil {
		return err
	}
	var errs []error
	if sc.Fuzzy < 0 {
		errs = append(errs, fmt.Errorf("fuzzy %g must not be negative", sc.Fuzzy))
	}
	if len(sc.Objects) == 0 {
		errs = append(errs, fmt.Errorf("%s has no objects", op))
	}
	if op.IsBoolean() && len(sc.Tools) == 0 {
		errs = append(errs, fmt.Errorf("%s has no tools", op))
	}
	check := func(role string, shapes []Shape) {
		for i, s := range shapes {
			if n := s.primitives(); n != 1 {
				errs = append(errs, fmt.Errorf("%s %d (%q) sets %d primitives, want 1", role, i+1, s.Name, n))
			}
		}
	}
	check("object", sc.Objects)
	check("tool", sc.Tools)
	return errors.Join(errs...)
}

func (s Shape) primitives() int {
	n := 0
	for _, set := range []bool{s.Box != nil, s.Cylinder != nil, s.Prism != nil, s.Polygon != nil} {
		if set {
			n++
		}
	}
	return n
}

// Label returns the shape's name or its primitive kind.
func (s Shape) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Box != nil:
		return "box"
	case s.Cylinder != nil:
		return "cylinder"
	case s.Prism != nil:
		return "prism"
	case s.Polygon != nil:
		return "polygon"
	}
	return "shape"
}

// build creates the placed primitive with the kernel's constructors.
func (s Shape) build(k *brep.Kernel) (topo.Shape, error) {
	var (
		solid kernel.Solid
		err   error
	)
	switch {
	case s.Box != nil:
		solid, err = k.Box(s.Box.Size[0], s.Box.Size[1], s.Box.Size[2])
	case s.Cylinder != nil:
		seg := s.Cylinder.Segments
		if seg == 0 {
			seg = DefaultSegments
		}
		solid, err = k.Cylinder(s.Cylinder.Height, s.Cylinder.Radius, seg)
	case s.Prism != nil:
		solid, err = k.Prism(s.Prism.Profile, s.Prism.Height)
	case s.Polygon != nil:
		solid, err = k.Polygon(s.Polygon.Points)
	default:
		return topo.Shape{}, fmt.Errorf("%s: no primitive", s.Label())
	}
	if err != nil {
		return topo.Shape{}, fmt.Errorf("%s: %w", s.Label(), err)
	}
	if r := s.Rotate; r != nil {
		solid = k.Rotate(solid, r[0], r[1], r[2])
	}
	if t := s.At; t != nil {
		solid = k.Translate(solid, t[0], t[1], t[2])
	}
	return solid.(*brep.Solid).Shape(), nil
}

// Result is a performed scene.
type Result struct {
	Builder *builder.Builder
	Objects []topo.Shape
	Tools   []topo.Shape
}

// Run builds the arguments and performs the operation. The returned result
// is usable even when err is a blocking alert.
func (sc *Scene) Run(ctx context.Context, opts paver.Options) (*Result, error) {
	op, err := builder.ParseOperation(sc.Operation)
	if err != nil {
		return nil, err
	}
	if sc.Fuzzy > opts.Fuzzy {
		opts.Fuzzy = sc.Fuzzy
	}
	k := brep.New(opts)
	res := &Result{}
	for _, s := range sc.Objects {
		sh, err := s.build(k)
		if err != nil {
			return nil, fmt.Errorf("scene: object %w", err)
		}
		res.Objects = append(res.Objects, sh)
	}
	for _, s := range sc.Tools {
		sh, err := s.build(k)
		if err != nil {
			return nil, fmt.Errorf("scene: tool %w", err)
		}
		res.Tools = append(res.Tools, sh)
	}
	res.Builder, err = builder.Run(ctx, op, res.Objects, res.Tools, opts)
	return res, err
}
