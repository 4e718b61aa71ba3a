// Package kernel defines the abstract geometry kernel interface.
// The brep implementation runs every Boolean operation through the
// intersection engine; other backends can be swapped in without changing
// the scripting or tessellation layers.
package kernel

import (
	"context"
	"fmt"
)

// Solid is an opaque handle to a geometry kernel shape. Despite the name it
// may also hold faces or section edges.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// IsEmpty reports whether the shape holds no geometry.
	IsEmpty() bool
}

// Operation names accepted by Kernel.Boolean.
const (
	OpFuse        = "fuse"
	OpCommon      = "common"
	OpCut         = "cut"
	OpCut21       = "cut21"
	OpSection     = "section"
	OpSplit       = "split"
	OpGeneralFuse = "gf"
)

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)
	// Prism extrudes a counter-clockwise XY profile from z=0.
	Prism(profile [][2]float64, height float64) (Solid, error)
	// Polygon is a single planar face.
	Polygon(points [][3]float64) (Solid, error)

	// Boolean runs op over two argument groups. A positive fuzzy value
	// overrides the kernel's default tolerance.
	Boolean(ctx context.Context, op string, objects, tools []Solid, fuzzy float64) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Union returns a fused with b.
func Union(ctx context.Context, k Kernel, a, b Solid) (Solid, error) {
	return k.Boolean(ctx, OpFuse, []Solid{a}, []Solid{b}, 0)
}

// Difference returns a with b removed.
func Difference(ctx context.Context, k Kernel, a, b Solid) (Solid, error) {
	return k.Boolean(ctx, OpCut, []Solid{a}, []Solid{b}, 0)
}

// Intersection returns the part of a inside b.
func Intersection(ctx context.Context, k Kernel, a, b Solid) (Solid, error) {
	return k.Boolean(ctx, OpCommon, []Solid{a}, []Solid{b}, 0)
}

// Diagnostic is a finding reported while a solid was built.
type Diagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Reporter is implemented by solids that remember the diagnostics of the
// operation that produced them.
type Reporter interface {
	Diagnostics() []Diagnostic
}

// DiagnosticsOf returns the diagnostics of s, if it keeps any.
func DiagnosticsOf(s Solid) []Diagnostic {
	if r, ok := s.(Reporter); ok {
		return r.Diagnostics()
	}
	return nil
}
