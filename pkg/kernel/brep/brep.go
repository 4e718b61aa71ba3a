// Package brep implements kernel.Kernel on exact polyhedral boundary
// representations. Every Boolean operation runs the intersection engine
// of package builder.
package brep

import (
	"context"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/builder"
	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/kernel"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/topo"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel   = (*Kernel)(nil)
	_ kernel.Reporter = (*Solid)(nil)
)

// Solid wraps a topo.Shape to implement kernel.Solid.
type Solid struct {
	shape topo.Shape
	diags []kernel.Diagnostic
}

// Shape returns the underlying topology.
func (s *Solid) Shape() topo.Shape { return s.shape }

// BoundingBox returns the axis-aligned bounding box of the vertices.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	if s.IsEmpty() {
		return min, max
	}
	var pts []v3.Vec
	for _, v := range s.shape.Explore(topo.Vertex) {
		pts = append(pts, v.Point())
	}
	b := geom.BoxOf(pts...)
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// IsEmpty reports whether the shape has no vertices.
func (s *Solid) IsEmpty() bool {
	return s.shape.IsNull() || topo.Count(s.shape, topo.Vertex) == 0
}

// Volume returns the enclosed volume.
func (s *Solid) Volume() float64 {
	if s.shape.IsNull() {
		return 0
	}
	return topo.SolidsVolume(s.shape)
}

// Diagnostics returns the alerts raised while building s and its operands.
func (s *Solid) Diagnostics() []kernel.Diagnostic { return s.diags }

// Kernel implements kernel.Kernel.
type Kernel struct {
	opts paver.Options
}

// New returns a kernel running Boolean operations with opts.
func New(opts paver.Options) *Kernel {
	return &Kernel{opts: opts}
}

// Wrap returns s as a kernel solid.
func Wrap(s topo.Shape) *Solid { return &Solid{shape: s} }

// unwrap extracts the brep solid from a kernel.Solid.
func unwrap(s kernel.Solid) (*Solid, error) {
	b, ok := s.(*Solid)
	if !ok || b == nil {
		return nil, fmt.Errorf("brep: solid %T was not built by this kernel", s)
	}
	return b, nil
}

// Box creates a box with its minimum corner at the origin.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("brep: box size %gx%gx%g must be positive", x, y, z)
	}
	return Wrap(topo.Box(v3.Vec{}, v3.Vec{X: x, Y: y, Z: z})), nil
}

// Cylinder creates a polygonal cylinder centred on the origin along Z.
func (k *Kernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	s, err := topo.Cylinder(radius, height, segments)
	if err != nil {
		return nil, fmt.Errorf("brep: %w", err)
	}
	return Wrap(s), nil
}

// Prism extrudes a counter-clockwise XY profile from z=0 by height.
func (k *Kernel) Prism(profile [][2]float64, height float64) (kernel.Solid, error) {
	pts := make([]v3.Vec, len(profile))
	for i, p := range profile {
		pts[i] = v3.Vec{X: p[0], Y: p[1]}
	}
	s, err := topo.Prism(pts, 0, height)
	if err != nil {
		return nil, fmt.Errorf("brep: %w", err)
	}
	return Wrap(s), nil
}

// Polygon creates one planar face.
func (k *Kernel) Polygon(points [][3]float64) (kernel.Solid, error) {
	pts := make([]v3.Vec, len(points))
	for i, p := range points {
		pts[i] = v3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	s, err := topo.Polygon(pts, topo.DefaultTolerance)
	if err != nil {
		return nil, fmt.Errorf("brep: %w", err)
	}
	return Wrap(s), nil
}

// Boolean runs op through the builder. Empty operands are dropped first;
// an operation left without objects or tools degenerates to the result it
// would have had.
func (k *Kernel) Boolean(ctx context.Context, op string, objects, tools []kernel.Solid, fuzzy float64) (kernel.Solid, error) {
	o, err := builder.ParseOperation(op)
	if err != nil {
		return nil, fmt.Errorf("brep: %w", err)
	}
	objs, odiags, err := shapes(objects)
	if err != nil {
		return nil, err
	}
	tls, tdiags, err := shapes(tools)
	if err != nil {
		return nil, err
	}
	diags := append(odiags, tdiags...)

	if len(objs) == 0 || (o.IsBoolean() && len(tls) == 0) {
		var keep []topo.Shape
		switch o {
		case builder.OpFuse:
			keep = append(objs, tls...)
		case builder.OpCut:
			keep = objs
		case builder.OpCut21:
			keep = tls
		}
		return &Solid{shape: topo.MakeCompound(keep...), diags: diags}, nil
	}

	opts := k.opts
	if fuzzy > 0 {
		opts.Fuzzy = fuzzy
	}
	b, err := builder.Run(ctx, o, objs, tls, opts)
	for _, a := range b.Report().Alerts() {
		diags = append(diags, kernel.Diagnostic{Code: a.Kind.String(), Message: a.Message, Blocking: a.Kind.IsBlocking()})
	}
	if err != nil {
		return nil, fmt.Errorf("brep: %s: %w", o, err)
	}
	return &Solid{shape: b.Shape(), diags: diags}, nil
}

func shapes(solids []kernel.Solid) ([]topo.Shape, []kernel.Diagnostic, error) {
	var out []topo.Shape
	var diags []kernel.Diagnostic
	for _, s := range solids {
		b, err := unwrap(s)
		if err != nil {
			return nil, nil, err
		}
		diags = append(diags, b.diags...)
		if !b.IsEmpty() {
			out = append(out, b.shape)
		}
	}
	return out, diags, nil
}

// Translate moves a solid.
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return transform(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := math.Pi / 180
	m := sdf.RotateZ(z * rad).Mul(sdf.RotateY(y * rad)).Mul(sdf.RotateX(x * rad))
	return transform(s, m)
}

func transform(s kernel.Solid, m sdf.M44) kernel.Solid {
	b, err := unwrap(s)
	if err != nil || b.shape.IsNull() {
		return s
	}
	return &Solid{shape: topo.Transform(b.shape, m), diags: b.diags}
}
