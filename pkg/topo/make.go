package topo

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
)

// DefaultTolerance is the tolerance given to vertices built by the constructors.
const DefaultTolerance = geom.Confusion

// MakePolyhedron builds a closed solid from points and faces. Each face lists
// point indices counter-clockwise as seen from outside. Edges shared by two
// faces are created once and referenced with opposite orientations.
func MakePolyhedron(points []v3.Vec, faces [][]int, tol float64) (Shape, error) {
	a := NewArena()
	vs := make([]int, len(points))
	for i, p := range points {
		vs[i] = a.AddVertex(p, tol)
	}
	edges := make(map[[2]int]int)
	edgeRef := func(i, j int) Ref {
		if k, ok := edges[[2]int{j, i}]; ok {
			return Ref{k, Reversed}
		}
		if k, ok := edges[[2]int{i, j}]; ok {
			return Ref{k, Forward}
		}
		k := a.AddEdge(vs[i], vs[j])
		edges[[2]int{i, j}] = k
		return Ref{k, Forward}
	}

	var shell []Ref
	for fi, f := range faces {
		if len(f) < 3 {
			return Shape{}, fmt.Errorf("topo: face %d has %d vertices", fi, len(f))
		}
		refs := make([]Ref, len(f))
		loop := make([]v3.Vec, len(f))
		for k := range f {
			if f[k] < 0 || f[k] >= len(points) {
				return Shape{}, fmt.Errorf("topo: face %d references point %d", fi, f[k])
			}
			refs[k] = edgeRef(f[k], f[(k+1)%len(f)])
			loop[k] = points[f[k]]
		}
		pl := geom.PlaneFromLoop(loop)
		if pl == nil {
			return Shape{}, fmt.Errorf("topo: face %d is degenerate", fi)
		}
		shell = append(shell, Ref{a.AddFace(pl, a.AddWire(refs...)), Forward})
	}
	return NewShape(a, a.AddSolid(a.AddShell(shell...))), nil
}

// Polygon builds a single planar face bounded by a closed loop of points.
// The face normal follows the loop's counter-clockwise orientation.
func Polygon(points []v3.Vec, tol float64) (Shape, error) {
	if len(points) < 3 {
		return Shape{}, fmt.Errorf("topo: polygon needs 3 points, got %d", len(points))
	}
	pl := geom.PlaneFromLoop(points)
	if pl == nil {
		return Shape{}, fmt.Errorf("topo: polygon is degenerate")
	}
	for i, p := range points {
		if d := math.Abs(pl.Distance(p)); d > tol {
			return Shape{}, fmt.Errorf("topo: polygon point %d is %.3g off its plane", i, d)
		}
	}
	a := NewArena()
	vs := make([]int, len(points))
	for i, p := range points {
		vs[i] = a.AddVertex(p, tol)
	}
	refs := make([]Ref, len(points))
	for i := range vs {
		refs[i] = Ref{a.AddEdge(vs[i], vs[(i+1)%len(vs)]), Forward}
	}
	return NewShape(a, a.AddFace(pl, a.AddWire(refs...))), nil
}

// Box returns an axis-aligned box with its minimum corner at origin.
func Box(origin, size v3.Vec) Shape {
	x, y, z := size.X, size.Y, size.Z
	pts := []v3.Vec{
		{}, {X: x}, {X: x, Y: y}, {Y: y},
		{Z: z}, {X: x, Z: z}, {X: x, Y: y, Z: z}, {Y: y, Z: z},
	}
	for i := range pts {
		pts[i] = pts[i].Add(origin)
	}
	s, err := MakePolyhedron(pts, [][]int{
		{0, 3, 2, 1}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{3, 7, 6, 2}, // back
		{0, 4, 7, 3}, // left
		{1, 2, 6, 5}, // right
	}, DefaultTolerance)
	if err != nil {
		panic(fmt.Sprintf("topo: box %v: %v", size, err))
	}
	return s
}

// Prism extrudes a counter-clockwise profile in the XY plane from z0 by height.
func Prism(profile []v3.Vec, z0, height float64) (Shape, error) {
	n := len(profile)
	if n < 3 {
		return Shape{}, fmt.Errorf("topo: prism profile needs 3 points, got %d", n)
	}
	if height <= 0 {
		return Shape{}, fmt.Errorf("topo: prism height %g must be positive", height)
	}
	pts := make([]v3.Vec, 2*n)
	for i, p := range profile {
		pts[i] = v3.Vec{X: p.X, Y: p.Y, Z: z0}
		pts[n+i] = v3.Vec{X: p.X, Y: p.Y, Z: z0 + height}
	}
	bottom := make([]int, n)
	top := make([]int, n)
	for i := range n {
		bottom[i] = n - 1 - i
		top[i] = n + i
	}
	faces := [][]int{bottom, top}
	for i := range n {
		j := (i + 1) % n
		faces = append(faces, []int{i, j, n + j, n + i})
	}
	return MakePolyhedron(pts, faces, DefaultTolerance)
}

// Cylinder approximates a cylinder centered at the origin along Z with a
// regular polygonal prism.
func Cylinder(radius, height float64, segments int) (Shape, error) {
	if segments < 3 {
		segments = 3
	}
	if radius <= 0 {
		return Shape{}, fmt.Errorf("topo: cylinder radius %g must be positive", radius)
	}
	profile := make([]v3.Vec, segments)
	for i := range profile {
		a := 2 * math.Pi * float64(i) / float64(segments)
		profile[i] = v3.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return Prism(profile, -height/2, height)
}
