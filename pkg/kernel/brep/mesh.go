package brep

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/xylem/pkg/geom"
	"github.com/chazu/xylem/pkg/kernel"
	"github.com/chazu/xylem/pkg/topo"
)

// faceTriangles triangulates one face in model space, wound about its
// outward normal.
func faceTriangles(f topo.Shape) []sdf.Triangle3 {
	loops := f.Loops()
	if len(loops) == 0 || len(loops[0]) < 3 {
		return nil
	}
	frame := geom.NewPlane(loops[0][0], f.Normal())
	if frame == nil {
		return nil
	}
	var pts []v3.Vec
	flat := make([][]v2.Vec, len(loops))
	for i, l := range loops {
		flat[i] = make([]v2.Vec, len(l))
		for j, p := range l {
			flat[i][j] = frame.Project(p)
			pts = append(pts, p)
		}
	}
	tris := triangulate(flat)
	out := make([]sdf.Triangle3, len(tris))
	for i, t := range tris {
		out[i] = sdf.Triangle3{pts[t[0]], pts[t[1]], pts[t[2]]}
	}
	return out
}

// Triangles returns the triangles of every face of s.
func Triangles(s topo.Shape) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, f := range s.Explore(topo.Face) {
		for _, t := range faceTriangles(f) {
			out = append(out, &t)
		}
	}
	return out
}

// ToMesh converts a solid to a flat-shaded triangle mesh. Edges that bound
// no face become line segments.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	b, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	m := &kernel.Mesh{}
	if b.shape.IsNull() {
		return m, nil
	}

	add := func(p, n v3.Vec) uint32 {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		return uint32(len(m.Vertices)/3 - 1)
	}

	bounded := make(map[topo.Key]bool)
	for _, f := range b.shape.Explore(topo.Face) {
		n := f.Normal()
		for _, t := range faceTriangles(f) {
			for _, p := range t {
				m.Indices = append(m.Indices, add(p, n))
			}
		}
		for _, e := range f.Explore(topo.Edge) {
			bounded[e.Key()] = true
		}
	}
	for _, e := range b.shape.Explore(topo.Edge) {
		if bounded[e.Key()] {
			continue
		}
		v1, v2 := e.Vertices()
		m.Lines = append(m.Lines, add(v1.Point(), v3.Vec{}), add(v2.Point(), v3.Vec{}))
	}
	return m, nil
}

// SaveSTL writes the faces of s to an STL file.
func (k *Kernel) SaveSTL(path string, s kernel.Solid) error {
	b, err := unwrap(s)
	if err != nil {
		return err
	}
	if err := render.SaveSTL(path, Triangles(b.shape)); err != nil {
		return fmt.Errorf("brep: save %s: %w", path, err)
	}
	return nil
}
