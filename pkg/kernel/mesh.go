package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Lines holds 2 indices per segment for edges that bound no face, such as
// the result of a section.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Lines    []uint32  `json:"lines,omitempty"`
	PartName string    `json:"partName"` // which design graph node this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// LineCount returns the number of line segments.
func (m *Mesh) LineCount() int {
	return len(m.Lines) / 2
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

func (m *Mesh) vertex(i uint32) [3]float64 {
	return [3]float64{float64(m.Vertices[3*i]), float64(m.Vertices[3*i+1]), float64(m.Vertices[3*i+2])}
}

// Volume returns the signed volume enclosed by the triangles. It is
// positive for closed meshes wound counter-clockwise seen from outside.
func (m *Mesh) Volume() float64 {
	var v float64
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.vertex(m.Indices[t]), m.vertex(m.Indices[t+1]), m.vertex(m.Indices[t+2])
		v += a[0]*(b[1]*c[2]-b[2]*c[1]) - a[1]*(b[0]*c[2]-b[2]*c[0]) + a[2]*(b[0]*c[1]-b[1]*c[0])
	}
	return v / 6
}

// Area returns the total triangle area.
func (m *Mesh) Area() float64 {
	var s float64
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.vertex(m.Indices[t]), m.vertex(m.Indices[t+1]), m.vertex(m.Indices[t+2])
		u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		w := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		x := u[1]*w[2] - u[2]*w[1]
		y := u[2]*w[0] - u[0]*w[2]
		z := u[0]*w[1] - u[1]*w[0]
		s += math.Sqrt(x*x+y*y+z*z) / 2
	}
	return s
}

// Append adds the geometry of o to m, renumbering its indices.
func (m *Mesh) Append(o *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, i := range o.Indices {
		m.Indices = append(m.Indices, base+i)
	}
	for _, i := range o.Lines {
		m.Lines = append(m.Lines, base+i)
	}
}
