package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Plane is an oriented plane with an orthonormal in-plane frame.
// XDir x YDir == Normal, so a loop that is counter-clockwise in (u, v)
// coordinates turns counter-clockwise about Normal.
type Plane struct {
	Origin v3.Vec
	Normal v3.Vec
	XDir   v3.Vec
	YDir   v3.Vec
}

// NewPlane returns the plane through origin with the given normal.
// The normal need not be unit length. Returns nil for a zero normal.
func NewPlane(origin, normal v3.Vec) *Plane {
	n := normal.Length()
	if n <= Angular || !Finite(normal) {
		return nil
	}
	nz := normal.MulScalar(1 / n)
	ref := v3.Vec{X: 1}
	if math.Abs(nz.X) > 0.9 {
		ref = v3.Vec{Y: 1}
	}
	x := ref.Sub(nz.MulScalar(ref.Dot(nz))).Normalize()
	return &Plane{Origin: origin, Normal: nz, XDir: x, YDir: nz.Cross(x)}
}

// PlaneFromLoop fits a plane to a closed loop using Newell's method.
// The plane normal follows the loop's counter-clockwise orientation.
func PlaneFromLoop(pts []v3.Vec) *Plane {
	if len(pts) < 3 {
		return nil
	}
	return NewPlane(pts[0], NewellNormal(pts))
}

// NewellNormal returns twice the vector area of a closed loop.
func NewellNormal(pts []v3.Vec) v3.Vec {
	var n v3.Vec
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}

// Reversed returns the plane with the opposite normal through the same origin.
func (p *Plane) Reversed() *Plane {
	return NewPlane(p.Origin, p.Normal.MulScalar(-1))
}

// Distance returns the signed distance from q to the plane.
func (p *Plane) Distance(q v3.Vec) float64 {
	return q.Sub(p.Origin).Dot(p.Normal)
}

// Project returns the in-plane coordinates of q.
func (p *Plane) Project(q v3.Vec) v2.Vec {
	d := q.Sub(p.Origin)
	return v2.Vec{X: d.Dot(p.XDir), Y: d.Dot(p.YDir)}
}

// ProjectDir returns the in-plane components of a direction.
func (p *Plane) ProjectDir(d v3.Vec) v2.Vec {
	return v2.Vec{X: d.Dot(p.XDir), Y: d.Dot(p.YDir)}
}

// Value maps in-plane coordinates back to model space.
func (p *Plane) Value(uv v2.Vec) v3.Vec {
	return p.Origin.Add(p.XDir.MulScalar(uv.X)).Add(p.YDir.MulScalar(uv.Y))
}

// Deviation samples NControl points of s and returns the largest distance
// of a sample or an end point from the plane.
func (p *Plane) Deviation(s Segment) float64 {
	d := math.Max(math.Abs(p.Distance(s.Start())), math.Abs(p.Distance(s.End())))
	for _, t := range s.Samples(NControl) {
		d = math.Max(d, math.Abs(p.Distance(s.Value(t))))
	}
	return d
}
