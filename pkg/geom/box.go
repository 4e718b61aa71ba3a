package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BoxOf returns the smallest axis-aligned box containing the points.
func BoxOf(pts ...v3.Vec) sdf.Box3 {
	b := sdf.Box3{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = sdf.Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
	}
	return b
}

// Inflate grows a box by d on every side.
func Inflate(b sdf.Box3, d float64) sdf.Box3 {
	e := v3.Vec{X: d, Y: d, Z: d}
	return sdf.Box3{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Overlap reports whether two boxes intersect, touching included.
func Overlap(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// Diagonal returns the length of the box diagonal.
func Diagonal(b sdf.Box3) float64 {
	return b.Max.Sub(b.Min).Length()
}

// OBB is an oriented bounding box: Center plus half extents along three
// orthonormal axes.
type OBB struct {
	Center v3.Vec
	Axes   [3]v3.Vec
	Half   [3]float64
}

// WorldAxes is the identity frame.
var WorldAxes = [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// NewOBB fits a box with the given orthonormal axes around the points,
// enlarged by tol along each axis.
func NewOBB(pts []v3.Vec, axes [3]v3.Vec, tol float64) OBB {
	var o OBB
	o.Axes = axes
	for k, ax := range axes {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range pts {
			d := p.Dot(ax)
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
		}
		o.Center = o.Center.Add(ax.MulScalar((lo + hi) / 2))
		o.Half[k] = (hi-lo)/2 + tol
	}
	return o
}

// FrameAxes returns an orthonormal frame whose first axis is d.
func FrameAxes(d v3.Vec) [3]v3.Vec {
	p := NewPlane(v3.Vec{}, d)
	if p == nil {
		return WorldAxes
	}
	return [3]v3.Vec{p.Normal, p.XDir, p.YDir}
}

// Overlaps runs the separating axis test over the 15 candidate axes.
func (a OBB) Overlaps(b OBB) bool {
	t := b.Center.Sub(a.Center)
	axes := make([]v3.Vec, 0, 15)
	axes = append(axes, a.Axes[:]...)
	axes = append(axes, b.Axes[:]...)
	for _, u := range a.Axes {
		for _, w := range b.Axes {
			c := u.Cross(w)
			if n := c.Length(); n > 1e-9 {
				axes = append(axes, c.MulScalar(1/n))
			}
		}
	}
	for _, l := range axes {
		if math.Abs(t.Dot(l)) > a.radius(l)+b.radius(l) {
			return false
		}
	}
	return true
}

func (a OBB) radius(l v3.Vec) float64 {
	var r float64
	for k, ax := range a.Axes {
		r += a.Half[k] * math.Abs(ax.Dot(l))
	}
	return r
}
