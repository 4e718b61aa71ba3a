package ds

import (
	"fmt"
	"iter"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/xylem/pkg/intersect"
)

// InterfKind identifies the pair of shape types of an interference.
type InterfKind int

const (
	VV InterfKind = iota
	VE
	EE
	VF
	EF
	FF
	numInterfKinds
)

// InterfKinds lists every interference kind in pass order.
var InterfKinds = []InterfKind{VV, VE, EE, VF, EF, FF}

func (k InterfKind) String() string {
	switch k {
	case VV:
		return "VV"
	case VE:
		return "VE"
	case EE:
		return "EE"
	case VF:
		return "VF"
	case EF:
		return "EF"
	case FF:
		return "FF"
	default:
		return fmt.Sprintf("InterfKind(%d)", int(k))
	}
}

// Payload is the kind-specific part of an interference. The set of payload
// types is closed; consumers switch on the concrete type.
type Payload interface {
	payload()
}

// VVData records two vertices merged into NewVertex.
type VVData struct {
	NewVertex int
}

// VEData records a vertex lying on an edge at Param.
type VEData struct {
	Param    float64
	Distance float64
}

// EEData records a crossing (Vertex at Param1/Param2) or a coincident portion
// (Range1/Range2) of two edges.
type EEData struct {
	Kind           intersect.Kind
	Param1, Param2 float64
	Range1, Range2 [2]float64
	Vertex         int
}

// VFData records a vertex lying on a face.
type VFData struct {
	UV       v2.Vec
	Distance float64
}

// EFData records an edge crossing a face (Vertex at Param) or lying in it
// over Ranges.
type EFData struct {
	Kind   intersect.Kind
	Param  float64
	Ranges [][2]float64
	Vertex int
}

// FFData records the section edges and isolated vertices of two faces, or
// Tangent when the faces are coplanar and touch.
type FFData struct {
	Tangent bool
	Curves  []int
	Points  []int
}

func (VVData) payload() {}
func (VEData) payload() {}
func (EEData) payload() {}
func (VFData) payload() {}
func (EFData) payload() {}
func (FFData) payload() {}

// Interference is a recorded intersection between rows Index1 and Index2.
// For VE, VF and EF the lower-dimensional shape comes first; for VV, EE and
// FF Index1 < Index2.
type Interference struct {
	Kind    InterfKind
	Index1  int
	Index2  int
	Payload Payload
}

type couple struct {
	kind InterfKind
	i, j int
}

func coupleOf(in Interference) couple {
	i, j := in.Index1, in.Index2
	if i > j {
		i, j = j, i
	}
	return couple{in.Kind, i, j}
}

func (in Interference) check(d *DS) {
	d.Shape(in.Index1)
	d.Shape(in.Index2)
	ok := false
	switch in.Payload.(type) {
	case VVData:
		ok = in.Kind == VV
	case VEData:
		ok = in.Kind == VE
	case EEData:
		ok = in.Kind == EE
	case VFData:
		ok = in.Kind == VF
	case EFData:
		ok = in.Kind == EF
	case FFData:
		ok = in.Kind == FF
	}
	if !ok {
		panic(fmt.Sprintf("ds: %s interference with payload %T", in.Kind, in.Payload))
	}
}

// AddInterference records an interference unless the same pair of the same
// kind is already registered. It returns the position of the record and
// whether it was added. Invalid indices or a payload of the wrong kind panic.
func (d *DS) AddInterference(in Interference) (int, bool) {
	in.check(d)
	key := coupleOf(in)
	d.imu.Lock()
	defer d.imu.Unlock()
	if pos, ok := d.couples[key]; ok {
		return pos, false
	}
	d.interfs[in.Kind] = append(d.interfs[in.Kind], in)
	pos := len(d.interfs[in.Kind]) - 1
	d.couples[key] = pos
	return pos, true
}

// HasInterference reports whether i and j have an interference of kind k.
func (d *DS) HasInterference(k InterfKind, i, j int) bool {
	_, ok := d.Interference(k, i, j)
	return ok
}

// Interference returns the interference of kind k between i and j.
func (d *DS) Interference(k InterfKind, i, j int) (Interference, bool) {
	d.imu.Lock()
	defer d.imu.Unlock()
	pos, ok := d.couples[coupleOf(Interference{Kind: k, Index1: i, Index2: j})]
	if !ok {
		return Interference{}, false
	}
	return d.interfs[k][pos], true
}

// InterferencesOf returns a lazy sequence over the interferences of kind k
// recorded so far.
func (d *DS) InterferencesOf(k InterfKind) iter.Seq[Interference] {
	return func(yield func(Interference) bool) {
		d.imu.Lock()
		snapshot := d.interfs[k]
		d.imu.Unlock()
		for _, in := range snapshot {
			if !yield(in) {
				return
			}
		}
	}
}

// CountInterferences returns the number of interferences of kind k.
func (d *DS) CountInterferences(k InterfKind) int {
	d.imu.Lock()
	defer d.imu.Unlock()
	return len(d.interfs[k])
}

// InterferencesWith returns every interference involving row i.
func (d *DS) InterferencesWith(i int) []Interference {
	d.imu.Lock()
	defer d.imu.Unlock()
	var out []Interference
	for _, list := range d.interfs {
		for _, in := range list {
			if in.Index1 == i || in.Index2 == i {
				out = append(out, in)
			}
		}
	}
	return out
}
