package scene

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/topo"
)

// Report summarises a performed scene.
type Report struct {
	Operation string     `json:"operation" yaml:"operation"`
	Done      bool       `json:"done" yaml:"done"`
	Result    Summary    `json:"result" yaml:"result"`
	Arguments []Argument `json:"arguments" yaml:"arguments"`
	Alerts    []Entry    `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// Summary counts the result's sub-shapes.
type Summary struct {
	Solids   int        `json:"solids" yaml:"solids"`
	Faces    int        `json:"faces" yaml:"faces"`
	Edges    int        `json:"edges" yaml:"edges"`
	Vertices int        `json:"vertices" yaml:"vertices"`
	Volume   float64    `json:"volume" yaml:"volume"`
	Min      [3]float64 `json:"min" yaml:"min,flow"`
	Max      [3]float64 `json:"max" yaml:"max,flow"`
}

// Argument is the face history of one argument: how many of its faces
// were kept whole, split, or dropped, and how many section edges and
// vertices they generated.
type Argument struct {
	Name      string `json:"name" yaml:"name"`
	Role      string `json:"role" yaml:"role"`
	Faces     int    `json:"faces" yaml:"faces"`
	Kept      int    `json:"kept" yaml:"kept"`
	Split     int    `json:"split" yaml:"split"`
	Deleted   int    `json:"deleted" yaml:"deleted"`
	Generated int    `json:"generated" yaml:"generated"`
}

// Entry is one alert.
type Entry struct {
	Kind     string `json:"kind" yaml:"kind"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// NewReport summarises res.
func NewReport(sc *Scene, res *Result) *Report {
	b := res.Builder
	r := &Report{Operation: b.Operation().String(), Done: b.IsDone()}
	for _, a := range b.Report().Alerts() {
		r.Alerts = append(r.Alerts, entry(a))
	}

	if out := b.Shape(); !out.IsNull() {
		r.Result = Summary{
			Solids:   topo.Count(out, topo.Solid),
			Faces:    topo.Count(out, topo.Face),
			Edges:    topo.Count(out, topo.Edge),
			Vertices: topo.Count(out, topo.Vertex),
			Volume:   topo.SolidsVolume(out),
		}
		if box, ok := topo.BoundingBox(out); ok {
			r.Result.Min = [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
			r.Result.Max = [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
		}
	}

	h := b.History()
	add := func(role string, specs []Shape, shapes []topo.Shape) {
		for i, s := range shapes {
			arg := Argument{Name: specs[i].Label(), Role: role}
			for _, f := range s.Explore(topo.Face) {
				arg.Faces++
				if h == nil {
					continue
				}
				switch n := len(h.Modified(f)); {
				case h.IsDeleted(f):
					arg.Deleted++
				case n == 1:
					arg.Kept++
				case n > 1:
					arg.Split++
				}
				arg.Generated += len(h.Generated(f))
			}
			r.Arguments = append(r.Arguments, arg)
		}
	}
	add("object", sc.Objects, res.Objects)
	add("tool", sc.Tools, res.Tools)
	return r
}

func entry(a alert.Alert) Entry {
	return Entry{Kind: a.Kind.String(), Severity: a.Kind.Severity(), Message: a.Message}
}

// Encode writes the report as "yaml" or "json".
func (r *Report) Encode(w io.Writer, format string) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("scene: unknown report format %q", format)
}
