// Package tessellate walks a design graph and produces triangle meshes
// using a geometry kernel. One mesh is produced per part: a primitive or a
// Boolean operation reached from a root through transforms and groups.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/xylem/pkg/graph"
	"github.com/chazu/xylem/pkg/kernel"
)

// transformStack accumulates placements during graph traversal, outermost
// first.
type transformStack struct {
	translations []graph.Vec3
	rotations    []graph.Vec3
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(translation, rotation graph.Vec3) {
	ts.translations = append(ts.translations, translation)
	ts.rotations = append(ts.rotations, rotation)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
		ts.rotations = ts.rotations[:len(ts.rotations)-1]
	}
}

// apply places s by every transform on the stack. Each level rotates
// before it translates, and inner levels are applied first.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.translations) - 1; i >= 0; i-- {
		if r := ts.rotations[i]; r != (graph.Vec3{}) {
			s = k.Rotate(s, r.X, r.Y, r.Z)
		}
		if t := ts.translations[i]; t != (graph.Vec3{}) {
			s = k.Translate(s, t.X, t.Y, t.Z)
		}
	}
	return s
}

// Part is a solid produced for one primitive or Boolean node, placed in
// model space.
type Part struct {
	Node  graph.NodeID
	Name  string
	Solid kernel.Solid
}

// Diagnostic is a kernel diagnostic attributed to the part it came from.
type Diagnostic struct {
	kernel.Diagnostic
	Node graph.NodeID
	Part string
}

// Result holds the meshes of every part and the diagnostics raised while
// building them.
type Result struct {
	Meshes      []*kernel.Mesh
	Diagnostics []Diagnostic
}

// Blocking reports whether any diagnostic stopped an operation.
func (r *Result) Blocking() bool {
	for _, d := range r.Diagnostics {
		if d.Blocking {
			return true
		}
	}
	return false
}

// Tessellate evaluates the design graph and meshes every part using the
// provided geometry kernel. The tessellator is read-only and never mutates
// the graph.
func Tessellate(ctx context.Context, g *graph.DesignGraph, k kernel.Kernel) (*Result, error) {
	parts, err := Evaluate(ctx, g, k)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, p := range parts {
		mesh, err := k.ToMesh(p.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for node %s: %w", p.Node.Short(), err)
		}
		mesh.PartName = p.Name
		res.Meshes = append(res.Meshes, mesh)
		for _, d := range kernel.DiagnosticsOf(p.Solid) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Diagnostic: d, Node: p.Node, Part: p.Name})
		}
	}
	return res, nil
}

// Evaluate builds the solid of every part reachable from the graph roots.
func Evaluate(ctx context.Context, g *graph.DesignGraph, k kernel.Kernel) ([]Part, error) {
	if g == nil {
		return nil, nil
	}
	w := &walker{ctx: ctx, g: g, k: k, ts: newTransformStack(), active: make(map[graph.NodeID]bool)}

	var parts []Part
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := w.walk(root)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

type walker struct {
	ctx    context.Context
	g      *graph.DesignGraph
	k      kernel.Kernel
	ts     *transformStack
	active map[graph.NodeID]bool
}

// walk recursively traverses a node and its children, collecting parts.
func (w *walker) walk(n *graph.Node) ([]Part, error) {
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	if w.active[n.ID] {
		return nil, fmt.Errorf("node %s is its own descendant", n.Label())
	}
	w.active[n.ID] = true
	defer delete(w.active, n.ID)

	switch n.Kind {
	case graph.NodePrimitive:
		return w.primitive(n)
	case graph.NodeTransform:
		return w.transform(n)
	case graph.NodeGroup:
		return w.group(n)
	case graph.NodeBoolean:
		return w.boolean(n)
	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// primitive creates geometry for a primitive node.
func (w *walker) primitive(n *graph.Node) ([]Part, error) {
	var (
		solid kernel.Solid
		err   error
	)
	switch data := n.Data.(type) {
	case graph.BoxData:
		solid, err = w.k.Box(data.Size.X, data.Size.Y, data.Size.Z)
	case graph.CylinderData:
		seg := data.Segments
		if seg == 0 {
			seg = w.g.Defaults.Segments
		}
		if seg == 0 {
			seg = graph.DefaultSegments
		}
		solid, err = w.k.Cylinder(data.Height, data.Radius, seg)
	case graph.PrismData:
		profile := make([][2]float64, len(data.Profile))
		for i, p := range data.Profile {
			profile[i] = [2]float64{p.X, p.Y}
		}
		solid, err = w.k.Prism(profile, data.Height)
	case graph.PolygonData:
		pts := make([][3]float64, len(data.Points))
		for i, p := range data.Points {
			pts[i] = [3]float64{p.X, p.Y, p.Z}
		}
		solid, err = w.k.Polygon(pts)
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("primitive %s: %w", n.Label(), err)
	}
	return []Part{{Node: n.ID, Name: n.Label(), Solid: w.ts.apply(w.k, solid)}}, nil
}

// transform pushes the placement, recurses into children, then pops.
func (w *walker) transform(n *graph.Node) ([]Part, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	var translation, rotation graph.Vec3
	if td.Translation != nil {
		translation = *td.Translation
	}
	if td.Rotation != nil {
		rotation = *td.Rotation
	}
	w.ts.push(translation, rotation)
	defer w.ts.pop()
	return w.children(n)
}

// group recurses into children transparently.
func (w *walker) group(n *graph.Node) ([]Part, error) {
	return w.children(n)
}

func (w *walker) children(n *graph.Node) ([]Part, error) {
	var parts []Part
	for _, child := range w.g.Children(n) {
		collected, err := w.walk(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

// boolean evaluates both argument groups in model space and runs the
// operation over them. Operands under a group contribute every part.
func (w *walker) boolean(n *graph.Node) ([]Part, error) {
	bd, ok := n.Data.(graph.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	objects, err := w.operands(n, bd.Objects)
	if err != nil {
		return nil, err
	}
	tools, err := w.operands(n, bd.Tools)
	if err != nil {
		return nil, err
	}
	fuzzy := bd.Fuzzy
	if fuzzy <= 0 {
		fuzzy = w.g.Defaults.Fuzzy
	}
	solid, err := w.k.Boolean(w.ctx, bd.Op, objects, tools, fuzzy)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", bd.Op, n.Label(), err)
	}
	return []Part{{Node: n.ID, Name: n.Label(), Solid: solid}}, nil
}

func (w *walker) operands(n *graph.Node, ids []graph.NodeID) ([]kernel.Solid, error) {
	var out []kernel.Solid
	for _, id := range ids {
		c := w.g.Get(id)
		if c == nil {
			return nil, fmt.Errorf("%s: operand %s does not exist", n.Label(), id.Short())
		}
		parts, err := w.walk(c)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			out = append(out, p.Solid)
		}
	}
	return out, nil
}
