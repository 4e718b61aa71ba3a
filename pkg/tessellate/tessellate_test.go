package tessellate_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/xylem/pkg/graph"
	"github.com/chazu/xylem/pkg/kernel"
	"github.com/chazu/xylem/pkg/kernel/brep"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/tessellate"
)

// newKernel returns a fresh brep kernel for testing.
func newKernel() kernel.Kernel {
	return brep.New(paver.Options{})
}

// makeBox creates a box primitive node with the given name and size.
func makeBox(name string, x, y, z float64) *graph.Node {
	return &graph.Node{
		ID:   graph.NewNodeID(name),
		Kind: graph.NodePrimitive,
		Name: name,
		Data: graph.BoxData{Size: graph.Vec3{X: x, Y: y, Z: z}},
	}
}

// makePlace creates a transform node with a translation and rotation.
func makePlace(name string, at, rot graph.Vec3, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeTransform,
		Name:     name,
		Children: children,
		Data:     graph.TransformData{Translation: &at, Rotation: &rot},
	}
}

// makeGroup creates a group node with children.
func makeGroup(name string, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeGroup,
		Name:     name,
		Children: children,
		Data:     graph.GroupData{Description: name},
	}
}

// makeBoolean creates an operation node over objects and tools.
func makeBoolean(name, op string, objects, tools []graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(name),
		Kind:     graph.NodeBoolean,
		Name:     name,
		Children: append(append([]graph.NodeID{}, objects...), tools...),
		Data:     graph.BooleanData{Op: op, Objects: objects, Tools: tools},
	}
}

func run(t *testing.T, g *graph.DesignGraph) *tessellate.Result {
	t.Helper()
	res, err := tessellate.Tessellate(context.Background(), g, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	return res
}

// bounds returns the extent of the mesh vertices.
func bounds(m *kernel.Mesh) (lo, hi [3]float64) {
	for i := range 3 {
		lo[i], hi[i] = math.Inf(1), math.Inf(-1)
	}
	for i := 0; i < len(m.Vertices); i += 3 {
		for j := range 3 {
			v := float64(m.Vertices[i+j])
			lo[j], hi[j] = math.Min(lo[j], v), math.Max(hi[j], v)
		}
	}
	return lo, hi
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestSingleBox(t *testing.T) {
	g := graph.New()
	b := makeBox("block", 1, 2, 3)
	g.AddNode(b)
	g.AddRoot(b.ID)

	res := run(t, g)
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
	}
	m := res.Meshes[0]
	if m.PartName != "block" {
		t.Errorf("expected PartName %q, got %q", "block", m.PartName)
	}
	if m.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", m.TriangleCount())
	}
	if !near(m.Volume(), 6) {
		t.Errorf("volume = %.4f, expected 6", m.Volume())
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestUnnamedPartUsesShortID(t *testing.T) {
	g := graph.New()
	b := makeBox("", 1, 1, 1)
	b.ID = graph.NewNodeID("anon")
	g.AddNode(b)
	g.AddRoot(b.ID)

	res := run(t, g)
	if got := res.Meshes[0].PartName; got != b.ID.Short() {
		t.Errorf("expected PartName %q, got %q", b.ID.Short(), got)
	}
}

func TestNestedTransformsCompose(t *testing.T) {
	g := graph.New()
	b := makeBox("bar", 1, 1, 1)
	inner := makePlace("inner", graph.Vec3{X: 10}, graph.Vec3{}, b.ID)
	outer := makePlace("outer", graph.Vec3{Z: 5}, graph.Vec3{Z: 90}, inner.ID)
	for _, n := range []*graph.Node{b, inner, outer} {
		g.AddNode(n)
	}
	g.AddRoot(outer.ID)

	res := run(t, g)
	if len(res.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
	}
	lo, hi := bounds(res.Meshes[0])
	want := [2][3]float64{{-1, 10, 5}, {0, 11, 6}}
	for i := range 3 {
		if !near(lo[i], want[0][i]) || !near(hi[i], want[1][i]) {
			t.Errorf("axis %d spans [%.3f, %.3f], expected [%.0f, %.0f]", i, lo[i], hi[i], want[0][i], want[1][i])
		}
	}
}

func TestGroupYieldsOneMeshPerChild(t *testing.T) {
	g := graph.New()
	a := makeBox("a", 1, 1, 1)
	b := makeBox("b", 2, 1, 1)
	grp := makeGroup("pair", a.ID, b.ID)
	for _, n := range []*graph.Node{a, b, grp} {
		g.AddNode(n)
	}
	g.AddRoot(grp.ID)

	res := run(t, g)
	if len(res.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(res.Meshes))
	}
	names := map[string]bool{}
	for _, m := range res.Meshes {
		names[m.PartName] = true
	}
	if !names["a"] || !names["b"] {
		t.Errorf("missing part meshes: %v", names)
	}
}

// overlapping returns two 10mm cubes, the second placed at (5, 5, 5).
func overlapping(g *graph.DesignGraph) (graph.NodeID, graph.NodeID) {
	a := makeBox("a", 10, 10, 10)
	b := makeBox("b", 10, 10, 10)
	pb := makePlace("pb", graph.Vec3{X: 5, Y: 5, Z: 5}, graph.Vec3{}, b.ID)
	for _, n := range []*graph.Node{a, b, pb} {
		g.AddNode(n)
	}
	return a.ID, pb.ID
}

func TestBooleanOperations(t *testing.T) {
	for _, tc := range []struct {
		op     string
		volume float64
	}{
		{"fuse", 1875},
		{"common", 125},
		{"cut", 875},
		{"cut21", 875},
	} {
		t.Run(tc.op, func(t *testing.T) {
			g := graph.New()
			a, b := overlapping(g)
			op := makeBoolean("result", tc.op, []graph.NodeID{a}, []graph.NodeID{b})
			g.AddNode(op)
			g.AddRoot(op.ID)

			res := run(t, g)
			if len(res.Meshes) != 1 {
				t.Fatalf("expected 1 mesh, got %d", len(res.Meshes))
			}
			if got := res.Meshes[0].Volume(); !near(got, tc.volume) {
				t.Errorf("volume = %.3f, expected %.0f", got, tc.volume)
			}
			if res.Blocking() {
				t.Errorf("unexpected blocking diagnostics: %v", res.Diagnostics)
			}
		})
	}
}

func TestPlacedBooleanOperand(t *testing.T) {
	g := graph.New()
	a, b := overlapping(g)
	cut := makeBoolean("cut", "cut", []graph.NodeID{a}, []graph.NodeID{b})
	moved := makePlace("moved", graph.Vec3{X: 100}, graph.Vec3{}, cut.ID)
	g.AddNode(cut)
	g.AddNode(moved)
	g.AddRoot(moved.ID)

	res := run(t, g)
	lo, hi := bounds(res.Meshes[0])
	if !near(lo[0], 100) || !near(hi[0], 110) {
		t.Errorf("x spans [%.3f, %.3f], expected [100, 110]", lo[0], hi[0])
	}
}

func TestSectionProducesLines(t *testing.T) {
	g := graph.New()
	a, b := overlapping(g)
	sec := makeBoolean("sec", "section", []graph.NodeID{a}, []graph.NodeID{b})
	g.AddNode(sec)
	g.AddRoot(sec.ID)

	res := run(t, g)
	m := res.Meshes[0]
	if m.TriangleCount() != 0 {
		t.Errorf("section should have no triangles, got %d", m.TriangleCount())
	}
	if m.LineCount() == 0 {
		t.Error("section should have line segments")
	}
}

func TestMissingOperand(t *testing.T) {
	g := graph.New()
	a := makeBox("a", 1, 1, 1)
	op := makeBoolean("bad", "fuse", []graph.NodeID{a.ID}, []graph.NodeID{graph.NewNodeID("ghost")})
	g.AddNode(a)
	g.AddNode(op)
	g.AddRoot(op.ID)

	if _, err := tessellate.Tessellate(context.Background(), g, newKernel()); err == nil {
		t.Fatal("expected an error for a missing operand")
	}
}

func TestCycleIsAnError(t *testing.T) {
	g := graph.New()
	p := makePlace("loop", graph.Vec3{}, graph.Vec3{})
	p.Children = []graph.NodeID{p.ID}
	g.AddNode(p)
	g.AddRoot(p.ID)

	if _, err := tessellate.Tessellate(context.Background(), g, newKernel()); err == nil {
		t.Fatal("expected an error for a cycle")
	}
}

func TestCancelled(t *testing.T) {
	g := graph.New()
	b := makeBox("block", 1, 1, 1)
	g.AddNode(b)
	g.AddRoot(b.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tessellate.Tessellate(ctx, g, newKernel())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEmptyGraph(t *testing.T) {
	res := run(t, graph.New())
	if len(res.Meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(res.Meshes))
	}
	parts, err := tessellate.Evaluate(context.Background(), nil, newKernel())
	if err != nil || parts != nil {
		t.Fatalf("nil graph: parts=%v err=%v", parts, err)
	}
}
