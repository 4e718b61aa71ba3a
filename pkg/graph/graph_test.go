package graph

import "testing"

func TestNewDesignGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.Defaults.Segments != DefaultSegments {
		t.Errorf("default segments = %d, want %d", g.Defaults.Segments, DefaultSegments)
	}
	if g.Defaults.Units != "mm" {
		t.Errorf("default units = %q, want %q", g.Defaults.Units, "mm")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := NewNodeID("defsolid/base")
	g.AddNode(&Node{ID: id, Kind: NodePrimitive, Name: "base", Data: BoxData{Size: Vec3{X: 10, Y: 10, Z: 10}}})
	g.AddRoot(id)
	g.AddRoot(id)

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
	if len(g.Roots) != 1 {
		t.Errorf("roots = %d, want 1", len(g.Roots))
	}
	if found := g.Lookup("base"); found == nil || found.ID != id {
		t.Fatal("Lookup(base) did not return the node")
	}
	if must := g.MustLookup("base"); must.ID != id {
		t.Error("MustLookup returned wrong node")
	}
	if g.Lookup("missing") != nil {
		t.Error("Lookup(missing) should return nil")
	}
	if g.Get(id) == nil {
		t.Error("Get should find the node by ID")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup on a missing name should panic")
		}
	}()
	New().MustLookup("nope")
}

func TestNodeIDsAreStable(t *testing.T) {
	a := NewNodeID("bfuse/1")
	b := NewNodeID("bfuse/1")
	c := NewNodeID("bfuse/2")
	if a != b {
		t.Errorf("same path gave %s and %s", a, b)
	}
	if a == c {
		t.Error("different paths gave the same ID")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 characters", a.Short())
	}
	if a.IsZero() || !ZeroID.IsZero() {
		t.Error("IsZero is wrong")
	}
}

func TestChildrenAndOfKind(t *testing.T) {
	g := New()
	a := NewNodeID("a")
	b := NewNodeID("b")
	op := NewNodeID("op")
	g.AddNode(&Node{ID: a, Kind: NodePrimitive, Data: BoxData{Size: Vec3{X: 1, Y: 1, Z: 1}}})
	g.AddNode(&Node{ID: b, Kind: NodePrimitive, Data: BoxData{Size: Vec3{X: 1, Y: 1, Z: 1}}})
	g.AddNode(&Node{
		ID: op, Kind: NodeBoolean, Children: []NodeID{a, b, NewNodeID("gone")},
		Data: BooleanData{Op: "fuse", Objects: []NodeID{a}, Tools: []NodeID{b}},
	})

	if got := len(g.Children(g.Get(op))); got != 2 {
		t.Errorf("children = %d, want 2 (missing child skipped)", got)
	}
	if got := len(g.OfKind(NodePrimitive)); got != 2 {
		t.Errorf("primitives = %d, want 2", got)
	}
	if got := g.Get(op).Label(); got != op.Short() {
		t.Errorf("Label() of unnamed node = %q, want short ID", got)
	}
}

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{NodePrimitive, "primitive"},
		{NodeTransform, "transform"},
		{NodeBoolean, "boolean"},
		{NodeGroup, "group"},
		{NodeKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("NodeKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestUnreferenced(t *testing.T) {
	g := New()
	a, b, c := NewNodeID("a"), NewNodeID("b"), NewNodeID("c")
	g.AddNode(&Node{ID: a, Kind: NodePrimitive})
	g.AddNode(&Node{ID: b, Kind: NodePrimitive})
	g.AddNode(&Node{ID: c, Kind: NodeTransform, Children: []NodeID{a}})

	got := g.Unreferenced([]NodeID{a, b, c, NewNodeID("never added")})
	if len(got) != 2 || got[0] != b || got[1] != c {
		t.Errorf("Unreferenced = %v, want [b c] in creation order", got)
	}
}
