package engine

import (
	"strings"
	"testing"

	"github.com/chazu/xylem/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(cylinder :radius 5)`,
			expect: `(cylinder "__kw_radius" 5)`,
		},
		{
			name:   "multiple keywords",
			input:  `(box :x 4 :y 2)`,
			expect: `(box "__kw_x" 4 "__kw_y" 2)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw top-plate`",
			expect: "`raw :kw top-plate`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def top-plate 1)`,
			expect: `(def top_plate 1)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "subtraction of a digit preserved",
			input:  `x-1`,
			expect: `x-1`,
		},
		{
			name:   "comment converted to // style",
			input:  ";; comment with :keyword\n(box 1 1 1)",
			expect: "// comment with :keyword\n(box 1 1 1)",
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:head-dia`,
			expect: `"__kw_head-dia"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluate runs source and fails the test on any error.
func evaluate(t *testing.T, source string) *graph.DesignGraph {
	t.Helper()
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return g
}

// evalFails runs source and returns the eval error messages.
func evalFails(t *testing.T, source string) string {
	t.Helper()
	_, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatalf("expected eval errors for %q", source)
	}
	var msgs []string
	for _, e := range evalErrs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

func TestBoxForms(t *testing.T) {
	for _, src := range []string{
		`(defsolid "b" (box 4 5 6))`,
		`(defsolid "b" (box :size (vec3 4 5 6)))`,
		`(defsolid "b" (box :x 4 :y 5 :z 6))`,
	} {
		t.Run(src, func(t *testing.T) {
			g := evaluate(t, src)
			n := g.Lookup("b")
			if n == nil {
				t.Fatal("expected node named 'b'")
			}
			bd, ok := n.Data.(graph.BoxData)
			if !ok {
				t.Fatalf("expected BoxData, got %T", n.Data)
			}
			if bd.Size != (graph.Vec3{X: 4, Y: 5, Z: 6}) {
				t.Errorf("size = %v", bd.Size)
			}
			if n.ID != graph.NewNodeID("b") {
				t.Error("named solids should have name-derived IDs")
			}
		})
	}
}

func TestVariableReference(t *testing.T) {
	g := evaluate(t, `
(def r 2.5)
(defsolid "peg" (cylinder :radius r :height (* r 4) :segments 24))
`)
	peg := g.Lookup("peg")
	if peg == nil {
		t.Fatal("expected node named 'peg'")
	}
	cd, ok := peg.Data.(graph.CylinderData)
	if !ok {
		t.Fatalf("expected CylinderData, got %T", peg.Data)
	}
	if cd.Radius != 2.5 || cd.Height != 10 || cd.Segments != 24 {
		t.Errorf("cylinder = %+v", cd)
	}
}

func TestPrismAndPolygon(t *testing.T) {
	g := evaluate(t, `
(defsolid "wedge" (prism :profile (list (vec3 0 0 0) (vec3 10 0 0) (vec3 0 10 0)) :height 3))
(defsolid "cutter" (polygon (vec3 -1 -1 1) (vec3 11 -1 1) (vec3 11 11 1) (vec3 -1 11 1)))
`)
	pd, ok := g.MustLookup("wedge").Data.(graph.PrismData)
	if !ok {
		t.Fatalf("expected PrismData, got %T", g.MustLookup("wedge").Data)
	}
	if len(pd.Profile) != 3 || pd.Height != 3 {
		t.Errorf("prism = %+v", pd)
	}
	qd, ok := g.MustLookup("cutter").Data.(graph.PolygonData)
	if !ok {
		t.Fatalf("expected PolygonData, got %T", g.MustLookup("cutter").Data)
	}
	if len(qd.Points) != 4 || qd.Points[0].X != -1 {
		t.Errorf("polygon = %+v", qd)
	}
}

func TestVec3(t *testing.T) {
	msg := evalFails(t, `(vec3 1 2)`)
	if !strings.Contains(msg, "exactly 3") {
		t.Errorf("unexpected message: %s", msg)
	}
	msg = evalFails(t, `(vec3 1 "two" 3)`)
	if !strings.Contains(msg, "expected number") {
		t.Errorf("unexpected message: %s", msg)
	}
}

// ---------------------------------------------------------------------------
// Operations and roots
// ---------------------------------------------------------------------------

func TestCutWithPlacedTool(t *testing.T) {
	g := evaluate(t, `
(defsolid "block" (box 20 20 10))
(defsolid "hole" (cylinder :radius 4 :height 30))
(bcut (solid "block") (place (solid "hole") :at (vec3 10 10 5) :rotate (vec3 0 0 45)) :name "drilled")
`)
	// 2 primitives + 1 transform + 1 operation
	if g.NodeCount() != 4 {
		t.Fatalf("expected 4 nodes, got %d", g.NodeCount())
	}
	cut := g.Lookup("drilled")
	if cut == nil {
		t.Fatal("expected node named 'drilled'")
	}
	bd, ok := cut.Data.(graph.BooleanData)
	if !ok {
		t.Fatalf("expected BooleanData, got %T", cut.Data)
	}
	if bd.Op != "cut" || len(bd.Objects) != 1 || len(bd.Tools) != 1 {
		t.Errorf("operation = %+v", bd)
	}
	if bd.Objects[0] != g.MustLookup("block").ID {
		t.Error("object should be the block")
	}
	place := g.Get(bd.Tools[0])
	if place == nil || place.Kind != graph.NodeTransform {
		t.Fatalf("tool should be a transform, got %v", place)
	}
	td := place.Data.(graph.TransformData)
	if td.Translation == nil || *td.Translation != (graph.Vec3{X: 10, Y: 10, Z: 5}) {
		t.Errorf("translation = %v", td.Translation)
	}
	if td.Rotation == nil || td.Rotation.Z != 45 {
		t.Errorf("rotation = %v", td.Rotation)
	}

	// Without output, only the unused operation is a root.
	if len(g.Roots) != 1 || g.Roots[0] != cut.ID {
		t.Errorf("roots = %v, want [%s]", g.Roots, cut.ID.Short())
	}
	if r := graph.ValidateAll(g); !r.OK() {
		t.Errorf("validation failed: %v", r.Errors)
	}
}

func TestBooleanBuiltins(t *testing.T) {
	tests := []struct {
		builtin string
		op      string
		objects int
		tools   int
	}{
		{"bfuse", "fuse", 1, 2},
		{"bcommon", "common", 1, 2},
		{"bcut", "cut", 1, 2},
		{"bcut21", "cut21", 1, 2},
		{"bsection", "section", 1, 2},
		{"bsplit", "split", 1, 2},
		{"bgfuse", "gf", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.builtin, func(t *testing.T) {
			g := evaluate(t, "("+tt.builtin+" (box 1 1 1) (box 2 2 2) (box 3 3 3))")
			ops := g.OfKind(graph.NodeBoolean)
			if len(ops) != 1 {
				t.Fatalf("expected 1 operation, got %d", len(ops))
			}
			bd := ops[0].Data.(graph.BooleanData)
			if bd.Op != tt.op {
				t.Errorf("op = %q, want %q", bd.Op, tt.op)
			}
			if len(bd.Objects) != tt.objects || len(bd.Tools) != tt.tools {
				t.Errorf("objects=%d tools=%d, want %d and %d", len(bd.Objects), len(bd.Tools), tt.objects, tt.tools)
			}
			if len(ops[0].Children) != 3 {
				t.Errorf("expected 3 children, got %d", len(ops[0].Children))
			}
		})
	}
}

func TestOperandLists(t *testing.T) {
	g := evaluate(t, `
(defsolid "a" (box 1 1 1))
(defsolid "b" (box 1 1 1))
(defsolid "c" (box 1 1 1))
(bfuse :objects (list (solid "a") (solid "b")) :tools (list (solid "c") (solid "a")) :fuzzy 0.001)
`)
	ops := g.OfKind(graph.NodeBoolean)
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	bd := ops[0].Data.(graph.BooleanData)
	if len(bd.Objects) != 2 || len(bd.Tools) != 2 || bd.Fuzzy != 0.001 {
		t.Errorf("operation = %+v", bd)
	}
	if len(ops[0].Children) != 3 {
		t.Errorf("children should be deduplicated, got %d", len(ops[0].Children))
	}
	// a is both an object and a tool
	if r := graph.ValidateAll(g); r.OK() {
		t.Error("expected a validation error")
	}
}

func TestDefsolidNamesOperation(t *testing.T) {
	g := evaluate(t, `
(defsolid "body" (bfuse (box 1 1 1) (box 1 1 1)))
(output (solid "body"))
`)
	body := g.Lookup("body")
	if body == nil || body.Kind != graph.NodeBoolean {
		t.Fatalf("expected operation named 'body', got %v", body)
	}
	if len(g.Roots) != 1 || g.Roots[0] != body.ID {
		t.Errorf("roots = %v", g.Roots)
	}
}

func TestOutputSelectsRoots(t *testing.T) {
	g := evaluate(t, `
(defsolid "a" (box 1 1 1))
(defsolid "b" (box 2 2 2))
(defsolid "c" (box 3 3 3))
(output (solid "c") (solid "a") (solid "c"))
`)
	want := []graph.NodeID{g.MustLookup("c").ID, g.MustLookup("a").ID}
	if len(g.Roots) != 2 || g.Roots[0] != want[0] || g.Roots[1] != want[1] {
		t.Errorf("roots = %v, want %v", g.Roots, want)
	}
}

func TestImplicitRootsInCreationOrder(t *testing.T) {
	g := evaluate(t, `
(defsolid "z" (box 1 1 1))
(defsolid "y" (box 1 1 1))
(place (solid "z") :at (vec3 5 0 0))
`)
	if len(g.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(g.Roots))
	}
	if g.Roots[0] != g.MustLookup("y").ID {
		t.Errorf("first root should be y")
	}
	if g.Get(g.Roots[1]).Kind != graph.NodeTransform {
		t.Errorf("second root should be the placement")
	}
}

func TestBarePrimitivesBecomeRoots(t *testing.T) {
	g := evaluate(t, "(box 1 2 3)")
	if g.NodeCount() != 1 || len(g.Roots) != 1 {
		t.Fatalf("got %d nodes and %d roots, want 1 and 1", g.NodeCount(), len(g.Roots))
	}
	if bd, ok := g.Get(g.Roots[0]).Data.(graph.BoxData); !ok || bd.Size != (graph.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("root data = %+v", g.Get(g.Roots[0]).Data)
	}

	g = evaluate(t, `
(def unused (prism :profile (list (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)) :height 1))
(cylinder :radius 1 :height 2 :segments 12)
(bfuse (box 1 1 1) (box 2 2 2))
`)
	if g.NodeCount() != 5 {
		t.Errorf("expected 5 nodes, got %d", g.NodeCount())
	}
	if len(g.Roots) != 3 {
		t.Fatalf("expected 3 roots, got %v", g.Roots)
	}
	if g.Get(g.Roots[0]).Kind != graph.NodeBoolean {
		t.Errorf("first root should be the fuse")
	}
	if _, ok := g.Get(g.Roots[1]).Data.(graph.PrismData); !ok {
		t.Errorf("second root should be the prism")
	}
	if _, ok := g.Get(g.Roots[2]).Data.(graph.CylinderData); !ok {
		t.Errorf("third root should be the cylinder")
	}

	g = evaluate(t, `(box 1 1 1) (defsolid "b" (box 2 2 2)) (output (solid "b"))`)
	if g.NodeCount() != 2 || len(g.Roots) != 1 || g.Roots[0] != g.MustLookup("b").ID {
		t.Errorf("explicit output: %d nodes, roots %v", g.NodeCount(), g.Roots)
	}
}

func TestGroup(t *testing.T) {
	g := evaluate(t, `(group "parts" (box 1 1 1) (box 2 2 2))`)
	grp := g.Lookup("parts")
	if grp == nil || grp.Kind != graph.NodeGroup {
		t.Fatalf("expected group named 'parts', got %v", grp)
	}
	if len(grp.Children) != 2 {
		t.Errorf("expected 2 members, got %d", len(grp.Children))
	}
}

func TestDefaults(t *testing.T) {
	g := evaluate(t, `(defaults :fuzzy 0.01 :segments 64 :units "in")`)
	d := g.Defaults
	if d.Fuzzy != 0.01 || d.Segments != 64 || d.Units != "in" {
		t.Errorf("defaults = %+v", d)
	}
}

func TestDeterministicIDs(t *testing.T) {
	src := `(bcut (box 2 2 2) (place (box 1 1 1) :at (vec3 1 1 1)))`
	a, b := evaluate(t, src), evaluate(t, src)
	if a.NodeCount() != b.NodeCount() {
		t.Fatalf("node counts differ: %d vs %d", a.NodeCount(), b.NodeCount())
	}
	for id := range a.Nodes {
		if b.Get(id) == nil {
			t.Errorf("node %s missing from second evaluation", id.Short())
		}
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing solid", `(solid "nonexistent")`, "no solid named"},
		{"duplicate name", `(defsolid "a" (box 1 1 1)) (defsolid "a" (box 2 2 2))`, "already defined"},
		{"rename", `(defsolid "a" (box 1 1 1)) (defsolid "b" (solid "a"))`, "cannot be renamed"},
		{"place arity", `(place (box 1 1 1) (box 1 1 1))`, "exactly one solid"},
		{"bad operand", `(bfuse 3 (box 1 1 1))`, "expected solid"},
		{"bad at", `(place (box 1 1 1) :at 5)`, "expected vec3"},
		{"defsolid body", `(defsolid "a" 5)`, "expected solid expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := evalFails(t, tt.src)
			if !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	g := evaluate(t, `(def w (+ 10 (* 2 5))) (defsolid "b" (box w w w))`)
	if bd := g.MustLookup("b").Data.(graph.BoxData); bd.Size.X != 20 {
		t.Errorf("size = %v", bd.Size)
	}
}
