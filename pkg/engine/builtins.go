package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"

	"github.com/chazu/xylem/pkg/graph"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPrimitive is an unplaced primitive returned by box, cylinder, prism
// and polygon. It becomes a graph node when named by defsolid or used as
// an operand, or at the end of the script if neither happened.
type sexpPrimitive struct {
	kind string
	data graph.NodeData
	used bool
}

func (p *sexpPrimitive) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %+v)", p.kind, p.data)
}
func (p *sexpPrimitive) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(solid %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword at the end of the list is a flag with a nil value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case !ok:
			result.positional = append(result.positional, args[i])
		case i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		default:
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number reads keyword key as a float, leaving def when it is absent.
func (a kwArgs) number(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toVec3s extracts a list of points.
func toVec3s(s zygo.Sexp) ([]graph.Vec3, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Vec3, len(items))
	for i, it := range items {
		if out[i], err = toVec3(it); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Evaluation session
// ---------------------------------------------------------------------------

// session holds the graph under construction for one evaluation. Anonymous
// nodes are numbered per kind in creation order, so the same source always
// yields the same IDs.
type session struct {
	g       *graph.DesignGraph
	counter map[string]int
	order   []graph.NodeID
	built   []*sexpPrimitive
}

func newSession(g *graph.DesignGraph) *session {
	return &session{g: g, counter: make(map[string]int)}
}

func (s *session) anonID(kind string) graph.NodeID {
	s.counter[kind]++
	return graph.NewNodeID(fmt.Sprintf("%s/#%d", kind, s.counter[kind]))
}

func (s *session) add(n *graph.Node) *sexpNodeRef {
	s.g.AddNode(n)
	s.order = append(s.order, n.ID)
	return &sexpNodeRef{id: n.ID, name: n.Name}
}

// newPrimitive records p so finish can find it if nothing consumes it.
func (s *session) newPrimitive(kind string, data graph.NodeData) *sexpPrimitive {
	p := &sexpPrimitive{kind: kind, data: data}
	s.built = append(s.built, p)
	return p
}

// primitive turns an unplaced primitive into a node.
func (s *session) primitive(p *sexpPrimitive, name string) *sexpNodeRef {
	p.used = true
	id := s.anonID(p.kind)
	if name != "" {
		id = graph.NewNodeID(name)
	}
	return s.add(&graph.Node{ID: id, Kind: graph.NodePrimitive, Name: name, Data: p.data})
}

// toNode resolves an operand to a node, creating one for a bare primitive.
func (s *session) toNode(v zygo.Sexp) (graph.NodeID, error) {
	switch x := v.(type) {
	case *sexpNodeRef:
		return x.id, nil
	case *sexpPrimitive:
		return s.primitive(x, "").id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected solid, got %T (%s)", v, v.SexpString(nil))
}

func (s *session) toNodes(v zygo.Sexp) ([]graph.NodeID, error) {
	items, err := sexpListToSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]graph.NodeID, 0, len(items))
	for i, it := range items {
		id, err := s.toNode(it)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// finish turns primitives that were built but never consumed into nodes,
// then picks the roots when the script named none: every node that no
// other node uses, in creation order.
func (s *session) finish() {
	for _, p := range s.built {
		if !p.used {
			s.primitive(p, "")
		}
	}
	if len(s.g.Roots) > 0 {
		return
	}
	for _, id := range s.g.Unreferenced(s.order) {
		s.g.AddRoot(id)
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(args kwArgs) (zygo.Sexp, error)

func (s *session) def(env *zygo.Zlisp, name string, fn builtin) {
	display := strings.ReplaceAll(name, "_", "-")
	env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		out, err := fn(parseArgs(args))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
		}
		return out, nil
	})
}

// register installs the xylem builtins. Source must be preprocessed with
// preprocessSource so :keyword tokens are recognisable.
func (s *session) register(env *zygo.Zlisp) {
	s.def(env, "vec3", s.vec3)
	s.def(env, "box", s.box)
	s.def(env, "cylinder", s.cylinder)
	s.def(env, "prism", s.prism)
	s.def(env, "polygon", s.polygon)
	s.def(env, "defsolid", s.defsolid)
	s.def(env, "solid", s.solid)
	s.def(env, "place", s.place)
	s.def(env, "group", s.group)
	s.def(env, "defaults", s.defaults)
	s.def(env, "output", s.output)

	for name, op := range map[string]string{
		"bfuse":    "fuse",
		"bcommon":  "common",
		"bcut":     "cut",
		"bcut21":   "cut21",
		"bsection": "section",
		"bsplit":   "split",
		"bgfuse":   "gf",
	} {
		s.def(env, name, s.boolean(op))
	}
}

// (vec3 1 2 3)
func (s *session) vec3(a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) != 3 {
		return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(a.positional))
	}
	var c [3]float64
	for i, p := range a.positional {
		f, err := toFloat64(p)
		if err != nil {
			return nil, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: graph.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (box 10 20 30), (box :size (vec3 10 20 30)) or (box :x 10 :y 20 :z 30)
func (s *session) box(a kwArgs) (zygo.Sexp, error) {
	var size graph.Vec3
	switch {
	case a.kw["size"] != nil:
		v, err := toVec3(a.kw["size"])
		if err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
		size = v
	case len(a.positional) == 3:
		v, err := s.vec3(a)
		if err != nil {
			return nil, err
		}
		size = v.(*sexpVec3).vec
	default:
		var err error
		if size.X, err = a.number("x", 0); err != nil {
			return nil, err
		}
		if size.Y, err = a.number("y", 0); err != nil {
			return nil, err
		}
		if size.Z, err = a.number("z", 0); err != nil {
			return nil, err
		}
	}
	return s.newPrimitive("box", graph.BoxData{Size: size}), nil
}

// (cylinder :radius 5 :height 20 :segments 48)
func (s *session) cylinder(a kwArgs) (zygo.Sexp, error) {
	var d graph.CylinderData
	var err error
	if d.Radius, err = a.number("radius", 0); err != nil {
		return nil, err
	}
	if d.Height, err = a.number("height", 0); err != nil {
		return nil, err
	}
	seg, err := a.number("segments", 0)
	if err != nil {
		return nil, err
	}
	d.Segments = int(seg)
	return s.newPrimitive("cylinder", d), nil
}

// (prism :profile (list (vec3 0 0 0) (vec3 10 0 0) (vec3 0 10 0)) :height 5)
func (s *session) prism(a kwArgs) (zygo.Sexp, error) {
	var d graph.PrismData
	var err error
	if v, ok := a.kw["profile"]; ok {
		if d.Profile, err = toVec3s(v); err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
	}
	if d.Height, err = a.number("height", 0); err != nil {
		return nil, err
	}
	return s.newPrimitive("prism", d), nil
}

// (polygon (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)) or (polygon :points (list ...))
func (s *session) polygon(a kwArgs) (zygo.Sexp, error) {
	var d graph.PolygonData
	var err error
	if v, ok := a.kw["points"]; ok {
		if d.Points, err = toVec3s(v); err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
	}
	for i, p := range a.positional {
		v, err := toVec3(p)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		d.Points = append(d.Points, v)
	}
	return s.newPrimitive("polygon", d), nil
}

// (defsolid "name" (box ...)) names a primitive or an operation result.
func (s *session) defsolid(a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) < 2 {
		return nil, fmt.Errorf("requires a name and a body expression")
	}
	name, err := toString(a.positional[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if name == "" {
		return nil, fmt.Errorf("name must not be empty")
	}
	if s.g.Lookup(name) != nil {
		return nil, fmt.Errorf("%q is already defined", name)
	}
	switch body := a.positional[1].(type) {
	case *sexpPrimitive:
		return s.primitive(body, name), nil
	case *sexpNodeRef:
		n := s.g.Get(body.id)
		if n.Name != "" {
			return nil, fmt.Errorf("solid %q cannot be renamed to %q", n.Name, name)
		}
		n.Name = name
		s.g.AddNode(n)
		return &sexpNodeRef{id: n.ID, name: name}, nil
	default:
		return nil, fmt.Errorf("expected solid expression, got %T", a.positional[1])
	}
}

// (solid "name")
func (s *session) solid(a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) < 1 {
		return nil, fmt.Errorf("requires a name argument")
	}
	name, err := toString(a.positional[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	n := s.g.Lookup(name)
	if n == nil {
		return nil, fmt.Errorf("no solid named %q", name)
	}
	return &sexpNodeRef{id: n.ID, name: name}, nil
}

// (place (solid "peg") :at (vec3 0 0 19) :rotate (vec3 0 90 0))
func (s *session) place(a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) != 1 {
		return nil, fmt.Errorf("requires exactly one solid, got %d", len(a.positional))
	}
	child, err := s.toNode(a.positional[0])
	if err != nil {
		return nil, err
	}
	var td graph.TransformData
	if v, ok := a.kw["at"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("at: %w", err)
		}
		td.Translation = &vec
	}
	if v, ok := a.kw["rotate"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("rotate: %w", err)
		}
		td.Rotation = &vec
	}
	return s.add(&graph.Node{
		ID:       s.anonID("place"),
		Kind:     graph.NodeTransform,
		Children: []graph.NodeID{child},
		Data:     td,
	}), nil
}

// (group "name" a b c) meshes each member separately.
func (s *session) group(a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) < 1 {
		return nil, fmt.Errorf("requires a name argument")
	}
	name, err := toString(a.positional[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	var children []graph.NodeID
	for i, v := range a.positional[1:] {
		id, err := s.toNode(v)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i+1, err)
		}
		children = append(children, id)
	}
	return s.add(&graph.Node{
		ID:       graph.NewNodeID("group/" + name),
		Kind:     graph.NodeGroup,
		Name:     name,
		Children: lo.Uniq(children),
		Data:     graph.GroupData{Description: name},
	}), nil
}

// boolean returns the builtin for op. The first positional operand is the
// object and the rest are tools; :objects and :tools lists add more. The
// general fuse treats every operand as an object.
//
//	(bcut (solid "block") (solid "hole") :fuzzy 1e-5 :name "drilled")
func (s *session) boolean(op string) builtin {
	return func(a kwArgs) (zygo.Sexp, error) {
		var objects, tools []graph.NodeID
		for i, v := range a.positional {
			id, err := s.toNode(v)
			if err != nil {
				return nil, fmt.Errorf("operand %d: %w", i+1, err)
			}
			if i == 0 || op == "gf" {
				objects = append(objects, id)
			} else {
				tools = append(tools, id)
			}
		}
		for _, group := range []struct {
			key string
			dst *[]graph.NodeID
		}{{"objects", &objects}, {"tools", &tools}} {
			if v, ok := a.kw[group.key]; ok {
				ids, err := s.toNodes(v)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", group.key, err)
				}
				*group.dst = append(*group.dst, ids...)
			}
		}
		fuzzy, err := a.number("fuzzy", 0)
		if err != nil {
			return nil, err
		}
		name := ""
		if v, ok := a.kw["name"]; ok {
			if name, err = toString(v); err != nil {
				return nil, fmt.Errorf("name: %w", err)
			}
		}
		id := s.anonID(op)
		if name != "" {
			if s.g.Lookup(name) != nil {
				return nil, fmt.Errorf("%q is already defined", name)
			}
			id = graph.NewNodeID(name)
		}
		return s.add(&graph.Node{
			ID:       id,
			Kind:     graph.NodeBoolean,
			Name:     name,
			Children: lo.Uniq(append(append([]graph.NodeID{}, objects...), tools...)),
			Data:     graph.BooleanData{Op: op, Objects: objects, Tools: tools, Fuzzy: fuzzy},
		}), nil
	}
}

// (defaults :fuzzy 1e-4 :segments 64 :units "mm")
func (s *session) defaults(a kwArgs) (zygo.Sexp, error) {
	d := &s.g.Defaults
	var err error
	if d.Fuzzy, err = a.number("fuzzy", d.Fuzzy); err != nil {
		return nil, err
	}
	seg, err := a.number("segments", float64(d.Segments))
	if err != nil {
		return nil, err
	}
	d.Segments = int(seg)
	if v, ok := a.kw["units"]; ok {
		if d.Units, err = toString(v); err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
	}
	return zygo.SexpNull, nil
}

// (output a b ...) marks the solids to mesh. Without output every solid
// that nothing else uses is meshed.
func (s *session) output(a kwArgs) (zygo.Sexp, error) {
	var last zygo.Sexp = zygo.SexpNull
	for i, v := range a.positional {
		id, err := s.toNode(v)
		if err != nil {
			return nil, fmt.Errorf("solid %d: %w", i+1, err)
		}
		s.g.AddRoot(id)
		last = &sexpNodeRef{id: id, name: s.g.Get(id).Name}
	}
	return last, nil
}
