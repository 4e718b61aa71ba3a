package graph

import (
	"fmt"
	"math"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/xylem/pkg/builder"
	"github.com/chazu/xylem/pkg/geom"
)

// MaxSegments bounds cylinder subdivision before a warning is raised.
const MaxSegments = 512

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (errors and warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs the primitive, placement and operation checks.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning
	for _, id := range sortedIDs(g) {
		n := g.Nodes[id]
		switch d := n.Data.(type) {
		case BoxData:
			errs = append(errs, positive(n, "box size X", d.Size.X)...)
			errs = append(errs, positive(n, "box size Y", d.Size.Y)...)
			errs = append(errs, positive(n, "box size Z", d.Size.Z)...)
		case CylinderData:
			errs = append(errs, positive(n, "cylinder radius", d.Radius)...)
			errs = append(errs, positive(n, "cylinder height", d.Height)...)
			if d.Segments != 0 && d.Segments < 3 {
				errs = append(errs, errorf(n, "cylinder needs at least 3 segments, got %d", d.Segments))
			}
			if d.Segments > MaxSegments {
				warnings = append(warnings, warnf(n, "cylinder has %d segments; Boolean operations on it will be slow", d.Segments))
			}
		case PrismData:
			errs = append(errs, positive(n, "prism height", d.Height)...)
			errs = append(errs, validateProfile(n, d.Profile)...)
		case PolygonData:
			if len(d.Points) < 3 {
				errs = append(errs, errorf(n, "polygon needs at least 3 points, got %d", len(d.Points)))
			} else if geom.NewellNormal(d.Points).Length() < geom.Confusion {
				errs = append(errs, errorf(n, "polygon points are collinear"))
			}
		case TransformData:
			if len(n.Children) != 1 {
				errs = append(errs, errorf(n, "place needs exactly one child, got %d", len(n.Children)))
			}
			if d.Translation != nil && !geom.Finite(*d.Translation) {
				errs = append(errs, errorf(n, "translation is not finite"))
			}
			if d.Rotation != nil && !geom.Finite(*d.Rotation) {
				errs = append(errs, errorf(n, "rotation is not finite"))
			}
		case BooleanData:
			errs = append(errs, validateOperation(g, n, d)...)
		}
	}
	return errs, warnings
}

func positive(n *Node, what string, v float64) []ValidationError {
	if v > 0 && !math.IsInf(v, 0) {
		return nil
	}
	return []ValidationError{errorf(n, "%s is %.4f, must be positive", what, v)}
}

func errorf(n *Node, format string, args ...any) ValidationError {
	return ValidationError{NodeID: n.ID, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(n *Node, format string, args ...any) ValidationWarning {
	return ValidationWarning{NodeID: n.ID, Message: fmt.Sprintf(format, args...)}
}

// validateProfile requires a simple counter-clockwise outline.
func validateProfile(n *Node, profile []Vec3) []ValidationError {
	if len(profile) < 3 {
		return []ValidationError{errorf(n, "prism profile needs at least 3 points, got %d", len(profile))}
	}
	loop := make([]v2.Vec, len(profile))
	for i, p := range profile {
		loop[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	a := geom.SignedArea(loop)
	switch {
	case math.Abs(a) < geom.Confusion:
		return []ValidationError{errorf(n, "prism profile has no area")}
	case a < 0:
		return []ValidationError{errorf(n, "prism profile turns clockwise")}
	}
	return nil
}

// resultKind orders what a node evaluates to: edges and vertices, faces or
// solids. Groups are as weak as their weakest child.
type resultKind int

const (
	resultUnknown resultKind = iota
	resultEdges
	resultFaces
	resultSolids
)

func (k resultKind) String() string {
	switch k {
	case resultEdges:
		return "a section"
	case resultFaces:
		return "faces"
	case resultSolids:
		return "solids"
	}
	return "nothing"
}

func kindOf(g *DesignGraph, id NodeID, seen map[NodeID]bool) resultKind {
	n := g.Nodes[id]
	if n == nil || seen[id] {
		return resultUnknown
	}
	seen[id] = true
	defer delete(seen, id)

	switch d := n.Data.(type) {
	case BoxData, CylinderData, PrismData:
		return resultSolids
	case PolygonData:
		return resultFaces
	case BooleanData:
		op, err := builder.ParseOperation(d.Op)
		if err != nil {
			return resultUnknown
		}
		switch op {
		case builder.OpSection:
			return resultEdges
		case builder.OpGeneralFuse, builder.OpSplit:
			return weakest(g, d.Objects, seen)
		}
		return resultSolids
	}
	return weakest(g, n.Children, seen)
}

func weakest(g *DesignGraph, ids []NodeID, seen map[NodeID]bool) resultKind {
	k := resultUnknown
	for _, id := range ids {
		c := kindOf(g, id, seen)
		if c == resultUnknown {
			continue
		}
		if k == resultUnknown || c < k {
			k = c
		}
	}
	return k
}

// validateOperation checks the operation name, its arity and the kinds of
// its operands.
func validateOperation(g *DesignGraph, n *Node, d BooleanData) []ValidationError {
	op, err := builder.ParseOperation(d.Op)
	if err != nil {
		return []ValidationError{errorf(n, "unknown operation %q", d.Op)}
	}
	var errs []ValidationError
	if len(d.Objects) == 0 {
		errs = append(errs, errorf(n, "%s has no objects", op))
	}
	if op.IsBoolean() && len(d.Tools) == 0 {
		errs = append(errs, errorf(n, "%s has no tools", op))
	}
	if d.Fuzzy < 0 {
		errs = append(errs, errorf(n, "fuzzy value %g is negative", d.Fuzzy))
	}
	for _, oid := range d.Objects {
		if slices.Contains(d.Tools, oid) {
			errs = append(errs, errorf(n, "node %s is both an object and a tool", oid.Short()))
		}
	}

	need := resultFaces
	switch op {
	case builder.OpFuse, builder.OpCommon, builder.OpCut, builder.OpCut21:
		need = resultSolids
	}
	for _, oid := range append(slices.Clone(d.Objects), d.Tools...) {
		if k := kindOf(g, oid, map[NodeID]bool{n.ID: true}); k != resultUnknown && k < need {
			errs = append(errs, errorf(n, "%s needs %s but operand %s yields %s", op, need, oid.Short(), k))
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 3: advisory warnings
// ---------------------------------------------------------------------------

// validateAdvisory flags designs that evaluate but are likely mistakes.
func validateAdvisory(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning
	smallest := math.Inf(1)
	for _, id := range sortedIDs(g) {
		switch d := g.Nodes[id].Data.(type) {
		case BoxData:
			smallest = min(smallest, d.Size.X, d.Size.Y, d.Size.Z)
		case CylinderData:
			smallest = min(smallest, d.Radius, d.Height)
		case PrismData:
			smallest = min(smallest, d.Height)
		}
	}
	for _, id := range sortedIDs(g) {
		n := g.Nodes[id]
		d, ok := n.Data.(BooleanData)
		if !ok {
			continue
		}
		fuzzy := d.Fuzzy
		if fuzzy <= 0 {
			fuzzy = g.Defaults.Fuzzy
		}
		if fuzzy > 0 && fuzzy >= smallest/2 {
			warnings = append(warnings, warnf(n, "fuzzy value %g is comparable to the smallest feature %g", fuzzy, smallest))
		}
	}
	for _, rid := range g.Roots {
		if kindOf(g, rid, map[NodeID]bool{}) == resultEdges {
			warnings = append(warnings, ValidationWarning{NodeID: rid, Message: "section output has edges only and produces no surface mesh"})
		}
	}
	return warnings
}
