package graph

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 is a point or direction in model space.
type Vec3 = v3.Vec

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is an axis-aligned box with its minimum corner at the origin.
type BoxData struct {
	Size Vec3 `json:"size"`
}

func (BoxData) nodeData() {}

// CylinderData is a regular polygonal prism centred on the origin along Z.
type CylinderData struct {
	Radius   float64 `json:"radius"`
	Height   float64 `json:"height"`
	Segments int     `json:"segments"`
}

func (CylinderData) nodeData() {}

// PrismData extrudes a counter-clockwise XY profile from z=0 by Height.
type PrismData struct {
	Profile []Vec3  `json:"profile"`
	Height  float64 `json:"height"`
}

func (PrismData) nodeData() {}

// PolygonData is a single planar face, used as a splitting or sectioning
// tool.
type PolygonData struct {
	Points []Vec3 `json:"points"`
}

func (PolygonData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData places its only child. Rotation is applied before
// translation.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanData runs an operation over two argument groups. Op is an
// operation name accepted by builder.ParseOperation.
type BooleanData struct {
	Op      string   `json:"op"`
	Objects []NodeID `json:"objects"`
	Tools   []NodeID `json:"tools,omitempty"`
	// Fuzzy overrides the graph default when positive.
	Fuzzy float64 `json:"fuzzy,omitempty"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData collects results that are meshed separately.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
