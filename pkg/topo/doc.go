// Package topo is a minimal polyhedral boundary representation.
//
// Topology lives in an Arena: a flat slice of nodes addressed by integer
// index. A node refers to its sub-shapes through oriented references, so a
// vertex or edge shared by several faces is stored once. Geometry (lines and
// planes) is held by pointer and may be shared between nodes.
//
// A Shape is a lightweight handle {arena, index, orientation}; it is the unit
// passed in and out of the Boolean engine.
package topo
