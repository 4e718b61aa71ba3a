// Package graph defines the design graph of xylem.
// The design graph is an immutable DAG of primitive solids, placements,
// Boolean operations and groups produced by evaluating a script.
package graph
