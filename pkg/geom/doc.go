// Package geom holds the geometric carriers used by the Boolean engine:
// unbounded lines and their bounded segments, planes with a 2D frame,
// planar polygons with holes, and axis-aligned and oriented boxes.
//
// All geometry is linear. Tolerances are absolute distances in model units;
// a value is considered zero when it is within Confusion.
package geom
