// Package geom holds the shared viewport coordinate types.
package geom

// Point is a cell coordinate in the client viewport.
type Point struct {
	X int
	Y int
}

// Size is the client viewport in cells.
type Size struct {
	Width  int
	Height int
}
