package builder

import (
	"context"

	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/topo"
)

// Run performs op over objects and tools and returns the builder, which
// holds the result, the report and the history even when err is not nil.
func Run(ctx context.Context, op Operation, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	b := New(op, objects, tools, opts)
	return b, b.Perform(ctx)
}

// Fuse returns the union of objects and tools.
func Fuse(ctx context.Context, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpFuse, objects, tools, opts)
}

// Common returns the intersection of objects and tools.
func Common(ctx context.Context, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpCommon, objects, tools, opts)
}

// Cut returns the objects minus the tools.
func Cut(ctx context.Context, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpCut, objects, tools, opts)
}

// Section returns the edges and vertices where objects and tools meet.
func Section(ctx context.Context, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpSection, objects, tools, opts)
}

// GeneralFuse splits all arguments by each other and returns every part.
func GeneralFuse(ctx context.Context, args []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpGeneralFuse, args, nil, opts)
}

// Split returns the parts of the objects cut by the tools. Without tools
// the objects are split by each other.
func Split(ctx context.Context, objects, tools []topo.Shape, opts paver.Options) (*Builder, error) {
	return Run(ctx, OpSplit, objects, tools, opts)
}
