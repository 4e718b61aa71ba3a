// Package builder turns a filled intersection data structure into result
// shapes: the general fuse of all arguments, the Boolean operations between
// objects and tools, their section, and the splitter.
//
// Every argument face is split along the pave blocks lying in it. Each piece
// is classified against the solid arguments by probing just below and just
// above its interior point, which yields the set of arguments on either
// side. An operation is a predicate on those sets: a piece bounds the result
// where the predicate differs between its two sides. The kept pieces are
// sewn into shells by walking edges and picking, at edges shared by more
// than two pieces, the neighbour reached first when turning into the
// material.
package builder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chazu/xylem/pkg/alert"
	"github.com/chazu/xylem/pkg/classify"
	"github.com/chazu/xylem/pkg/ds"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/topo"
)

// Builder runs one operation over objects and tools.
type Builder struct {
	op      Operation
	objects []topo.Shape
	tools   []topo.Shape
	opts    paver.Options
	log     *slog.Logger

	filler *paver.Filler
	shared bool

	d        *ds.DS
	report   *alert.Report
	objMask  mask
	toolMask mask
	solids   map[int]*classify.Solid
	pieces   []*piece
	alias    map[int]int
	edges    map[[2]int]*ds.PaveBlock
	out      *output
	result   topo.Shape
	history  *History
	done     bool
}

// New returns a builder that fills its own data structure from objects and
// tools.
func New(op Operation, objects, tools []topo.Shape, opts paver.Options) *Builder {
	return &Builder{
		op:      op,
		objects: objects,
		tools:   tools,
		opts:    opts,
		log:     opts.Log(),
		report:  alert.NewReport(),
	}
}

// NewWithFiller returns a builder reusing a performed filler whose arguments
// are objects followed by tools. Several builders may share one filler.
func NewWithFiller(op Operation, objects, tools []topo.Shape, f *paver.Filler) *Builder {
	b := &Builder{
		op:      op,
		objects: objects,
		tools:   tools,
		filler:  f,
		shared:  true,
		report:  alert.NewReport(),
	}
	if f != nil {
		b.opts = f.Options()
	}
	b.log = b.opts.Log()
	return b
}

// Operation returns the operation the builder runs.
func (b *Builder) Operation() Operation { return b.op }

// IsDone reports whether the last Perform produced a result.
func (b *Builder) IsDone() bool { return b.done }

// Shape returns the result, a compound in the general case. It is null until
// Perform succeeds.
func (b *Builder) Shape() topo.Shape { return b.result }

// Report returns the alerts of the last Perform, including the filler's.
func (b *Builder) Report() *alert.Report { return b.report }

// History returns the input to result mapping of the last Perform.
func (b *Builder) History() *History { return b.history }

// Filler returns the filler used by the last Perform.
func (b *Builder) Filler() *paver.Filler { return b.filler }

// Arguments returns objects followed by tools.
func (b *Builder) Arguments() []topo.Shape {
	args := make([]topo.Shape, 0, len(b.objects)+len(b.tools))
	args = append(args, b.objects...)
	return append(args, b.tools...)
}

func (b *Builder) steps() []func(ctx context.Context) error {
	return []func(ctx context.Context) error{
		b.check,
		b.fill,
		b.splitFaces,
		b.classifyPieces,
		b.build,
		b.buildHistory,
	}
}

// Perform runs the operation. It returns the first blocking alert, in which
// case IsDone is false and Shape is null.
func (b *Builder) Perform(ctx context.Context) error {
	b.report = alert.NewReport()
	b.result = topo.Shape{}
	b.history = nil
	b.done = false
	b.pieces = nil
	b.alias = make(map[int]int)

	start := time.Now()
	for _, run := range b.steps() {
		if err := ctx.Err(); err != nil {
			return b.abort(err)
		}
		if err := run(ctx); err != nil {
			if b.report.HasBlocking() {
				return b.report.Err()
			}
			return b.abort(err)
		}
		if b.report.HasBlocking() {
			return b.report.Err()
		}
	}
	b.done = true
	b.log.Debug("builder: done",
		"op", b.op,
		"pieces", len(b.pieces),
		"faces", topo.Count(b.result, topo.Face),
		"solids", topo.Count(b.result, topo.Solid),
		"alerts", b.report.Len(),
		"elapsed", time.Since(start))
	return nil
}

func (b *Builder) abort(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		b.report.AddKind(alert.UserBreak, "%s interrupted: %v", b.op, err)
	} else {
		b.report.AddKind(alert.BuilderSolidFailed, "%s: %v", b.op, err)
	}
	return b.report.Err()
}

func (b *Builder) check(context.Context) error {
	if b.op == OpUnknown || opNames[b.op] == "" {
		b.report.AddKind(alert.BOPNotSet, "operation %s", b.op)
		return nil
	}
	switch {
	case b.op.IsBoolean() && (len(b.objects) == 0 || len(b.tools) == 0):
		b.report.AddKind(alert.TooFewArguments, "%s needs objects and tools, got %d and %d", b.op, len(b.objects), len(b.tools))
		return nil
	case len(b.objects) == 0 && (b.op == OpSplit || len(b.tools) == 0):
		b.report.AddKind(alert.TooFewArguments, "%s needs at least one object", b.op)
		return nil
	}
	if b.op.IsBoolean() {
		for _, o := range b.objects {
			for _, t := range b.tools {
				if !o.IsNull() && o.IsSame(t) {
					b.report.AddShape(alert.MultipleArguments, o, "%s given as both object and tool", o)
				}
			}
		}
	}
	for _, a := range b.Arguments() {
		if a.IsNull() {
			continue
		}
		switch b.op {
		case OpFuse, OpCommon, OpCut, OpCut21:
			if topo.Count(a, topo.Solid) == 0 {
				b.report.AddShape(alert.UnsupportedType, a, "%s needs solid arguments, got %s", b.op, a.Kind())
			}
		case OpSection, OpSplit:
			if topo.Count(a, topo.Face) == 0 {
				b.report.AddShape(alert.UnsupportedType, a, "%s needs arguments with faces, got %s", b.op, a.Kind())
			}
		}
	}
	if b.shared && !b.fillerMatches() {
		b.report.AddKind(alert.NoFiller, "filler missing, not performed or built for other arguments")
	}
	return nil
}

func (b *Builder) fillerMatches() bool {
	if b.filler == nil || !b.filler.IsDone() {
		return false
	}
	have, want := b.filler.Arguments(), b.Arguments()
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if have[i].Key() != want[i].Key() {
			return false
		}
	}
	return true
}

func (b *Builder) fill(ctx context.Context) error {
	if !b.shared {
		b.filler = paver.New(b.Arguments(), b.opts)
		err := b.filler.Perform(ctx)
		b.report.Merge(b.filler.Report())
		if err != nil {
			return err
		}
	} else {
		for _, a := range b.filler.Report().Warnings() {
			b.report.Add(a)
		}
	}
	b.d = b.filler.DS()

	n := b.d.NumberOfArguments()
	b.objMask, b.toolMask = newMask(n), newMask(n)
	for r := range n {
		if b.group(r) == 0 {
			b.objMask.set(r)
		} else {
			b.toolMask.set(r)
		}
	}
	if b.op.IsBoolean() {
		b.checkSelfInterference()
	}
	return nil
}

// group returns 0 for object ranks and 1 for tool ranks.
func (b *Builder) group(rank int) int {
	if rank < len(b.objects) {
		return 0
	}
	return 1
}

// checkSelfInterference warns about arguments of the same group touching
// each other; the group is then treated as the union of its members.
func (b *Builder) checkSelfInterference() {
	seen := make(map[[2]int]bool)
	for _, k := range ds.InterfKinds {
		for in := range b.d.InterferencesOf(k) {
			r1, r2 := b.d.Shape(in.Index1).Rank, b.d.Shape(in.Index2).Rank
			if r1 < 0 || r2 < 0 || r1 == r2 || b.group(r1) != b.group(r2) {
				continue
			}
			key := [2]int{min(r1, r2), max(r1, r2)}
			if seen[key] {
				continue
			}
			seen[key] = true
			b.report.AddShape(alert.SelfInterferingShape, b.d.Argument(key[0]),
				"arguments %d and %d of the same group interfere", key[0], key[1])
		}
	}
}

// build assembles the result of the operation.
func (b *Builder) build(ctx context.Context) error {
	b.out = newOutput(b.d, b.edges)
	var children []topo.Ref
	switch b.op {
	case OpSection:
		children = b.buildSection()
	case OpGeneralFuse, OpSplit:
		cells, err := b.buildCells(ctx)
		if err != nil {
			return err
		}
		children = cells
	default:
		solids, err := b.buildBoolean(ctx)
		if err != nil {
			return err
		}
		children = solids
	}
	b.result = topo.NewShape(b.out.a, b.out.a.AddCompound(children...))
	return nil
}
