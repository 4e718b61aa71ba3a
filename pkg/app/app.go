// Package app runs the full xylem pipeline: script source is evaluated into
// a design graph, validated, built with the Boolean kernel and meshed.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/chazu/xylem/pkg/engine"
	"github.com/chazu/xylem/pkg/graph"
	"github.com/chazu/xylem/pkg/kernel/brep"
	"github.com/chazu/xylem/pkg/paver"
	"github.com/chazu/xylem/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// Options configures an App.
type Options struct {
	Engine engine.Options
	Paver  paver.Options
	Logger *slog.Logger
}

// App evaluates scripts into meshes.
type App struct {
	engine *engine.Engine
	kernel *brep.Kernel
	log    *slog.Logger
}

// MeshData is the JSON-serializable mesh format of one part.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Lines    []uint32  `json:"lines,omitempty"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
	Volume   float64   `json:"volume"`
}

// Message is a JSON-serializable error or warning. Line is set for script
// errors, Node and Code for graph and kernel findings.
type Message struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Node    string `json:"node,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData `json:"meshes"`
	Errors   []Message  `json:"errors"`
	Warnings []Message  `json:"warnings"`
}

// OK reports whether the evaluation produced no errors.
func (r EvalResult) OK() bool { return len(r.Errors) == 0 }

// NewApp creates an App with default options.
func NewApp() *App {
	return New(Options{})
}

// New creates an App with an engine and the brep kernel.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}
	if opts.Paver.Logger == nil {
		opts.Paver.Logger = opts.Logger
	}
	return &App{
		engine: engine.New(opts.Engine),
		kernel: brep.New(opts.Paver),
		log:    opts.Logger,
	}
}

// Evaluate takes Lisp source and returns mesh data, errors and warnings.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []Message{},
		Warnings: []Message{},
	}

	g, ok := a.design(source, &result)
	if !ok {
		return result
	}

	res, err := tessellate.Tessellate(ctx, g, a.kernel)
	if err != nil {
		a.log.Error("tessellation failed", "err", err)
		result.Errors = append(result.Errors, Message{Message: "tessellation failed: " + err.Error()})
		return result
	}

	for _, d := range res.Diagnostics {
		m := Message{Node: d.Part, Code: d.Code, Message: d.Message}
		if d.Blocking {
			result.Errors = append(result.Errors, m)
		} else {
			result.Warnings = append(result.Warnings, m)
		}
	}
	for i, m := range res.Meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Lines:    m.Lines,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
			Volume:   m.Volume(),
		})
	}
	a.log.Debug("evaluated", "parts", len(result.Meshes), "errors", len(result.Errors), "warnings", len(result.Warnings))
	return result
}

// design evaluates and validates source. It reports false when the
// result already carries errors.
func (a *App) design(source string, result *EvalResult) (*graph.DesignGraph, bool) {
	g, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate fatal error", "err", err)
		result.Errors = append(result.Errors, Message{Message: err.Error()})
		return nil, false
	}
	if len(evalErrs) > 0 {
		result.Errors = append(result.Errors, lo.Map(evalErrs, func(e engine.EvalError, _ int) Message {
			return Message{Line: e.Line, Col: e.Col, Message: e.Message}
		})...)
		return nil, false
	}

	a.log.Debug("design graph",
		"nodes", g.NodeCount(),
		"primitives", len(g.OfKind(graph.NodePrimitive)),
		"booleans", len(g.OfKind(graph.NodeBoolean)),
		"roots", len(g.Roots))
	v := graph.ValidateAll(g)
	label := func(id graph.NodeID) string {
		if n := g.Get(id); n != nil {
			return n.Label()
		}
		return ""
	}
	result.Warnings = append(result.Warnings, lo.Map(v.Warnings, func(w graph.ValidationWarning, _ int) Message {
		return Message{Node: label(w.NodeID), Message: w.Message}
	})...)
	if !v.OK() {
		result.Errors = append(result.Errors, lo.Map(v.Errors, func(e graph.ValidationError, _ int) Message {
			return Message{Node: label(e.NodeID), Message: e.Message}
		})...)
		return nil, false
	}
	return g, true
}

// ExportSTL evaluates source and writes one STL file per part into dir.
// It returns the paths written.
func (a *App) ExportSTL(ctx context.Context, source, dir string) ([]string, EvalResult) {
	result := EvalResult{Meshes: []MeshData{}, Errors: []Message{}, Warnings: []Message{}}
	g, ok := a.design(source, &result)
	if !ok {
		return nil, result
	}
	parts, err := tessellate.Evaluate(ctx, g, a.kernel)
	if err != nil {
		result.Errors = append(result.Errors, Message{Message: err.Error()})
		return nil, result
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Errors = append(result.Errors, Message{Message: err.Error()})
		return nil, result
	}
	var paths []string
	for _, p := range parts {
		path := filepath.Join(dir, fmt.Sprintf("%s.stl", p.Name))
		if err := a.kernel.SaveSTL(path, p.Solid); err != nil {
			result.Errors = append(result.Errors, Message{Node: p.Name, Message: err.Error()})
			continue
		}
		paths = append(paths, path)
	}
	return paths, result
}
