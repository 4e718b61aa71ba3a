// Package alert is the diagnostic channel of the Boolean engine.
//
// Alerts are values of a closed set of kinds. Each kind is either blocking
// (the operation cannot produce a result) or advisory (the result is produced
// but something was skipped or adjusted). The mapping is explicit in the
// kinds table rather than inferred from names.
package alert

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chazu/xylem/pkg/topo"
)

// Kind identifies an alert.
type Kind int

const (
	// Blocking.
	TooFewArguments Kind = iota
	NullInputShapes
	NoFiller
	BOPNotSet
	MultipleArguments
	IntersectionFailed
	BuilderSolidFailed
	UserBreak
	UnsupportedType

	// Advisory.
	SelfInterferingShape
	EmptyShape
	TooSmallEdge
	NotSplittableEdge
	BadPositioning
	IntersectionOfPairFailed
	AcquiredSelfIntersection
	ShellSplitterFailed

	// Reserved for internal-boundary removal, which the builder does not
	// perform. Nothing raises these; they keep the enum closed and stable.
	RemovalOfIBForEdgesFailed
	RemovalOfIBForFacesFailed
	RemovalOfIBForSolidsFailed

	numKinds
)

type kindInfo struct {
	name     string
	blocking bool
}

var kinds = [numKinds]kindInfo{
	TooFewArguments:            {"too few arguments", true},
	NullInputShapes:            {"null input shapes", true},
	NoFiller:                   {"intersection data not available", true},
	BOPNotSet:                  {"boolean operation not set", true},
	MultipleArguments:          {"multiple arguments not allowed", true},
	IntersectionFailed:         {"intersection failed", true},
	BuilderSolidFailed:         {"unable to build solids", true},
	UserBreak:                  {"cancelled", true},
	UnsupportedType:            {"unsupported argument type", true},
	SelfInterferingShape:       {"self-interfering argument group", false},
	EmptyShape:                 {"empty argument skipped", false},
	TooSmallEdge:               {"edge shorter than its tolerance", false},
	NotSplittableEdge:          {"edge cannot be split", false},
	BadPositioning:             {"vertex not at curve end", false},
	IntersectionOfPairFailed:   {"intersection of pair failed", false},
	AcquiredSelfIntersection:   {"acquired self-intersection", false},
	ShellSplitterFailed:        {"unable to close shell", false},
	RemovalOfIBForEdgesFailed:  {"removal of internal edges failed", false},
	RemovalOfIBForFacesFailed:  {"removal of internal faces failed", false},
	RemovalOfIBForSolidsFailed: {"removal of internal solids failed", false},
}

// IsBlocking reports whether alerts of this kind prevent a result.
func (k Kind) IsBlocking() bool {
	if k < 0 || k >= numKinds {
		return true
	}
	return kinds[k].blocking
}

// String returns a human-readable name.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// Severity returns "error" for blocking kinds and "warning" otherwise.
func (k Kind) Severity() string {
	if k.IsBlocking() {
		return "error"
	}
	return "warning"
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Alert is one diagnostic, optionally attached to a shape.
type Alert struct {
	Kind    Kind
	Shape   topo.Shape
	Message string
}

// Error implements error.
func (a Alert) Error() string {
	var b strings.Builder
	b.WriteString(a.Kind.String())
	if !a.Shape.IsNull() {
		fmt.Fprintf(&b, " [%s]", a.Shape)
	}
	if a.Message != "" {
		b.WriteString(": ")
		b.WriteString(a.Message)
	}
	return b.String()
}

// HasShape reports whether the alert carries a shape.
func (a Alert) HasShape() bool { return !a.Shape.IsNull() }

// LogValue implements slog.LogValuer.
func (a Alert) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", a.Kind.String()),
		slog.String("severity", a.Kind.Severity()),
	}
	if a.HasShape() {
		attrs = append(attrs, slog.String("shape", a.Shape.String()))
	}
	if a.Message != "" {
		attrs = append(attrs, slog.String("message", a.Message))
	}
	return slog.GroupValue(attrs...)
}

// Report collects alerts. It is append-only and safe for concurrent use.
type Report struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add appends an alert.
func (r *Report) Add(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// AddKind appends an alert with no shape.
func (r *Report) AddKind(k Kind, format string, args ...any) {
	r.Add(Alert{Kind: k, Message: fmt.Sprintf(format, args...)})
}

// AddShape appends an alert attached to a shape.
func (r *Report) AddShape(k Kind, s topo.Shape, format string, args ...any) {
	r.Add(Alert{Kind: k, Shape: s, Message: fmt.Sprintf(format, args...)})
}

// Merge appends every alert of other.
func (r *Report) Merge(other *Report) {
	if other == nil || other == r {
		return
	}
	for _, a := range other.Alerts() {
		r.Add(a)
	}
}

// Alerts returns a copy of all alerts in insertion order.
func (r *Report) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Len returns the number of alerts.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// HasAlert reports whether an alert of kind k was raised.
func (r *Report) HasAlert(k Kind) bool {
	return len(r.OfKind(k)) > 0
}

// OfKind returns the alerts of kind k.
func (r *Report) OfKind(k Kind) []Alert {
	return r.filter(func(a Alert) bool { return a.Kind == k })
}

// HasBlocking reports whether any blocking alert was raised.
func (r *Report) HasBlocking() bool {
	return len(r.Blocking()) > 0
}

// Blocking returns the blocking alerts.
func (r *Report) Blocking() []Alert {
	return r.filter(func(a Alert) bool { return a.Kind.IsBlocking() })
}

// Warnings returns the advisory alerts.
func (r *Report) Warnings() []Alert {
	return r.filter(func(a Alert) bool { return !a.Kind.IsBlocking() })
}

// Err returns the first blocking alert as an error, or nil.
func (r *Report) Err() error {
	if b := r.Blocking(); len(b) > 0 {
		return b[0]
	}
	return nil
}

func (r *Report) filter(keep func(Alert) bool) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Alert
	for _, a := range r.alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
