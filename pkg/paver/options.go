package paver

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// GlueMode selects how much intersection work is skipped for arguments that
// are known to touch only along shared, coincident sub-shapes.
type GlueMode int

const (
	// GlueOff runs every intersection.
	GlueOff GlueMode = iota
	// GlueShift skips edge/edge crossing points; coincident edges are still
	// detected.
	GlueShift
	// GlueFull additionally skips edge/face crossing points and face/face
	// sections, leaving only coincidences.
	GlueFull
)

func (g GlueMode) String() string {
	switch g {
	case GlueOff:
		return "off"
	case GlueShift:
		return "shift"
	case GlueFull:
		return "full"
	default:
		return fmt.Sprintf("GlueMode(%d)", int(g))
	}
}

// ParseGlueMode parses "off", "shift" or "full".
func ParseGlueMode(s string) (GlueMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return GlueOff, nil
	case "shift":
		return GlueShift, nil
	case "full":
		return GlueFull, nil
	}
	return GlueOff, fmt.Errorf("paver: unknown glue mode %q", s)
}

// Options configures a Filler. The zero value runs sequentially with no fuzzy
// tolerance.
type Options struct {
	// Fuzzy is added to every combined tolerance.
	Fuzzy float64
	// RunParallel evaluates the pairs of one pass concurrently.
	RunParallel bool
	// Workers bounds the number of goroutines of a parallel pass;
	// 0 means GOMAXPROCS.
	Workers int
	// NonDestructive leaves the tolerances of the input shapes untouched;
	// raised tolerances are kept in the data structure only.
	NonDestructive bool
	Glue           GlueMode
	// CheckInverted detects solids whose faces point inward.
	CheckInverted bool
	// UseOBB adds an oriented-box test after the axis-aligned broad phase.
	UseOBB bool

	Logger *slog.Logger
	// Progress is called after every completed step.
	Progress func(s State, done, total int)
}

// Log returns the configured logger or the default one.
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// State is a step of the filling state machine.
type State int

const (
	StateEmpty State = iota
	StateDataPrepared
	StateVVDone
	StateVEDone
	StateEEDone
	StateVFDone
	StateEFDone
	StateFFDone
	StatePavesBuilt
	StateCommonBlocksBuilt
	StateDone
)

var stateNames = [...]string{
	StateEmpty:             "empty",
	StateDataPrepared:      "data prepared",
	StateVVDone:            "vertex/vertex done",
	StateVEDone:            "vertex/edge done",
	StateEEDone:            "edge/edge done",
	StateVFDone:            "vertex/face done",
	StateEFDone:            "edge/face done",
	StateFFDone:            "face/face done",
	StatePavesBuilt:        "paves built",
	StateCommonBlocksBuilt: "common blocks built",
	StateDone:              "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
