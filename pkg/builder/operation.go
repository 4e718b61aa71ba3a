package builder

import (
	"fmt"
	"strings"
)

// Operation selects what the builder keeps of the split arguments.
type Operation int

const (
	OpUnknown Operation = iota
	// OpGeneralFuse keeps every cell of the arrangement of all arguments.
	OpGeneralFuse
	// OpFuse keeps the union of objects and tools.
	OpFuse
	// OpCommon keeps the intersection of objects and tools.
	OpCommon
	// OpCut keeps the objects minus the tools.
	OpCut
	// OpCut21 keeps the tools minus the objects.
	OpCut21
	// OpSection keeps the intersection edges between objects and tools.
	OpSection
	// OpSplit keeps the cells of the objects, split by the tools.
	OpSplit
)

var opNames = map[Operation]string{
	OpGeneralFuse: "gf",
	OpFuse:        "fuse",
	OpCommon:      "common",
	OpCut:         "cut",
	OpCut21:       "cut21",
	OpSection:     "section",
	OpSplit:       "split",
}

func (op Operation) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// ParseOperation parses an operation name as printed by String.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	switch s {
	case "generalfuse", "general_fuse":
		return OpGeneralFuse, nil
	case "splitter":
		return OpSplit, nil
	}
	return OpUnknown, fmt.Errorf("builder: unknown operation %q", s)
}

// IsBoolean reports whether op is one of the two-group Boolean operations.
func (op Operation) IsBoolean() bool {
	switch op {
	case OpFuse, OpCommon, OpCut, OpCut21, OpSection:
		return true
	}
	return false
}

// keeps reports whether a point belonging to objects (obj) and tools (tool)
// lies in the result of a solid Boolean operation.
func (op Operation) keeps(obj, tool bool) bool {
	switch op {
	case OpFuse:
		return obj || tool
	case OpCommon:
		return obj && tool
	case OpCut:
		return obj && !tool
	case OpCut21:
		return tool && !obj
	}
	return false
}

// mask is a set of argument ranks.
type mask []uint64

func newMask(n int) mask { return make(mask, (n+63)/64) }

func (m mask) set(r int) { m[r/64] |= 1 << (r % 64) }
func (m mask) has(r int) bool { return m[r/64]&(1<<(r%64)) != 0 }

func (m mask) intersects(o mask) bool {
	for i := range m {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (m mask) empty() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

func (m mask) equal(o mask) bool {
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

func (m mask) key() string {
	var b strings.Builder
	for i, w := range m {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%x", w)
	}
	return b.String()
}
