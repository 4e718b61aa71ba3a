package graph

import (
	"github.com/google/uuid"
)

// NodeKind enumerates the types of nodes in the design graph.
type NodeKind int

const (
	NodePrimitive NodeKind = iota // box, cylinder, prism or planar polygon
	NodeTransform                 // placement of one child (place)
	NodeBoolean                   // Boolean operation over objects and tools
	NodeGroup                     // list of independent results
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeTransform:
		return "transform"
	case NodeBoolean:
		return "boolean"
	case NodeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// NodeID identifies a node. IDs are name-based UUIDs derived from the path
// of the form that created the node, so re-evaluating the same script
// yields the same IDs.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// namespace seeds every NodeID.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/xylem/graph"))

// NewNodeID returns the ID for a creation path such as "defsolid/base".
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(namespace, []byte(path)).String())
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

func (id NodeID) String() string { return string(id) }

// Short returns the first eight characters of id.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Node is the fundamental element of the design graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
