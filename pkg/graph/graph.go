package graph

import "fmt"

// DefaultSegments is the number of sides of a cylinder when none is given.
const DefaultSegments = 32

// GlobalDefaults contains graph-wide default settings.
type GlobalDefaults struct {
	Fuzzy    float64 `json:"fuzzy"`    // additional Boolean tolerance
	Segments int     `json:"segments"` // cylinder sides
	Units    string  `json:"units"`
}

// DesignGraph is the top-level immutable data structure produced by script
// evaluation. Each evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  GlobalDefaults    `json:"defaults"`
	Version   uint64            `json:"version"`
}

// New creates an empty DesignGraph with default settings.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: GlobalDefaults{
			Segments: DefaultSegments,
			Units:    "mm",
		},
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph. Repeated IDs are
// ignored.
func (g *DesignGraph) AddRoot(id NodeID) {
	for _, r := range g.Roots {
		if r == id {
			return
		}
	}
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Children returns the child nodes of n that exist in the graph.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// OfKind returns every node of kind k.
func (g *DesignGraph) OfKind(k NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Unreferenced returns the IDs in order that no node lists as a child.
// These are the implicit roots of a script without an explicit output.
func (g *DesignGraph) Unreferenced(order []NodeID) []NodeID {
	used := make(map[NodeID]bool)
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			used[c] = true
		}
	}
	var out []NodeID
	for _, id := range order {
		if !used[id] && g.Nodes[id] != nil {
			out = append(out, id)
		}
	}
	return out
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}

// Label returns the node's name, or its short ID when unnamed.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}
