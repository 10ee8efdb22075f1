package graph

// Index is a read-only adjacency view over a Graph. Pair edges are excluded
// from the outgoing and incoming lists. Edge order follows the graph.
type Index struct {
	Graph *Graph

	nodes  map[string]*Node
	byName map[string][]*Node
	out    map[string][]*Edge
	in     map[string][]*Edge
}

// NewIndex builds an Index in one pass over nodes and edges. When node ids
// collide the first node wins.
func NewIndex(g *Graph) *Index {
	idx := &Index{
		Graph:  g,
		nodes:  make(map[string]*Node, len(g.Nodes)),
		byName: make(map[string][]*Node),
		out:    make(map[string][]*Edge),
		in:     make(map[string][]*Edge),
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, exists := idx.nodes[n.ID]; !exists {
			idx.nodes[n.ID] = n
		}
		if n.Name != "" {
			idx.byName[n.Name] = append(idx.byName[n.Name], n)
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.IsPair() {
			continue
		}
		idx.out[e.Source] = append(idx.out[e.Source], e)
		idx.in[e.Target] = append(idx.in[e.Target], e)
	}

	return idx
}

// Node returns the node with the given id.
func (x *Index) Node(id string) (*Node, bool) {
	n, ok := x.nodes[id]
	return n, ok
}

// HasName reports whether any node carries the given display name.
func (x *Index) HasName(name string) bool {
	return len(x.byName[name]) > 0
}

// Outgoing returns the non-pair edges leaving id.
func (x *Index) Outgoing(id string) []*Edge {
	return x.out[id]
}

// Incoming returns the non-pair edges entering id.
func (x *Index) Incoming(id string) []*Edge {
	return x.in[id]
}

// NodesOfType returns nodes of type t in graph order.
func (x *Index) NodesOfType(t NodeType) []*Node {
	var nodes []*Node
	for i := range x.Graph.Nodes {
		if x.Graph.Nodes[i].Type == t {
			nodes = append(nodes, &x.Graph.Nodes[i])
		}
	}
	return nodes
}
