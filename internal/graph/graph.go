package graph

// Node represents a vertex in the call graph.
type Node struct {
	Symbol *Symbol
}

// Edge represents a directed call between two nodes.
type Edge struct {
	From string
	To   string
	Kind RelationKind
}

// Graph manages nodes and their relationships.
type Graph struct {
	Nodes      map[string]*Node
	Edges      []Edge
	Unresolved []Unresolved

	// order keeps insertion order so linking is deterministic.
	order []string
	// Name -> []ID, for both plain and Owner::Name keys.
	nameIndex map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		Edges:     []Edge{},
		nameIndex: make(map[string][]string),
	}
}

// AddSymbol adds a symbol as a node and indexes it.
func (g *Graph) AddSymbol(s *Symbol) {
	if s == nil {
		return
	}
	if _, exists := g.Nodes[s.ID]; !exists {
		g.order = append(g.order, s.ID)
	}
	g.Nodes[s.ID] = &Node{Symbol: s}

	g.nameIndex[s.Name] = append(g.nameIndex[s.Name], s.ID)
	if s.Owner != "" {
		key := s.QualifiedName()
		g.nameIndex[key] = append(g.nameIndex[key], s.ID)
	}
}

// LinkRelations resolves all name-based relations to node IDs. Calls that
// match nothing, or more than one node, are recorded in Unresolved; ambiguous
// calls are still linked to every candidate.
func (g *Graph) LinkRelations() {
	g.Edges = []Edge{}
	g.Unresolved = nil

	for _, sourceID := range g.order {
		node := g.Nodes[sourceID]
		for _, rel := range node.Symbol.Relations {
			targets := g.resolveTarget(rel, node.Symbol.Owner)
			switch {
			case len(targets) == 0:
				g.Unresolved = append(g.Unresolved, Unresolved{From: sourceID, Target: rel.Target, Reason: ReasonNoCandidate})
			case len(targets) > 1:
				g.Unresolved = append(g.Unresolved, Unresolved{From: sourceID, Target: rel.Target, Reason: ReasonAmbiguous})
			}
			for _, targetID := range targets {
				g.Edges = append(g.Edges, Edge{From: sourceID, To: targetID, Kind: rel.Kind})
			}
		}
	}
}

// resolveTarget finds potential target IDs for a call.
func (g *Graph) resolveTarget(rel Relation, sourceOwner string) []string {
	scope := rel.Scope
	if scope == "Self" || scope == "self" {
		scope = sourceOwner
	}

	// 1. Qualified match: Type::name or Self::name
	if scope != "" {
		if ids, ok := g.nameIndex[scope+"::"+rel.Target]; ok {
			return ids
		}
		// A foreign path (std::mem::take) never resolves to a local free function.
		if rel.Scope != "Self" && rel.Scope != "self" {
			return nil
		}
	}

	// 2. Methods on self prefer the caller's own impl.
	if rel.Kind == RelationMethodCalls && sourceOwner != "" {
		if ids, ok := g.nameIndex[sourceOwner+"::"+rel.Target]; ok {
			return ids
		}
	}

	// 3. Plain name. Method syntax only reaches functions of some impl.
	ids := g.nameIndex[rel.Target]
	if rel.Kind != RelationMethodCalls {
		return ids
	}
	var methods []string
	for _, id := range ids {
		if g.Nodes[id].Symbol.Owner != "" {
			methods = append(methods, id)
		}
	}
	return methods
}

// GetDependencies returns all nodes that the given node calls.
func (g *Graph) GetDependencies(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.From == id {
			if node, ok := g.Nodes[edge.To]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// GetDependents returns all nodes that call the given node.
func (g *Graph) GetDependents(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.To == id {
			if node, ok := g.Nodes[edge.From]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// Reachable returns the IDs reachable from roots, roots included.
func (g *Graph) Reachable(roots []string) map[string]bool {
	seen := make(map[string]bool, len(g.Nodes))
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, ok := g.Nodes[r]; ok && !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.GetDependencies(cur) {
			if id := next.Symbol.ID; !seen[id] {
				seen[id] = true
				queue = append(queue, id)
			}
		}
	}
	return seen
}

// PublicRoots returns the IDs of exported functions in insertion order.
func (g *Graph) PublicRoots() []string {
	var roots []string
	for _, id := range g.order {
		if g.Nodes[id].Symbol.Public {
			roots = append(roots, id)
		}
	}
	return roots
}
