package graph

// Stats summarises a linked graph for debug logging.
type Stats struct {
	Symbols    int
	Edges      int
	Unresolved map[UnresolvedReason]int
}

func (g *Graph) Stats() Stats {
	if g == nil {
		return Stats{Unresolved: map[UnresolvedReason]int{}}
	}
	return Stats{
		Symbols:    len(g.Nodes),
		Edges:      len(g.Edges),
		Unresolved: g.UnresolvedReasonCounts(),
	}
}

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		counts[u.Reason]++
	}
	return counts
}
