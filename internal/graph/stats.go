package graph

import "github.com/gstech/itc-compliance/internal/domain"

// Stats is a structural summary of a built graph.
type Stats struct {
	NodeCount     int            `json:"node_count"`
	EdgeCount     int            `json:"edge_count"`
	NodeTypes     map[string]int `json:"node_types"`
	EdgeTypes     map[string]int `json:"edge_types"`
	TradingPairs  int            `json:"trading_pairs"`
	FlaggedPairs  int            `json:"flagged_pairs"`
	AvgDegree     float64        `json:"avg_degree"`
	MaxDegree     int            `json:"max_degree"`
	Components    int            `json:"trading_components"`
	Density       float64        `json:"density"`
	Warnings      int            `json:"integrity_warnings"`
	BuiltAt       string         `json:"built_at"`
}

// Stats computes node and edge type breakdowns, degree summary and the number
// of connected components in the party trading network.
func (g *Graph) Stats() Stats {
	s := Stats{
		NodeCount:    g.NodeCount(),
		EdgeCount:    g.EdgeCount(),
		NodeTypes:    make(map[string]int),
		EdgeTypes:    make(map[string]int),
		TradingPairs: len(g.aggEdges),
		Warnings:     len(g.warnings),
		BuiltAt:      g.builtAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	for _, n := range g.nodes {
		s.NodeTypes[n.typ.String()]++
	}
	for _, edges := range g.out {
		for _, e := range edges {
			s.EdgeTypes[e.Type.String()]++
		}
	}
	s.EdgeTypes["TRANSACTS_WITH"] = len(g.aggEdges)
	for _, agg := range g.aggEdges {
		if agg.RiskFlag {
			s.FlaggedPairs++
		}
	}

	// Degree summary over GSTIN nodes, the party layer the engines query.
	parties := 0
	degreeSum := 0
	for id, n := range g.nodes {
		if n.typ != NodeGSTIN {
			continue
		}
		parties++
		d := g.InDegree(NodeID(id)) + g.OutDegree(NodeID(id))
		degreeSum += d
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	if parties > 0 {
		s.AvgDegree = domain.Round2(float64(degreeSum) / float64(parties))
	}
	if parties > 1 {
		s.Density = domain.Round3(float64(len(g.aggEdges)) / float64(parties*(parties-1)))
	}
	s.Components = g.tradingComponents()

	return s
}

// tradingComponents counts connected components of the undirected trading
// network using union-find with path compression.
func (g *Graph) tradingComponents() int {
	parent := make(map[NodeID]NodeID)
	var find func(NodeID) NodeID
	find = func(x NodeID) NodeID {
		root, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if root == x {
			return x
		}
		r := find(root)
		parent[x] = r
		return r
	}
	union := func(a, b NodeID) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for id, n := range g.nodes {
		if n.typ == NodeGSTIN {
			find(NodeID(id))
		}
	}
	for _, agg := range g.aggEdges {
		union(agg.Supplier, agg.Buyer)
	}

	roots := make(map[NodeID]struct{})
	for x := range parent {
		roots[find(x)] = struct{}{}
	}
	return len(roots)
}
