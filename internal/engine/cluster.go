package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

const (
	clusterCriticalMemberScore = 80.0
	topClusterLimit            = 10
	clusterMemberDisplayLimit  = 10
)

// RiskCluster is one connected component of the trading network, scored by
// its members' composite vendor risk.
type RiskCluster struct {
	ClusterID         string           `json:"cluster_id"`
	Size              int              `json:"size"`
	Members           []string         `json:"members"`
	AvgRiskScore      float64          `json:"avg_risk_score"`
	MaxRiskScore      float64          `json:"max_risk_score"`
	HasCriticalMember bool             `json:"has_critical_member"`
	TotalValue        float64          `json:"total_transaction_value"`
	RiskLevel         domain.RiskLevel `json:"risk_level"`
}

// ClusterReport is the full clustering outcome.
type ClusterReport struct {
	TotalClusters int           `json:"total_clusters"`
	TotalParties  int           `json:"total_parties"`
	Clusters      []RiskCluster `json:"clusters"`
}

// ClusterDetector partitions the trading network into connected components
// and scores each one.
type ClusterDetector struct {
	g      *graph.Graph
	logger *zap.Logger
}

// NewClusterDetector binds a detector to a graph build.
func NewClusterDetector(g *graph.Graph, logger *zap.Logger) *ClusterDetector {
	return &ClusterDetector{g: g, logger: logger}
}

// unionFind is a weighted disjoint-set forest with path compression over
// graph node ids.
type unionFind struct {
	parent map[graph.NodeID]graph.NodeID
	size   map[graph.NodeID]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[graph.NodeID]graph.NodeID),
		size:   make(map[graph.NodeID]int),
	}
}

func (u *unionFind) add(x graph.NodeID) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.size[x] = 1
	}
}

func (u *unionFind) find(x graph.NodeID) graph.NodeID {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b graph.NodeID) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// FindRiskClusters computes the hard partition of trading parties into
// connected components and returns the highest-risk clusters. Every party
// with at least one trading relationship lands in exactly one cluster.
func (d *ClusterDetector) FindRiskClusters() *ClusterReport {
	uf := newUnionFind()
	for _, agg := range d.g.AggregateEdges() {
		uf.add(agg.Supplier)
		uf.add(agg.Buyer)
		uf.union(agg.Supplier, agg.Buyer)
	}

	components := make(map[graph.NodeID][]graph.NodeID)
	var roots []graph.NodeID
	for node := range uf.parent {
		root := uf.find(node)
		if _, seen := components[root]; !seen {
			roots = append(roots, root)
		}
		components[root] = append(components[root], node)
	}
	// Map iteration order is random; discovery order must be stable for the
	// CLU ids to mean anything across calls.
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	report := &ClusterReport{Clusters: []RiskCluster{}}
	for i, root := range roots {
		members := components[root]
		sort.Slice(members, func(a, b int) bool { return members[a] < members[b] })
		cluster := d.scoreCluster(fmt.Sprintf("CLU%03d", i+1), members)
		report.TotalParties += cluster.Size
		report.Clusters = append(report.Clusters, cluster)
	}
	report.TotalClusters = len(report.Clusters)

	sort.SliceStable(report.Clusters, func(i, j int) bool {
		return report.Clusters[i].AvgRiskScore > report.Clusters[j].AvgRiskScore
	})
	if len(report.Clusters) > topClusterLimit {
		report.Clusters = report.Clusters[:topClusterLimit]
	}

	d.logger.Debug("risk clusters computed",
		zap.Int("clusters", report.TotalClusters),
		zap.Int("parties", report.TotalParties))

	return report
}

func (d *ClusterDetector) scoreCluster(id string, members []graph.NodeID) RiskCluster {
	c := RiskCluster{ClusterID: id, Size: len(members)}

	scoreSum := 0.0
	memberSet := make(map[graph.NodeID]bool, len(members))
	for _, node := range members {
		memberSet[node] = true
		gstin := d.g.GSTINOf(node)
		if len(c.Members) < clusterMemberDisplayLimit {
			c.Members = append(c.Members, gstin)
		}

		score := graph.DefaultRiskScore
		if s, ok := d.g.RiskScore(gstin); ok {
			score = s
		}
		scoreSum += score
		if score > c.MaxRiskScore {
			c.MaxRiskScore = score
		}
		if score >= clusterCriticalMemberScore {
			c.HasCriticalMember = true
		}
	}

	// Internal value only: both endpoints inside the cluster. With a hard
	// partition every edge of a member is internal, but the guard keeps the
	// invariant explicit.
	for _, agg := range d.g.AggregateEdges() {
		if memberSet[agg.Supplier] && memberSet[agg.Buyer] {
			c.TotalValue += agg.TotalValue
		}
	}

	c.AvgRiskScore = domain.Round1(scoreSum / float64(len(members)))
	c.TotalValue = domain.Round2(c.TotalValue)
	switch {
	case c.AvgRiskScore >= 70:
		c.RiskLevel = domain.RiskCritical
	case c.AvgRiskScore >= 50:
		c.RiskLevel = domain.RiskHigh
	case c.AvgRiskScore >= 30:
		c.RiskLevel = domain.RiskMedium
	default:
		c.RiskLevel = domain.RiskLow
	}
	return c
}
