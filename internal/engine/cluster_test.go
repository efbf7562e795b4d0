package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

const (
	isolatedGSTIN = "33AAACX4444D1Z9"
	secondPairOne = "29AAACY5555E1Z7"
	secondPairTwo = "09AAACZ6666F1Z5"
)

func TestFindRiskClustersPartition(t *testing.T) {
	invDate := date(2024, time.March, 10)
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 80, 12),
			taxpayer("TP002", supplierGSTIN, 70, 8),
			taxpayer("TP003", upstreamGSTIN, 40, 2),
			taxpayer("TP004", secondPairOne, 90, 20),
			taxpayer("TP005", secondPairTwo, 85, 18),
			taxpayer("TP006", isolatedGSTIN, 50, 5),
		},
		Invoices: []domain.Invoice{
			// Component one: buyer <- supplier <- upstream.
			invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
			invoice("INV00002", upstreamGSTIN, supplierGSTIN, "032024", invDate, 900),
			// Component two: a separate trading pair.
			invoice("INV00003", secondPairOne, secondPairTwo, "032024", invDate, 450),
		},
	}
	d := NewClusterDetector(build(t, snap), zap.NewNop())

	report := d.FindRiskClusters()

	// The isolated party trades with nobody and belongs to no cluster.
	assert.Equal(t, 2, report.TotalClusters)
	assert.Equal(t, 5, report.TotalParties)

	seen := map[string]int{}
	for _, c := range report.Clusters {
		for _, member := range c.Members {
			seen[member]++
		}
	}
	// Hard partition: every trading party in exactly one cluster.
	assert.Len(t, seen, 5)
	for gstin, count := range seen {
		assert.Equal(t, 1, count, gstin)
	}
	assert.NotContains(t, seen, isolatedGSTIN)
}

func TestFindRiskClustersScoring(t *testing.T) {
	invDate := date(2024, time.March, 10)
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 80, 12),
			// compliance 10, no bonus: composite 90, a critical member.
			taxpayer("TP002", supplierGSTIN, 10, 0),
		},
		Invoices: []domain.Invoice{
			invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
		},
	}
	snap.Invoices[0].TotalValue = 11800
	d := NewClusterDetector(build(t, snap), zap.NewNop())

	report := d.FindRiskClusters()
	require.Len(t, report.Clusters, 1)

	c := report.Clusters[0]
	assert.Equal(t, "CLU001", c.ClusterID)
	assert.Equal(t, 2, c.Size)
	// buyer composite: 100-80+0+0-18 = 2; supplier composite: 90.
	assert.InDelta(t, 46.0, c.AvgRiskScore, 0.01)
	assert.InDelta(t, 90.0, c.MaxRiskScore, 0.01)
	assert.True(t, c.HasCriticalMember)
	assert.InDelta(t, 11800.0, c.TotalValue, 0.01)
	assert.Equal(t, domain.RiskMedium, c.RiskLevel)
}

func TestFindRiskClustersOrderedByRisk(t *testing.T) {
	invDate := date(2024, time.March, 10)
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 95, 24),
			taxpayer("TP002", supplierGSTIN, 95, 24),
			taxpayer("TP003", secondPairOne, 20, 0),
			taxpayer("TP004", secondPairTwo, 20, 0),
		},
		Invoices: []domain.Invoice{
			invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
			invoice("INV00002", secondPairOne, secondPairTwo, "032024", invDate, 900),
		},
	}
	d := NewClusterDetector(build(t, snap), zap.NewNop())

	report := d.FindRiskClusters()
	require.Len(t, report.Clusters, 2)
	assert.Greater(t, report.Clusters[0].AvgRiskScore, report.Clusters[1].AvgRiskScore)
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind()
	for i := graph.NodeID(0); i < 6; i++ {
		uf.add(i)
	}
	uf.union(0, 1)
	uf.union(1, 2)
	uf.union(3, 4)

	assert.Equal(t, uf.find(0), uf.find(2))
	assert.Equal(t, uf.find(3), uf.find(4))
	assert.NotEqual(t, uf.find(0), uf.find(3))
	assert.NotEqual(t, uf.find(5), uf.find(0))
}
