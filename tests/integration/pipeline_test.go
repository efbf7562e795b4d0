package integration

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/crypto"
	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/engine"
	"github.com/gstech/itc-compliance/internal/mockdata"
	"github.com/gstech/itc-compliance/internal/service"
)

// TestCompliancePipeline runs the full pipeline against a generated dataset:
// snapshot load, graph build, and every query surface the API exposes.
func TestCompliancePipeline(t *testing.T) {
	// 1. Setup
	logger, _ := zap.NewDevelopment()
	signer, err := crypto.NewSigner(base64.StdEncoding.EncodeToString([]byte("integration-secret")))
	require.NoError(t, err)

	opts := mockdata.DefaultOptions()
	repo := mockdata.NewSnapshotRepository(opts)

	svc := service.NewGraphService(repo, nil, signer, engine.DefaultConfig(), logger)
	require.NoError(t, svc.Rebuild(context.Background()))

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snap.Taxpayers)
	require.NotEmpty(t, snap.Invoices)

	asOf := domain.NewDate(2025, time.June, 30)

	// 2. Graph stats
	stats := svc.Stats()
	assert.Equal(t, len(snap.Taxpayers), stats.NodeTypes["Taxpayer"])
	assert.Equal(t, len(snap.Taxpayers), stats.NodeTypes["GSTIN"])
	assert.Equal(t, len(snap.Invoices), stats.NodeTypes["Invoice"])
	assert.Greater(t, stats.EdgeCount, stats.NodeCount)
	assert.Empty(t, svc.Warnings(), "generated snapshot must have no dangling references")

	// 3. Reconcile every buyer/period pair seen in the dataset
	type buyerPeriod struct{ gstin, period string }
	pairs := map[buyerPeriod]int{}
	for _, inv := range snap.Invoices {
		pairs[buyerPeriod{inv.BuyerGSTIN, inv.ReturnPeriod}]++
	}
	require.NotEmpty(t, pairs)

	totalMatched, totalMismatched, totalInvoices := 0, 0, 0
	for pair, count := range pairs {
		res, err := svc.ReconcilePeriod(pair.gstin, pair.period, asOf)
		require.NoError(t, err)
		assert.Equal(t, count, res.TotalInvoices)
		assert.Equal(t, res.TotalInvoices, res.MatchedCount+res.MismatchedCount,
			"every invoice is either matched or mismatched")
		assert.GreaterOrEqual(t, res.MatchRate, 0.0)
		assert.LessOrEqual(t, res.MatchRate, 100.0)
		totalMatched += res.MatchedCount
		totalMismatched += res.MismatchedCount
		totalInvoices += res.TotalInvoices
	}
	assert.Equal(t, len(snap.Invoices), totalInvoices)
	assert.Positive(t, totalMismatched, "the generator seeds mismatches")
	assert.Positive(t, totalMatched)

	// 4. Payment compliance for every buyer
	buyers := map[string]struct{}{}
	for _, inv := range snap.Invoices {
		buyers[inv.BuyerGSTIN] = struct{}{}
	}
	sawOverdue := false
	for gstin := range buyers {
		res, err := svc.CheckPaymentCompliance(gstin, asOf)
		require.NoError(t, err)
		// Zero-rated invoices are checked but get no verdict.
		assert.GreaterOrEqual(t, res.TotalInvoices,
			res.SafeCount+res.OverdueCount+res.PendingCount+res.PaidLateCount)
		if res.OverdueCount > 0 {
			sawOverdue = true
			assert.Positive(t, res.TotalExposure)
			assert.Positive(t, res.TotalInterestDue)
		}
	}
	assert.True(t, sawOverdue, "the generator seeds overdue payment scenarios")

	// 5. Supply chain validation; the buyer itself is assessed at hop 0
	var chainChecked bool
	for gstin := range buyers {
		res, err := svc.ValidateChain(gstin, 3)
		require.NoError(t, err)
		require.NotEmpty(t, res.Hops)
		assert.Equal(t, 0, res.Hops[0].Hop)
		assert.Equal(t, gstin, res.Hops[0].GSTIN)
		if res.SuppliersFound < 2 {
			continue
		}
		chainChecked = true
		for _, hop := range res.Hops {
			assert.GreaterOrEqual(t, hop.Hop, 0)
			assert.LessOrEqual(t, hop.Hop, 3)
			assert.GreaterOrEqual(t, hop.RiskScore, 0.0)
			assert.LessOrEqual(t, hop.RiskScore, 100.0)
		}
	}
	assert.True(t, chainChecked, "at least one buyer has upstream suppliers")

	// 6. Risk clusters partition the trading network
	report := svc.RiskClusters()
	require.NotNil(t, report)
	assert.Positive(t, report.TotalClusters)
	seen := map[string]string{}
	for _, cluster := range report.Clusters {
		assert.GreaterOrEqual(t, cluster.AvgRiskScore, 0.0)
		assert.LessOrEqual(t, cluster.AvgRiskScore, 100.0)
		for _, member := range cluster.Members {
			prev, dup := seen[member]
			assert.False(t, dup, "GSTIN %s appears in clusters %s and %s", member, prev, cluster.ClusterID)
			seen[member] = cluster.ClusterID
		}
	}

	// 7. Predictions for every profiled vendor stay in range
	predictions := svc.PredictAll()
	require.NotEmpty(t, predictions)
	for _, p := range predictions {
		assert.GreaterOrEqual(t, p.PredictedScore, 0.0)
		assert.LessOrEqual(t, p.PredictedScore, 100.0)
		assert.Contains(t, []string{"UP", "DOWN", "STABLE"}, p.Movement)
		assert.NotEmpty(t, p.Recommendation)
	}

	// 8. Vendor risk profiles are ordered worst first
	profiles := svc.VendorProfiles(0)
	require.NotEmpty(t, profiles)
	for i := 1; i < len(profiles); i++ {
		assert.GreaterOrEqual(t, profiles[i-1].CompositeRiskScore, profiles[i].CompositeRiskScore)
	}

	t.Log("Compliance pipeline integration test passed")
}
