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

func newTestPredictor(t *testing.T, snap *domain.Snapshot) *Predictor {
	t.Helper()
	return NewPredictor(build(t, snap), zap.NewNop())
}

func riskySupplierSnapshot() *domain.Snapshot {
	invDate := date(2024, time.March, 10)
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			// Buyer with a terrible record so the supplier's neighborhood
			// looks dangerous: composite 100-20 = 80.
			taxpayer("TP001", buyerGSTIN, 20, 0),
			// Supplier: base 30 + penalties, streak 0.
			taxpayer("TP002", supplierGSTIN, 70, 0),
		},
		Invoices: []domain.Invoice{
			invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
			invoice("INV00002", supplierGSTIN, buyerGSTIN, "042024", invDate, 900),
		},
		Mismatches: []domain.Mismatch{
			mismatch("MIS0001", "INV00001", domain.MismatchIRN, domain.RiskCritical, 1500),
		},
	}
	return snap
}

func TestComputeFeatures(t *testing.T) {
	p := newTestPredictor(t, riskySupplierSnapshot())

	f, err := p.ComputeFeatures(supplierGSTIN)
	require.NoError(t, err)

	assert.Equal(t, 1, f.InDegree)
	assert.Equal(t, 3, f.OutDegree)
	// Connection count, not money: degree sum, never the traded value.
	assert.Equal(t, f.InDegree+f.OutDegree, f.TransactionVolume)
	assert.Equal(t, 4, f.TransactionVolume)
	assert.Equal(t, 2, f.InvoiceCount)
	assert.Equal(t, 1, f.MismatchCount)
	assert.InDelta(t, 0.5, f.MismatchRatio, 0.001)
	assert.True(t, f.HasCriticalHistory)
	assert.InDelta(t, 80.0, f.AvgNeighborRisk, 0.01)
	assert.InDelta(t, 24.0, f.NetworkRiskAmp, 0.01)
	assert.Equal(t, 0, f.FilingStreak)
	assert.InDelta(t, 0.0, f.FilingConsistency, 0.001)
}

func TestComputeFeaturesUnknownGSTIN(t *testing.T) {
	p := newTestPredictor(t, twoPartySnapshot())

	_, err := p.ComputeFeatures("33ZZZZZ9999Z1Z9")
	assert.ErrorIs(t, err, graph.ErrGSTINNotFound)
}

func TestComputeFeaturesNoNeighbors(t *testing.T) {
	p := newTestPredictor(t, twoPartySnapshot())

	f, err := p.ComputeFeatures(buyerGSTIN)
	require.NoError(t, err)
	assert.Equal(t, graph.DefaultRiskScore, f.AvgNeighborRisk)
	assert.Zero(t, f.InvoiceCount)
	assert.Zero(t, f.MismatchRatio)
}

func TestPredictRiskyVendorClampsAtHundred(t *testing.T) {
	p := newTestPredictor(t, riskySupplierSnapshot())

	pred, err := p.Predict(supplierGSTIN)
	require.NoError(t, err)

	// Rule hits: ratio>0.4, dangerous neighborhood, streak<3, critical
	// history. Raw score blows past the cap.
	assert.InDelta(t, 100.0, pred.PredictedScore, 0.001)
	assert.Equal(t, domain.RiskCritical, pred.RiskCategory)
	assert.Equal(t, MovementUp, pred.Movement)
	assert.Equal(t, "MEDIUM", pred.Confidence)
	assert.NotEmpty(t, pred.KeyFactors)
	assert.NotEmpty(t, pred.Recommendation)
}

func TestPredictStaysInRange(t *testing.T) {
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 95, 24),
			taxpayer("TP002", supplierGSTIN, 95, 24),
		},
	}
	p := newTestPredictor(t, snap)

	for _, gstin := range []string{buyerGSTIN, supplierGSTIN} {
		pred, err := p.Predict(gstin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pred.PredictedScore, 0.0)
		assert.LessOrEqual(t, pred.PredictedScore, 100.0)
	}
}

func TestPredictRewardsLongStreak(t *testing.T) {
	invDate := date(2024, time.March, 10)
	snap := &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 90, 20),
			taxpayer("TP002", supplierGSTIN, 90, 20),
		},
		Invoices: []domain.Invoice{
			invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
		},
	}
	p := newTestPredictor(t, snap)

	pred, err := p.Predict(supplierGSTIN)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, pred.RiskCategory)
	assert.Contains(t, pred.KeyFactors[0], "strong filing streak")
}

func TestPredictAllSortedDescending(t *testing.T) {
	p := newTestPredictor(t, riskySupplierSnapshot())

	preds := p.PredictAll()
	require.Len(t, preds, 2)
	assert.GreaterOrEqual(t, preds[0].PredictedScore, preds[1].PredictedScore)
	assert.Equal(t, supplierGSTIN, preds[0].GSTIN)
}

func TestMovement(t *testing.T) {
	assert.Equal(t, MovementUp, movement(30, 90))
	assert.Equal(t, MovementDown, movement(90, 30))
	assert.Equal(t, MovementStable, movement(45, 55))
}
