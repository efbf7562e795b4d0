package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

func twoPartySnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Taxpayers: []domain.Taxpayer{
			taxpayer("TP001", buyerGSTIN, 80, 12),
			taxpayer("TP002", supplierGSTIN, 70, 8),
		},
	}
}

func TestReconcileUnknownGSTIN(t *testing.T) {
	r := newTestReconciler(t, twoPartySnapshot())

	_, err := r.ReconcilePeriod("33ZZZZZ9999Z1Z9", "032024", date(2024, time.June, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrGSTINNotFound)
}

func TestReconcileNoInvoices(t *testing.T) {
	r := newTestReconciler(t, twoPartySnapshot())

	res, err := r.ReconcilePeriod(buyerGSTIN, "032024", date(2024, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, ReconcileNoInvoices, res.Status)
	assert.Zero(t, res.TotalInvoices)
	assert.Zero(t, res.MatchRate)
	assert.Zero(t, res.TotalITC)
	assert.Empty(t, res.Invoices)
}

func TestReconcileMatchedInvoice(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.March, 10)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
	}
	snap.Payments = []domain.Payment{payment("INV00001", invDate, 45)}
	r := newTestReconciler(t, snap)

	res, err := r.ReconcilePeriod(buyerGSTIN, "032024", date(2024, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalInvoices)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, 0, res.MismatchedCount)
	assert.InDelta(t, 100.0, res.MatchRate, 0.001)

	row := res.Invoices[0]
	assert.Equal(t, StatusMatched, row.Status)
	assert.Equal(t, domain.RiskLow, row.RiskLevel)
	assert.Equal(t, PaymentStatusPaid, row.PaymentStatus)
	assert.Zero(t, row.ITCAtRisk)
}

func TestReconcileMissingIn2B(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.March, 10)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
	}
	snap.Mismatches = []domain.Mismatch{
		mismatch("MIS0001", "INV00001", domain.MismatchMissing2B, domain.RiskHigh, 1200),
	}
	snap.Payments = []domain.Payment{payment("INV00001", invDate, 30)}
	r := newTestReconciler(t, snap)

	res, err := r.ReconcilePeriod(buyerGSTIN, "032024", date(2024, time.June, 1))
	require.NoError(t, err)

	row := res.Invoices[0]
	assert.Equal(t, StatusMissing2B, row.Status)
	assert.Equal(t, domain.RiskHigh, row.RiskLevel)
	// Missing-in-2B puts the full invoice ITC at risk, not the mismatch
	// amount.
	assert.InDelta(t, 1800.0, row.ITCAtRisk, 0.01)
	assert.InDelta(t, 1800.0, res.TotalITCAtRisk, 0.01)
}

func TestReconcileHighestSeverityWins(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.March, 10)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1800),
	}
	snap.Mismatches = []domain.Mismatch{
		mismatch("MIS0001", "INV00001", domain.MismatchDate, domain.RiskMedium, 300),
		mismatch("MIS0002", "INV00001", domain.MismatchIRN, domain.RiskCritical, 900),
	}
	snap.Payments = []domain.Payment{payment("INV00001", invDate, 30)}
	r := newTestReconciler(t, snap)

	res, err := r.ReconcilePeriod(buyerGSTIN, "032024", date(2024, time.June, 1))
	require.NoError(t, err)

	row := res.Invoices[0]
	assert.Equal(t, string(domain.MismatchIRN), row.Status)
	assert.Equal(t, domain.RiskCritical, row.RiskLevel)
	assert.InDelta(t, 1200.0, row.ITCAtRisk, 0.01)
}

func TestReconcileSynthesizesOverdueMismatch(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.January, 1)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "012024", invDate, 18000),
	}
	r := newTestReconciler(t, snap)

	// 200 days unpaid.
	res, err := r.ReconcilePeriod(buyerGSTIN, "012024", invDate.AddDays(200))
	require.NoError(t, err)

	row := res.Invoices[0]
	assert.Equal(t, string(domain.MismatchPaymentOverdue), row.Status)
	assert.Equal(t, domain.RiskCritical, row.RiskLevel)
	assert.True(t, row.ReversalDue)
	require.Len(t, row.Mismatches, 1)

	m := row.Mismatches[0]
	assert.Equal(t, domain.MismatchPaymentOverdue, m.Type)
	assert.InDelta(t, 18000.0, m.AmountAtRisk, 0.01)
	// 18000 * 0.18 * 200/365
	assert.InDelta(t, 1775.34, m.InterestLiability, 0.01)
	assert.Equal(t, 20, m.DaysOverdue)
	assert.InDelta(t, 1775.34, res.TotalInterestLiability, 0.01)
}

func TestReconcileSyntheticIsPerCallOnly(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.January, 1)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "012024", invDate, 18000),
	}
	r := newTestReconciler(t, snap)

	before, err := r.ReconcilePeriod(buyerGSTIN, "012024", invDate.AddDays(90))
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, before.Invoices[0].Status)

	after, err := r.ReconcilePeriod(buyerGSTIN, "012024", invDate.AddDays(200))
	require.NoError(t, err)
	assert.Equal(t, string(domain.MismatchPaymentOverdue), after.Invoices[0].Status)

	// Same query at the earlier date again: the synthetic mismatch did not
	// leak into the graph.
	again, err := r.ReconcilePeriod(buyerGSTIN, "012024", invDate.AddDays(90))
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, again.Invoices[0].Status)
}

func TestReconcileCountsAndSorting(t *testing.T) {
	snap := twoPartySnapshot()
	invDate := date(2024, time.March, 10)
	snap.Invoices = []domain.Invoice{
		invoice("INV00001", supplierGSTIN, buyerGSTIN, "032024", invDate, 1000),
		invoice("INV00002", supplierGSTIN, buyerGSTIN, "032024", invDate, 2000),
		invoice("INV00003", supplierGSTIN, buyerGSTIN, "032024", invDate, 3000),
	}
	snap.Mismatches = []domain.Mismatch{
		mismatch("MIS0001", "INV00001", domain.MismatchDate, domain.RiskMedium, 100),
		mismatch("MIS0002", "INV00002", domain.MismatchIRN, domain.RiskCritical, 500),
	}
	for _, id := range []string{"INV00001", "INV00002", "INV00003"} {
		snap.Payments = append(snap.Payments, payment(id, invDate, 30))
	}
	r := newTestReconciler(t, snap)

	res, err := r.ReconcilePeriod(buyerGSTIN, "032024", date(2024, time.June, 1))
	require.NoError(t, err)

	assert.Equal(t, res.TotalInvoices, res.MatchedCount+res.MismatchedCount)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, 2, res.MismatchedCount)
	assert.InDelta(t, 33.3, res.MatchRate, 0.001)

	// Severity descending: CRITICAL, MEDIUM, then the matched LOW row.
	require.Len(t, res.Invoices, 3)
	assert.Equal(t, "INV00002", res.Invoices[0].InvoiceID)
	assert.Equal(t, "INV00001", res.Invoices[1].InvoiceID)
	assert.Equal(t, "INV00003", res.Invoices[2].InvoiceID)
}
