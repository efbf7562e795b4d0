package mockdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gstech/itc-compliance/internal/domain"
)

func TestGenerateDeterministic(t *testing.T) {
	opts := DefaultOptions()
	a := NewGenerator(opts).Generate()
	b := NewGenerator(opts).Generate()

	require.Equal(t, len(a.Taxpayers), len(b.Taxpayers))
	require.Equal(t, len(a.Invoices), len(b.Invoices))
	require.Equal(t, len(a.Payments), len(b.Payments))
	assert.Equal(t, a.Taxpayers, b.Taxpayers)
	assert.Equal(t, a.Invoices, b.Invoices)
	assert.Equal(t, a.Mismatches, b.Mismatches)
}

func TestGenerateVolumes(t *testing.T) {
	snap := NewGenerator(DefaultOptions()).Generate()

	assert.Len(t, snap.Taxpayers, 50)
	assert.Len(t, snap.Invoices, 500)
	assert.Len(t, snap.Mismatches, 150)
	// Roughly 15% of invoices stay unpaid.
	assert.Less(t, len(snap.Payments), 500)
	assert.Greater(t, len(snap.Payments), 300)
	assert.NotEmpty(t, snap.Returns)
}

func TestGeneratedSnapshotValidates(t *testing.T) {
	snap := NewGenerator(DefaultOptions()).Generate()
	assert.Empty(t, snap.Validate())
}

func TestGeneratedInvoiceInvariants(t *testing.T) {
	snap := NewGenerator(DefaultOptions()).Generate()

	for _, inv := range snap.Invoices {
		if inv.SupplyType == domain.SupplyInterState {
			assert.Zero(t, inv.CGST, inv.InvoiceID)
			assert.Zero(t, inv.SGST, inv.InvoiceID)
		} else {
			assert.Zero(t, inv.IGST, inv.InvoiceID)
			assert.Equal(t, inv.CGST, inv.SGST, inv.InvoiceID)
		}
		if inv.TaxableValue >= irnThreshold {
			assert.NotEmpty(t, inv.IRN, inv.InvoiceID)
			assert.Len(t, inv.IRN, 64, inv.InvoiceID)
		} else {
			assert.Empty(t, inv.IRN, inv.InvoiceID)
		}
		assert.NotEqual(t, inv.SupplierGSTIN, inv.BuyerGSTIN, inv.InvoiceID)
	}
}

func TestGeneratedReferencesResolve(t *testing.T) {
	snap := NewGenerator(DefaultOptions()).Generate()

	gstins := make(map[string]bool)
	for _, tp := range snap.Taxpayers {
		assert.Len(t, tp.GSTIN, 15)
		assert.False(t, gstins[tp.GSTIN], "duplicate GSTIN")
		gstins[tp.GSTIN] = true
	}

	invoices := make(map[string]bool)
	for _, inv := range snap.Invoices {
		invoices[inv.InvoiceID] = true
		assert.True(t, gstins[inv.SupplierGSTIN], inv.InvoiceID)
		assert.True(t, gstins[inv.BuyerGSTIN], inv.InvoiceID)
	}
	for _, m := range snap.Mismatches {
		assert.True(t, invoices[m.InvoiceID], m.MismatchID)
	}
	for _, p := range snap.Payments {
		assert.True(t, invoices[p.InvoiceID], p.PaymentID)
		assert.Equal(t, p.IsOverdue, p.DaysFromInvoice > 180, p.PaymentID)
	}
}

func TestGeneratedPaymentsAtMostOnePerInvoice(t *testing.T) {
	snap := NewGenerator(DefaultOptions()).Generate()

	seen := make(map[string]bool)
	for _, p := range snap.Payments {
		assert.False(t, seen[p.InvoiceID], p.InvoiceID)
		seen[p.InvoiceID] = true
	}
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	repo := NewSnapshotRepository(DefaultOptions())

	a, err := repo.Load(context.Background())
	require.NoError(t, err)
	b, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Invoices, b.Invoices)
}
