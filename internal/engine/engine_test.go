package engine

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

const (
	buyerGSTIN    = "07AAACB1111A1Z5"
	supplierGSTIN = "27AAACS2222B1Z3"
	upstreamGSTIN = "24AAACU3333C1Z1"
)

func taxpayer(id, gstin string, compliance float64, streak int) domain.Taxpayer {
	return domain.Taxpayer{
		TaxpayerID:      id,
		Name:            id + " Trading Co",
		PAN:             gstin[2:12],
		GSTIN:           gstin,
		StateCode:       gstin[:2],
		Category:        domain.CategoryRegular,
		ComplianceScore: compliance,
		FilingStreak:    streak,
		Status:          domain.StatusActive,
	}
}

func invoice(id, supplier, buyer, period string, date domain.Date, igst float64) domain.Invoice {
	return domain.Invoice{
		InvoiceID:     id,
		InvoiceNo:     "NO-" + id,
		InvoiceDate:   date,
		SupplyType:    domain.SupplyInterState,
		ReturnPeriod:  period,
		SupplierGSTIN: supplier,
		BuyerGSTIN:    buyer,
		TaxableValue:  igst / 0.18,
		IGST:          igst,
		TotalValue:    igst/0.18 + igst,
	}
}

func payment(invoiceID string, invDate domain.Date, days int) domain.Payment {
	return domain.Payment{
		PaymentID:       "PAY-" + invoiceID,
		InvoiceID:       invoiceID,
		InvoiceDate:     invDate,
		PaymentDate:     invDate.AddDays(days),
		DaysFromInvoice: days,
		IsOverdue:       days > 180,
	}
}

func mismatch(id, invoiceID string, typ domain.MismatchType, level domain.RiskLevel, atRisk float64) domain.Mismatch {
	return domain.Mismatch{
		MismatchID:    id,
		Type:          typ,
		InvoiceID:     invoiceID,
		SupplierGSTIN: supplierGSTIN,
		BuyerGSTIN:    buyerGSTIN,
		ReturnPeriod:  "032024",
		AmountAtRisk:  atRisk,
		RiskLevel:     level,
	}
}

func build(t *testing.T, snap *domain.Snapshot) *graph.Graph {
	t.Helper()
	return graph.NewBuilder(zap.NewNop()).Build(snap)
}

func newTestReconciler(t *testing.T, snap *domain.Snapshot) *Reconciler {
	t.Helper()
	return NewReconciler(build(t, snap), DefaultConfig(), zap.NewNop())
}

func date(y int, m time.Month, d int) domain.Date {
	return domain.NewDate(y, m, d)
}
