package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

// Config carries the operational compliance parameters. The statutory
// defaults follow Section 16(2)(b) read with Rule 37 of the CGST Rules.
type Config struct {
	PaymentWindowDays  int     // ITC reversal trigger, default 180
	WarningWindowDays  int     // early-warning threshold, default 150
	AnnualInterestRate float64 // Section 50 interest, default 0.18
	DefaultMaxHops     int     // chain validation depth, default 3
}

// DefaultConfig returns the statutory defaults.
func DefaultConfig() Config {
	return Config{
		PaymentWindowDays:  180,
		WarningWindowDays:  150,
		AnnualInterestRate: 0.18,
		DefaultMaxHops:     3,
	}
}

// Reconciliation row statuses beyond the mismatch types themselves.
const (
	StatusMatched   = "MATCHED"
	StatusMissing2B = "MISSING_IN_2B"

	ReconcileOK         = "RECONCILED"
	ReconcileNoInvoices = "NO_INVOICES"

	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusPaidLate = "PAID_AFTER_180_DAYS"
)

// InvoiceReconciliation is the reconciliation verdict for one purchase
// invoice.
type InvoiceReconciliation struct {
	InvoiceID     string            `json:"invoice_id"`
	InvoiceNo     string            `json:"invoice_no"`
	SupplierGSTIN string            `json:"supplier_gstin"`
	SupplierName  string            `json:"supplier_name"`
	InvoiceDate   domain.Date       `json:"invoice_date"`
	ITCValue      float64           `json:"itc_value"`
	Status        string            `json:"status"`
	RiskLevel     domain.RiskLevel  `json:"risk_level"`
	ITCAtRisk     float64           `json:"itc_at_risk"`
	PaymentStatus string            `json:"payment_status"`
	PaymentDays   int               `json:"payment_days,omitempty"`
	ReversalDue   bool              `json:"reversal_due"`
	Mismatches    []domain.Mismatch `json:"mismatches,omitempty"`
}

// ReconcileResult is the GSTR-2B reconciliation of one buyer for one return
// period.
type ReconcileResult struct {
	GSTIN                  string                  `json:"gstin"`
	BuyerName              string                  `json:"buyer_name,omitempty"`
	Period                 string                  `json:"period"`
	AsOf                   domain.Date             `json:"as_of"`
	Status                 string                  `json:"status"`
	TotalInvoices          int                     `json:"total_invoices"`
	MatchedCount           int                     `json:"matched_count"`
	MismatchedCount        int                     `json:"mismatched_count"`
	MatchRate              float64                 `json:"match_rate"`
	TotalITC               float64                 `json:"total_itc"`
	TotalITCAtRisk         float64                 `json:"total_itc_at_risk"`
	TotalInterestLiability float64                 `json:"total_interest_liability"`
	Invoices               []InvoiceReconciliation `json:"invoices"`
}

// Reconciler answers GSTR-2B reconciliation and payment compliance queries
// against one immutable graph build.
type Reconciler struct {
	g      *graph.Graph
	cfg    Config
	logger *zap.Logger
}

// NewReconciler binds a reconciler to a graph build.
func NewReconciler(g *graph.Graph, cfg Config, logger *zap.Logger) *Reconciler {
	return &Reconciler{g: g, cfg: cfg, logger: logger}
}

// interestOn computes Section 50 interest on an ITC amount held for the given
// number of days.
func (r *Reconciler) interestOn(itc float64, days int) float64 {
	return domain.Round2(itc * r.cfg.AnnualInterestRate * float64(days) / 365)
}

// syntheticOverdueMismatch builds the payment-aging violation for an unpaid
// invoice past the payment window. It exists only in the result of this
// query; nothing is written back to the graph.
func (r *Reconciler) syntheticOverdueMismatch(inv *domain.Invoice, daysOld int, asOf domain.Date) domain.Mismatch {
	itc := inv.ITCValue()
	return domain.Mismatch{
		MismatchID:        fmt.Sprintf("SYN-PAY-%s", inv.InvoiceID),
		Type:              domain.MismatchPaymentOverdue,
		InvoiceID:         inv.InvoiceID,
		InvoiceNo:         inv.InvoiceNo,
		SupplierGSTIN:     inv.SupplierGSTIN,
		SupplierName:      inv.SupplierName,
		BuyerGSTIN:        inv.BuyerGSTIN,
		ReturnPeriod:      inv.ReturnPeriod,
		DetectedDate:      asOf,
		AmountAtRisk:      itc,
		RiskLevel:         domain.RiskCritical,
		RootCause:         fmt.Sprintf("supplier unpaid for %d days, ITC reversal due under Rule 37", daysOld),
		ResolutionStatus:  domain.ResolutionPending,
		InterestLiability: r.interestOn(itc, daysOld),
		DaysOverdue:       daysOld - r.cfg.PaymentWindowDays,
	}
}

// ReconcilePeriod reconciles every purchase invoice of a buyer in one return
// period against its recorded mismatches and payment aging.
func (r *Reconciler) ReconcilePeriod(gstin, period string, asOf domain.Date) (*ReconcileResult, error) {
	if !r.g.HasGSTIN(gstin) {
		return nil, fmt.Errorf("reconcile %s: %w", gstin, graph.ErrGSTINNotFound)
	}

	result := &ReconcileResult{
		GSTIN:  gstin,
		Period: period,
		AsOf:   asOf,
		Status: ReconcileOK,
	}
	if tp, ok := r.g.Taxpayer(gstin); ok {
		result.BuyerName = tp.Name
	}

	invoices := r.g.InvoicesForBuyer(gstin, period)
	if len(invoices) == 0 {
		result.Status = ReconcileNoInvoices
		result.Invoices = []InvoiceReconciliation{}
		return result, nil
	}

	for _, inv := range invoices {
		row := r.reconcileInvoice(inv, asOf)
		result.TotalInvoices++
		result.TotalITC += inv.ITCValue()
		result.TotalITCAtRisk += row.ITCAtRisk
		if row.Status == StatusMatched {
			result.MatchedCount++
		} else {
			result.MismatchedCount++
		}
		for _, m := range row.Mismatches {
			result.TotalInterestLiability += m.InterestLiability
		}
		result.Invoices = append(result.Invoices, row)
	}

	result.MatchRate = domain.Round1(float64(result.MatchedCount) / float64(result.TotalInvoices) * 100)
	result.TotalITC = domain.Round2(result.TotalITC)
	result.TotalITCAtRisk = domain.Round2(result.TotalITCAtRisk)
	result.TotalInterestLiability = domain.Round2(result.TotalInterestLiability)

	sort.SliceStable(result.Invoices, func(i, j int) bool {
		return result.Invoices[i].RiskLevel.Rank() > result.Invoices[j].RiskLevel.Rank()
	})

	r.logger.Debug("period reconciled",
		zap.String("gstin", gstin),
		zap.String("period", period),
		zap.Int("invoices", result.TotalInvoices),
		zap.Float64("match_rate", result.MatchRate))

	return result, nil
}

func (r *Reconciler) reconcileInvoice(inv *domain.Invoice, asOf domain.Date) InvoiceReconciliation {
	itc := inv.ITCValue()
	row := InvoiceReconciliation{
		InvoiceID:     inv.InvoiceID,
		InvoiceNo:     inv.InvoiceNo,
		SupplierGSTIN: inv.SupplierGSTIN,
		SupplierName:  inv.SupplierName,
		InvoiceDate:   inv.InvoiceDate,
		ITCValue:      domain.Round2(itc),
		PaymentStatus: PaymentStatusUnpaid,
	}

	mismatches := append([]domain.Mismatch(nil), valuesOf(r.g.MismatchesForInvoice(inv.InvoiceID))...)

	if payment, ok := r.g.PaymentForInvoice(inv.InvoiceID); ok {
		row.PaymentDays = payment.DaysFromInvoice
		if payment.IsOverdue {
			row.PaymentStatus = PaymentStatusPaidLate
		} else {
			row.PaymentStatus = PaymentStatusPaid
		}
	} else {
		daysOld := inv.InvoiceDate.DaysUntil(asOf)
		row.PaymentDays = daysOld
		if daysOld > r.cfg.PaymentWindowDays && !hasType(mismatches, domain.MismatchPaymentOverdue) {
			mismatches = append(mismatches, r.syntheticOverdueMismatch(inv, daysOld, asOf))
			row.ReversalDue = true
		}
	}

	switch {
	case len(mismatches) == 0:
		row.Status = StatusMatched
		row.RiskLevel = domain.RiskLow
	case hasType(mismatches, domain.MismatchMissing2B):
		row.Status = StatusMissing2B
		row.RiskLevel = domain.RiskHigh
		row.ITCAtRisk = domain.Round2(itc)
	default:
		worst := mismatches[0]
		total := 0.0
		for _, m := range mismatches {
			total += m.AmountAtRisk
			if m.RiskLevel.Rank() > worst.RiskLevel.Rank() {
				worst = m
			}
		}
		row.Status = string(worst.Type)
		row.RiskLevel = worst.RiskLevel
		row.ITCAtRisk = domain.Round2(total)
	}
	row.Mismatches = mismatches
	return row
}

func hasType(ms []domain.Mismatch, t domain.MismatchType) bool {
	for _, m := range ms {
		if m.Type == t {
			return true
		}
	}
	return false
}

func valuesOf(ms []*domain.Mismatch) []domain.Mismatch {
	out := make([]domain.Mismatch, 0, len(ms))
	for _, m := range ms {
		out = append(out, *m)
	}
	return out
}
