package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
)

// Payment compliance verdicts for a single invoice.
const (
	ComplianceSafe           = "SAFE"
	ComplianceOverdue        = "OVERDUE"
	CompliancePendingWarning = "PENDING_WARNING"
	CompliancePaidLate       = "PAID_AFTER_180_DAYS"
)

// PaymentExposure is the aging verdict for one invoice with claimable ITC.
type PaymentExposure struct {
	InvoiceID          string      `json:"invoice_id"`
	InvoiceNo          string      `json:"invoice_no"`
	SupplierGSTIN      string      `json:"supplier_gstin"`
	SupplierName       string      `json:"supplier_name"`
	InvoiceDate        domain.Date `json:"invoice_date"`
	ITCValue           float64     `json:"itc_value"`
	Status             string      `json:"status"`
	DaysOld            int         `json:"days_old"`
	DaysLeft           int         `json:"days_left,omitempty"`
	ReversalDue        float64     `json:"reversal_due,omitempty"`
	ReversalPeriodDays int         `json:"reversal_period_days,omitempty"`
	InterestDue        float64     `json:"interest_due,omitempty"`
	TotalLiability     float64     `json:"total_liability,omitempty"`
	ReclaimableITC     float64     `json:"reclaimable_itc,omitempty"`
}

// PaymentComplianceResult is the Rule 37 payment-aging report for one buyer
// across all periods.
type PaymentComplianceResult struct {
	GSTIN               string            `json:"gstin"`
	BuyerName           string            `json:"buyer_name,omitempty"`
	AsOf                domain.Date       `json:"as_of"`
	TotalInvoices       int               `json:"total_invoices"`
	SafeCount           int               `json:"safe_count"`
	OverdueCount        int               `json:"overdue_count"`
	PendingCount        int               `json:"pending_warning_count"`
	PaidLateCount       int               `json:"paid_late_count"`
	TotalReversalDue    float64           `json:"total_reversal_due"`
	TotalInterestDue    float64           `json:"total_interest_due"`
	TotalExposure       float64           `json:"total_exposure"`
	TotalReclaimableITC float64           `json:"total_reclaimable_itc"`
	Overdue             []PaymentExposure `json:"overdue"`
	PendingWarning      []PaymentExposure `json:"pending_warning"`
	PaidLate            []PaymentExposure `json:"paid_late"`
}

// CheckPaymentCompliance ages every purchase invoice of the buyer against the
// 180-day supplier payment window. Zero-ITC invoices count toward
// TotalInvoices but get no verdict; there is nothing to reverse on them.
func (r *Reconciler) CheckPaymentCompliance(gstin string, asOf domain.Date) (*PaymentComplianceResult, error) {
	if !r.g.HasGSTIN(gstin) {
		return nil, fmt.Errorf("payment compliance %s: %w", gstin, graph.ErrGSTINNotFound)
	}

	result := &PaymentComplianceResult{
		GSTIN:          gstin,
		AsOf:           asOf,
		Overdue:        []PaymentExposure{},
		PendingWarning: []PaymentExposure{},
		PaidLate:       []PaymentExposure{},
	}
	if tp, ok := r.g.Taxpayer(gstin); ok {
		result.BuyerName = tp.Name
	}

	for _, inv := range r.g.BuyerInvoices(gstin) {
		result.TotalInvoices++
		itc := inv.ITCValue()
		if itc == 0 {
			continue
		}

		exp := PaymentExposure{
			InvoiceID:     inv.InvoiceID,
			InvoiceNo:     inv.InvoiceNo,
			SupplierGSTIN: inv.SupplierGSTIN,
			SupplierName:  inv.SupplierName,
			InvoiceDate:   inv.InvoiceDate,
			ITCValue:      domain.Round2(itc),
		}

		payment, paid := r.g.PaymentForInvoice(inv.InvoiceID)
		switch {
		case paid && payment.IsOverdue:
			exp.Status = CompliancePaidLate
			exp.DaysOld = payment.DaysFromInvoice
			exp.ReversalPeriodDays = payment.DaysFromInvoice - r.cfg.PaymentWindowDays
			exp.InterestDue = r.interestOn(itc, exp.ReversalPeriodDays)
			exp.ReclaimableITC = domain.Round2(itc)
			result.PaidLateCount++
			result.TotalInterestDue += exp.InterestDue
			result.TotalReclaimableITC += exp.ReclaimableITC
			result.PaidLate = append(result.PaidLate, exp)

		case paid:
			exp.Status = ComplianceSafe
			exp.DaysOld = payment.DaysFromInvoice
			result.SafeCount++

		default:
			daysOld := inv.InvoiceDate.DaysUntil(asOf)
			exp.DaysOld = daysOld
			switch {
			case daysOld > r.cfg.PaymentWindowDays:
				exp.Status = ComplianceOverdue
				exp.ReversalDue = domain.Round2(itc)
				exp.InterestDue = r.interestOn(itc, daysOld)
				exp.TotalLiability = domain.Round2(exp.ReversalDue + exp.InterestDue)
				result.OverdueCount++
				result.TotalReversalDue += exp.ReversalDue
				result.TotalInterestDue += exp.InterestDue
				result.Overdue = append(result.Overdue, exp)

			case daysOld > r.cfg.WarningWindowDays:
				exp.Status = CompliancePendingWarning
				exp.DaysLeft = r.cfg.PaymentWindowDays - daysOld
				result.PendingCount++
				result.PendingWarning = append(result.PendingWarning, exp)

			default:
				exp.Status = ComplianceSafe
				result.SafeCount++
			}
		}
	}

	sort.SliceStable(result.Overdue, func(i, j int) bool {
		return result.Overdue[i].ReversalDue > result.Overdue[j].ReversalDue
	})
	sort.SliceStable(result.PaidLate, func(i, j int) bool {
		return result.PaidLate[i].ReclaimableITC > result.PaidLate[j].ReclaimableITC
	})
	sort.SliceStable(result.PendingWarning, func(i, j int) bool {
		return result.PendingWarning[i].DaysLeft < result.PendingWarning[j].DaysLeft
	})

	result.TotalReversalDue = domain.Round2(result.TotalReversalDue)
	result.TotalInterestDue = domain.Round2(result.TotalInterestDue)
	result.TotalExposure = domain.Round2(result.TotalReversalDue + result.TotalInterestDue)
	result.TotalReclaimableITC = domain.Round2(result.TotalReclaimableITC)

	r.logger.Debug("payment compliance checked",
		zap.String("gstin", gstin),
		zap.Int("invoices", result.TotalInvoices),
		zap.Int("overdue", result.OverdueCount),
		zap.Float64("exposure", result.TotalExposure))

	return result, nil
}
