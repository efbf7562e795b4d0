package domain

// MismatchType classifies a reconciliation discrepancy between the buyer's
// purchase register and the supplier-confirmed GSTR-2B statement.
type MismatchType string

const (
	MismatchAmount          MismatchType = "AMOUNT_MISMATCH"           // GSTR-1 vs 2B value disagreement
	MismatchMissing2B       MismatchType = "INVOICE_MISSING_2B"        // Supplier never filed the invoice
	MismatchExtra2B         MismatchType = "EXTRA_IN_2B"               // Duplicate upload by supplier
	MismatchGSTIN           MismatchType = "GSTIN_MISMATCH"            // Wrong counterparty GSTIN
	MismatchDate            MismatchType = "DATE_MISMATCH"             // Booked and reported in different periods
	MismatchIRN             MismatchType = "IRN_MISMATCH"              // e-invoice hash validation failed
	MismatchEWayBillMissing MismatchType = "EWAYBILL_MISSING"          // Goods moved without an E-Way Bill
	MismatchPaymentOverdue  MismatchType = "PAYMENT_OVERDUE_180_DAYS"  // Section 16(2)(b) violation
)

// RiskLevel is the four-level ordered severity scale used across mismatches,
// chain hops, clusters and predictions.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank returns the ordinal position of the level: CRITICAL(4) > HIGH(3) >
// MEDIUM(2) > LOW(1). Unknown levels rank 0 so they sort last.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// RiskLevelForScore maps a 0-100 composite score onto the risk scale.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ResolutionStatus tracks the investigation state of a mismatch.
type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "PENDING"
	ResolutionInProgress ResolutionStatus = "IN_PROGRESS"
	ResolutionResolved   ResolutionStatus = "RESOLVED"
)

// Mismatch is a detected discrepancy attached to a single invoice.
// Synthetic mismatches (payment aging) are produced at query time and carry
// the interest fields; they are never part of the loaded snapshot.
type Mismatch struct {
	MismatchID       string           `json:"mismatch_id" validate:"required"`
	Type             MismatchType     `json:"mismatch_type" validate:"required"`
	InvoiceID        string           `json:"invoice_id" validate:"required"`
	InvoiceNo        string           `json:"invoice_no"`
	SupplierGSTIN    string           `json:"supplier_gstin" validate:"required,len=15"`
	SupplierName     string           `json:"supplier_name"`
	BuyerGSTIN       string           `json:"buyer_gstin" validate:"required,len=15"`
	ReturnPeriod     string           `json:"return_period" validate:"required,len=6"`
	DetectedDate     Date             `json:"detected_date"`
	GSTR1Value       float64          `json:"gstr1_value"`
	GSTR2BValue      float64          `json:"gstr2b_value"`
	AmountAtRisk     float64          `json:"amount_at_risk" validate:"gte=0"`
	RiskLevel        RiskLevel        `json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	RootCause        string           `json:"root_cause"`
	ResolutionStatus ResolutionStatus `json:"resolution_status"`

	// Set only on synthetic PAYMENT_OVERDUE_180_DAYS mismatches.
	InterestLiability float64 `json:"interest_liability,omitempty"`
	DaysOverdue       int     `json:"days_overdue,omitempty"`
}
