package domain

// SupplyType distinguishes inter-state supplies (IGST) from intra-state
// supplies (CGST+SGST split equally).
type SupplyType string

const (
	SupplyInterState SupplyType = "INTER_STATE"
	SupplyIntraState SupplyType = "INTRA_STATE"
)

// IRNStatus is the e-invoice registration state on the Invoice Registration
// Portal.
type IRNStatus string

const (
	IRNActive    IRNStatus = "ACTIVE"
	IRNCancelled IRNStatus = "CANCELLED"
)

// Invoice is a B2B taxable supply between two taxpayers in a return period.
// Exactly one of the tax splits is populated: IGST for inter-state, CGST+SGST
// for intra-state.
type Invoice struct {
	InvoiceID     string     `json:"invoice_id" validate:"required"`
	InvoiceNo     string     `json:"invoice_no" validate:"required"`
	InvoiceDate   Date       `json:"invoice_date" validate:"required"`
	InvoiceType   string     `json:"invoice_type"`
	SupplyType    SupplyType `json:"supply_type" validate:"required,oneof=INTER_STATE INTRA_STATE"`
	ReturnPeriod  string     `json:"return_period" validate:"required,len=6"`
	SupplierID    string     `json:"supplier_id"`
	SupplierGSTIN string     `json:"supplier_gstin" validate:"required,len=15"`
	SupplierName  string     `json:"supplier_name"`
	BuyerID       string     `json:"buyer_id"`
	BuyerGSTIN    string     `json:"buyer_gstin" validate:"required,len=15"`
	BuyerName     string     `json:"buyer_name"`
	TaxableValue  float64    `json:"taxable_value" validate:"gte=0"`
	GSTRate       float64    `json:"gst_rate" validate:"gte=0,lte=28"`
	CGST          float64    `json:"cgst" validate:"gte=0"`
	SGST          float64    `json:"sgst" validate:"gte=0"`
	IGST          float64    `json:"igst" validate:"gte=0"`
	Cess          float64    `json:"cess" validate:"gte=0"`
	TotalValue    float64    `json:"total_value" validate:"gte=0"`
	PlaceOfSupply string     `json:"place_of_supply"`
	IRN           string     `json:"irn,omitempty"`
	IRNStatus     IRNStatus  `json:"irn_status,omitempty"`
	EWBNo         string     `json:"ewb_no,omitempty"`
}

// ITCValue is the input tax credit claimable on this invoice.
func (inv *Invoice) ITCValue() float64 {
	return inv.IGST + inv.CGST + inv.SGST
}

// HasActiveIRN reports whether the invoice carries a valid e-invoice
// reference.
func (inv *Invoice) HasActiveIRN() bool {
	return inv.IRN != "" && inv.IRNStatus == IRNActive
}

// PaymentMode is the settlement channel of a supplier payment.
type PaymentMode string

const (
	PaymentNEFT   PaymentMode = "NEFT"
	PaymentRTGS   PaymentMode = "RTGS"
	PaymentCheque PaymentMode = "CHEQUE"
	PaymentUPI    PaymentMode = "UPI"
	PaymentIMPS   PaymentMode = "IMPS"
)

// Payment records a buyer-to-supplier settlement of an invoice. An invoice
// has at most one Payment; the absence of a Payment past the 180-day window
// is itself a compliance violation (Section 16(2)(b) CGST Act).
type Payment struct {
	PaymentID       string      `json:"payment_id" validate:"required"`
	InvoiceID       string      `json:"invoice_id" validate:"required"`
	InvoiceNo       string      `json:"invoice_no"`
	BuyerGSTIN      string      `json:"buyer_gstin" validate:"required,len=15"`
	SupplierGSTIN   string      `json:"supplier_gstin" validate:"required,len=15"`
	InvoiceDate     Date        `json:"invoice_date"`
	PaymentDate     Date        `json:"payment_date" validate:"required"`
	AmountPaid      float64     `json:"amount_paid" validate:"gte=0"`
	BasePaid        float64     `json:"base_paid" validate:"gte=0"`
	GSTPaid         float64     `json:"gst_paid" validate:"gte=0"`
	Mode            PaymentMode `json:"payment_mode"`
	BankRef         string      `json:"bank_ref"`
	DaysFromInvoice int         `json:"days_from_invoice" validate:"gte=0"`
	IsOverdue       bool        `json:"is_overdue"`
}
