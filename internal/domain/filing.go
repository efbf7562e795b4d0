package domain

// ReturnStatus is the filing state of a GST return for a period.
type ReturnStatus string

const (
	ReturnFiled   ReturnStatus = "FILED"
	ReturnLate    ReturnStatus = "LATE"
	ReturnPending ReturnStatus = "PENDING"
)

// Return is a periodic GST filing (GSTR-1 sales statement) by a taxpayer.
type Return struct {
	ReturnID       string       `json:"return_id" validate:"required"`
	GSTIN          string       `json:"gstin" validate:"required,len=15"`
	ReturnPeriod   string       `json:"return_period" validate:"required,len=6"`
	ReturnType     string       `json:"return_type"`
	FiledDate      *Date        `json:"filed_date,omitempty"`
	Status         ReturnStatus `json:"status"`
	TotalITC       float64      `json:"total_itc" validate:"gte=0"`
	TotalLiability float64      `json:"total_liability" validate:"gte=0"`
	InvoiceCount   int          `json:"invoice_count" validate:"gte=0"`
}

// Filed reports whether the return was actually submitted.
func (r *Return) Filed() bool {
	return r.FiledDate != nil && !r.FiledDate.IsZero()
}
