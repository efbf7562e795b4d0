package domain

// TaxpayerCategory represents the GST registration category
type TaxpayerCategory string

const (
	CategoryRegular     TaxpayerCategory = "Regular"
	CategoryComposition TaxpayerCategory = "Composition"
	CategorySEZ         TaxpayerCategory = "SEZ"
)

// TaxpayerStatus represents the registration status on the GSTN portal
type TaxpayerStatus string

const (
	StatusActive    TaxpayerStatus = "Active"
	StatusSuspended TaxpayerStatus = "Suspended"
	StatusCancelled TaxpayerStatus = "Cancelled"
)

// Taxpayer is a GST-registered entity. Each taxpayer carries exactly one
// GSTIN; the state code embedded in the GSTIN prefix must match StateCode.
type Taxpayer struct {
	TaxpayerID       string           `json:"taxpayer_id" validate:"required"`
	Name             string           `json:"name" validate:"required"`
	PAN              string           `json:"pan" validate:"required,len=10"`
	GSTIN            string           `json:"gstin" validate:"required,len=15"`
	StateCode        string           `json:"state_code" validate:"required,len=2"`
	State            string           `json:"state"`
	RegistrationDate Date             `json:"registration_date"`
	Category         TaxpayerCategory `json:"category" validate:"required"`
	Sector           string           `json:"sector"`
	FilingFrequency  string           `json:"filing_frequency"`
	AnnualTurnover   float64          `json:"annual_turnover" validate:"gte=0"`
	ComplianceScore  float64          `json:"compliance_score" validate:"gte=0,lte=100"`
	FilingStreak     int              `json:"filing_streak" validate:"gte=0"`
	Status           TaxpayerStatus   `json:"status"`
}

// VendorRiskProfile is the composite risk view of a taxpayer acting as a
// supplier, derived from its compliance score, mismatch history and filing
// streak. The breakdown fields are kept so auditors can reconstruct the
// composite by hand.
type VendorRiskProfile struct {
	VendorID           string         `json:"vendor_id"`
	GSTIN              string         `json:"gstin"`
	Name               string         `json:"name"`
	State              string         `json:"state"`
	Sector             string         `json:"sector"`
	FilingStreak       int            `json:"filing_streak"`
	ComplianceScore    float64        `json:"compliance_score"`
	BaseRisk           float64        `json:"base_risk"`
	MismatchPenalty    float64        `json:"mismatch_penalty"`
	CriticalPenalty    float64        `json:"critical_penalty"`
	FilingBonus        float64        `json:"filing_bonus"`
	CompositeRiskScore float64        `json:"composite_risk_score"`
	RiskCategory       RiskLevel      `json:"risk_category"`
	MismatchCount      int            `json:"mismatch_count"`
	TotalITCAtRisk     float64        `json:"total_itc_at_risk"`
	MismatchBreakdown  map[string]int `json:"mismatch_breakdown,omitempty"`
}
