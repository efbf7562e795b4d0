package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Snapshot is one full load of the five entity collections. The graph is
// always built from a complete snapshot; there is no incremental update path.
type Snapshot struct {
	Taxpayers  []Taxpayer `json:"taxpayers"`
	Invoices   []Invoice  `json:"invoices"`
	Mismatches []Mismatch `json:"mismatches"`
	Returns    []Return   `json:"returns"`
	Payments   []Payment  `json:"payments"`
	LoadedAt   time.Time  `json:"loaded_at"`
}

// ValidationIssue describes a single record that failed ingestion validation.
type ValidationIssue struct {
	Collection string `json:"collection"`
	RecordID   string `json:"record_id"`
	Detail     string `json:"detail"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s/%s: %s", i.Collection, i.RecordID, i.Detail)
}

// Validate runs struct validation over every record and returns the issues
// found. Invalid records are reported, not dropped; the caller decides
// whether partial data is acceptable.
func (s *Snapshot) Validate() []ValidationIssue {
	var issues []ValidationIssue

	check := func(collection, id string, record any) {
		if err := validate.Struct(record); err != nil {
			issues = append(issues, ValidationIssue{
				Collection: collection,
				RecordID:   id,
				Detail:     err.Error(),
			})
		}
	}

	for i := range s.Taxpayers {
		check("taxpayers", s.Taxpayers[i].TaxpayerID, &s.Taxpayers[i])
	}
	for i := range s.Invoices {
		inv := &s.Invoices[i]
		check("invoices", inv.InvoiceID, inv)
		// The tax split is mutually exclusive by supply type; the struct
		// tags cannot express a cross-field rule like this.
		if inv.IGST > 0 && (inv.CGST > 0 || inv.SGST > 0) {
			issues = append(issues, ValidationIssue{
				Collection: "invoices",
				RecordID:   inv.InvoiceID,
				Detail:     "both IGST and CGST/SGST populated",
			})
		}
	}
	for i := range s.Mismatches {
		check("mismatches", s.Mismatches[i].MismatchID, &s.Mismatches[i])
	}
	for i := range s.Returns {
		check("returns", s.Returns[i].ReturnID, &s.Returns[i])
	}
	for i := range s.Payments {
		check("payments", s.Payments[i].PaymentID, &s.Payments[i])
	}

	return issues
}

// Counts returns per-collection record counts for logging.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"taxpayers":  len(s.Taxpayers),
		"invoices":   len(s.Invoices),
		"mismatches": len(s.Mismatches),
		"returns":    len(s.Returns),
		"payments":   len(s.Payments),
	}
}
