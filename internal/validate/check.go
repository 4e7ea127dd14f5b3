package validate

import (
	"context"
	"time"

	"github.com/kalambet/underwrite/internal/contract"
)

// Address is a postal address as stored on the contact record.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// BankAccount holds the contact's bank details on file.
type BankAccount struct {
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BankName      string `json:"bank_name,omitempty"`
}

// CreditReport holds the identity fields pulled from the credit bureau.
type CreditReport struct {
	SSN         string `json:"ssn,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// ContactRecord is the CRM-side view of the contact being underwritten.
// Optional numeric fields are pointers so "not provided" is
// distinguishable from zero.
type ContactRecord struct {
	ID                  string       `json:"id"`
	HardshipDescription string       `json:"hardship_description,omitempty"`
	Income              *float64     `json:"income,omitempty"`
	Expenses            *float64     `json:"expenses,omitempty"`
	Address             Address      `json:"address"`
	BankDetails         BankAccount  `json:"bank_details"`
	CreditReport        CreditReport `json:"credit_report"`
	DateOfBirth         string       `json:"date_of_birth,omitempty"`
	AssignedCompany     string       `json:"assigned_company,omitempty"`
	Affiliate           string       `json:"affiliate,omitempty"`
	MonthlyPayment      *float64     `json:"monthly_payment,omitempty"`
	EnrollmentDate      string       `json:"enrollment_date,omitempty"`
	FirstDraftDate      string       `json:"first_draft_date,omitempty"`
}

// Input is everything a check may consult. Checks treat it as read-only.
type Input struct {
	Contact  *ContactRecord
	Contract *contract.Data
	Now      time.Time
}

// Check is a single business rule. Evaluate must be side-effect-free on
// the input and should honor ctx cancellation when it does I/O.
type Check interface {
	ID() string
	Evaluate(ctx context.Context, in *Input) CheckResult
}

// parseDate accepts the date layouts seen in contact records and
// contracts.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
