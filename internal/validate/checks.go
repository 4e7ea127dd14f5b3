package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// budgetCheck passes when the contact's income exceeds expenses.
type budgetCheck struct{}

func (budgetCheck) ID() string { return "budget" }

func (budgetCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	c := in.Contact
	if c.Income == nil || c.Expenses == nil {
		return CheckResult{
			CheckID: "budget",
			Status:  StatusError,
			Message: "budget data not provided",
		}
	}

	surplus := *c.Income - *c.Expenses
	evidence := map[string]string{
		"income":   fmt.Sprintf("%.2f", *c.Income),
		"expenses": fmt.Sprintf("%.2f", *c.Expenses),
		"surplus":  fmt.Sprintf("%.2f", surplus),
	}
	if surplus > 0 {
		return CheckResult{
			CheckID:  "budget",
			Status:   StatusPass,
			Message:  fmt.Sprintf("positive surplus of $%.2f (income $%.2f, expenses $%.2f)", surplus, *c.Income, *c.Expenses),
			Evidence: evidence,
		}
	}
	return CheckResult{
		CheckID:  "budget",
		Status:   StatusFail,
		Message:  fmt.Sprintf("negative surplus of $%.2f (income $%.2f, expenses $%.2f)", surplus, *c.Income, *c.Expenses),
		Evidence: evidence,
	}
}

// ipAddressCheck requires the contract's sender and signer IPs to be
// present and distinct.
type ipAddressCheck struct{}

func (ipAddressCheck) ID() string { return "contract.ip_addresses" }

func (ipAddressCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	sender := in.Contract.Value("sender_ip")
	signer := in.Contract.Value("signer_ip")

	if sender == "" || signer == "" {
		return CheckResult{
			CheckID: "contract.ip_addresses",
			Status:  StatusError,
			Message: "sender or signer IP address not available in contract data",
		}
	}
	evidence := map[string]string{"sender_ip": sender, "signer_ip": signer}
	if sender == signer {
		return CheckResult{
			CheckID:  "contract.ip_addresses",
			Status:   StatusFail,
			Message:  fmt.Sprintf("sender and signer share the same IP address (%s)", sender),
			Evidence: evidence,
		}
	}
	return CheckResult{
		CheckID:  "contract.ip_addresses",
		Status:   StatusPass,
		Message:  fmt.Sprintf("sender IP (%s) differs from signer IP (%s)", sender, signer),
		Evidence: evidence,
	}
}

// mailingAddressCheck compares the contract's mailing address against the
// contact record field by field.
type mailingAddressCheck struct{}

func (mailingAddressCheck) ID() string { return "contract.mailing_address" }

func (mailingAddressCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	pairs := [][3]string{
		{"street", in.Contact.Address.Street, in.Contract.Value("mailing_address.street")},
		{"city", in.Contact.Address.City, in.Contract.Value("mailing_address.city")},
		{"state", in.Contact.Address.State, in.Contract.Value("mailing_address.state")},
		{"zip_code", in.Contact.Address.ZipCode, in.Contract.Value("mailing_address.zip_code")},
	}

	var anyContract bool
	var mismatched []string
	for _, p := range pairs {
		if p[2] != "" {
			anyContract = true
		}
		if normalize(p[1]) != normalize(p[2]) {
			mismatched = append(mismatched, p[0])
		}
	}

	if !anyContract {
		return CheckResult{
			CheckID: "contract.mailing_address",
			Status:  StatusError,
			Message: "no mailing address extracted from contract",
		}
	}
	if len(mismatched) > 0 {
		return CheckResult{
			CheckID:  "contract.mailing_address",
			Status:   StatusFail,
			Message:  "mailing address mismatch between contact record and contract: " + strings.Join(mismatched, ", "),
			Evidence: map[string]string{"mismatched_fields": strings.Join(mismatched, ",")},
		}
	}
	return CheckResult{
		CheckID: "contract.mailing_address",
		Status:  StatusPass,
		Message: "mailing address matches between contact record and contract",
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// signatureCheck enforces signature presence and format. Dots and dashes
// indicate initials or placeholder marks instead of a real signature.
type signatureCheck struct{}

func (signatureCheck) ID() string { return "contract.signatures" }

func (signatureCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	applicant := in.Contract.Value("signatures.applicant")
	coApplicant := in.Contract.Value("signatures.co_applicant")

	var issues []string
	if applicant == "" {
		issues = append(issues, "missing applicant signature")
	} else if strings.ContainsAny(applicant, ".-") {
		issues = append(issues, "applicant signature contains dots or dashes")
	}
	if coApplicant != "" && strings.ContainsAny(coApplicant, ".-") {
		issues = append(issues, "co-applicant signature contains dots or dashes")
	}

	if len(issues) > 0 {
		return CheckResult{
			CheckID: "contract.signatures",
			Status:  StatusFail,
			Message: strings.Join(issues, "; "),
		}
	}
	return CheckResult{
		CheckID: "contract.signatures",
		Status:  StatusPass,
		Message: "signatures meet format requirements",
	}
}

// bankDetailCheck compares account and routing numbers between the
// contact record and the contract.
type bankDetailCheck struct{}

func (bankDetailCheck) ID() string { return "contract.bank_details" }

func (bankDetailCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	contractAccount := strings.TrimSpace(in.Contract.Value("bank_details.account_number"))
	contractRouting := strings.TrimSpace(in.Contract.Value("bank_details.routing_number"))
	recordAccount := strings.TrimSpace(in.Contact.BankDetails.AccountNumber)
	recordRouting := strings.TrimSpace(in.Contact.BankDetails.RoutingNumber)

	if contractAccount == "" && contractRouting == "" {
		return CheckResult{
			CheckID: "contract.bank_details",
			Status:  StatusError,
			Message: "no bank details extracted from contract",
		}
	}
	if recordAccount == "" && recordRouting == "" {
		return CheckResult{
			CheckID: "contract.bank_details",
			Status:  StatusError,
			Message: "no bank details on contact record",
		}
	}
	if contractAccount == recordAccount && contractRouting == recordRouting {
		return CheckResult{
			CheckID: "contract.bank_details",
			Status:  StatusPass,
			Message: "bank details match between contact record and contract",
		}
	}
	return CheckResult{
		CheckID: "contract.bank_details",
		Status:  StatusFail,
		Message: "bank details mismatch between contact record and contract",
	}
}

// ssnConsistencyCheck compares the last four SSN digits across the
// payment gateway, agreement, legal plan and credit report sources. At
// least three sources must be present and agree.
type ssnConsistencyCheck struct{}

func (ssnConsistencyCheck) ID() string { return "contract.ssn_consistency" }

const minSSNSources = 3

func (ssnConsistencyCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	sources := map[string]string{
		"gateway":       ssnLast4(in.Contract.Value("gateway.ssn_last4")),
		"agreement":     ssnLast4(in.Contract.Value("agreement.ssn")),
		"legal_plan":    ssnLast4(in.Contract.Value("legal_plan.ssn")),
		"credit_report": ssnLast4(in.Contact.CreditReport.SSN),
	}

	available := make(map[string]string)
	for name, last4 := range sources {
		if last4 != "" {
			available[name] = last4
		}
	}

	unique := make(map[string][]string)
	for name, last4 := range available {
		unique[last4] = append(unique[last4], name)
	}

	// A genuine mismatch is a Fail even when fewer than the required
	// number of sources are present.
	if len(unique) > 1 {
		var parts []string
		for last4, names := range unique {
			sort.Strings(names)
			parts = append(parts, fmt.Sprintf("%s=%s", strings.Join(names, "+"), last4))
		}
		sort.Strings(parts)
		return CheckResult{
			CheckID:  "contract.ssn_consistency",
			Status:   StatusFail,
			Message:  "SSN mismatch across sources: " + strings.Join(parts, ", "),
			Evidence: map[string]string{"sources": fmt.Sprintf("%d", len(available))},
		}
	}
	if len(available) < minSSNSources {
		return CheckResult{
			CheckID: "contract.ssn_consistency",
			Status:  StatusError,
			Message: fmt.Sprintf("insufficient SSN sources for comparison (%d of 4 available, need %d)", len(available), minSSNSources),
		}
	}
	return CheckResult{
		CheckID: "contract.ssn_consistency",
		Status:  StatusPass,
		Message: fmt.Sprintf("SSN consistent across %d sources", len(available)),
	}
}

func ssnLast4(ssn string) string {
	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(ssn))
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// dobConsistencyCheck compares dates of birth across sources and
// enforces the minimum age.
type dobConsistencyCheck struct {
	ref *RefData
}

func (dobConsistencyCheck) ID() string { return "contract.dob_consistency" }

func (c dobConsistencyCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	candidates := map[string]string{
		"contact":       in.Contact.DateOfBirth,
		"contract":      in.Contract.Value("agreement.date_of_birth"),
		"credit_report": in.Contact.CreditReport.DateOfBirth,
	}

	parsed := make(map[string]string)
	for name, raw := range candidates {
		if raw == "" {
			continue
		}
		if t, ok := parseDate(raw); ok {
			parsed[name] = t.Format("2006-01-02")
		}
	}

	if len(parsed) < 2 {
		return CheckResult{
			CheckID: "contract.dob_consistency",
			Status:  StatusError,
			Message: fmt.Sprintf("insufficient DOB sources for comparison (%d of 3 available)", len(parsed)),
		}
	}

	unique := make(map[string]bool)
	for _, d := range parsed {
		unique[d] = true
	}
	if len(unique) > 1 {
		return CheckResult{
			CheckID: "contract.dob_consistency",
			Status:  StatusFail,
			Message: "DOB mismatch across sources",
		}
	}

	var dobStr string
	for d := range unique {
		dobStr = d
	}
	dob, _ := parseDate(dobStr)
	age := int(in.Now.Sub(dob).Hours()/24) / 365

	if age < c.ref.MinimumAge {
		return CheckResult{
			CheckID:  "contract.dob_consistency",
			Status:   StatusFail,
			Message:  fmt.Sprintf("client age %d below minimum requirement of %d", age, c.ref.MinimumAge),
			Evidence: map[string]string{"age": fmt.Sprintf("%d", age)},
		}
	}
	return CheckResult{
		CheckID:  "contract.dob_consistency",
		Status:   StatusPass,
		Message:  fmt.Sprintf("DOB consistent across %d sources, client age %d meets minimum requirement", len(parsed), age),
		Evidence: map[string]string{"age": fmt.Sprintf("%d", age)},
	}
}

// legalPlanCheck only applies when the contract carries a voluntary
// legal plan section.
type legalPlanCheck struct{}

func (legalPlanCheck) ID() string { return "contract.legal_plan" }

func (legalPlanCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	if in.Contract.Value("vlp_section.present") != "true" {
		return CheckResult{
			CheckID: "contract.legal_plan",
			Status:  StatusSkipped,
			Message: "no voluntary legal plan section in contract",
		}
	}
	if in.Contract.Value("vlp_section.signed") != "true" {
		return CheckResult{
			CheckID: "contract.legal_plan",
			Status:  StatusFail,
			Message: "voluntary legal plan section present but not signed",
		}
	}
	return CheckResult{
		CheckID: "contract.legal_plan",
		Status:  StatusPass,
		Message: "voluntary legal plan section present and signed",
	}
}

// addressAssignmentCheck verifies the contact's state maps to the
// servicing company they were assigned to.
type addressAssignmentCheck struct {
	ref *RefData
}

func (addressAssignmentCheck) ID() string { return "address" }

func (c addressAssignmentCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	state := strings.ToUpper(strings.TrimSpace(in.Contact.Address.State))
	if state == "" {
		return CheckResult{
			CheckID: "address",
			Status:  StatusError,
			Message: "no state information on contact record",
		}
	}

	expected, ok := c.ref.CompanyForState(state)
	if !ok {
		return CheckResult{
			CheckID: "address",
			Status:  StatusError,
			Message: fmt.Sprintf("state %q not found in reference table", state),
		}
	}
	if in.Contact.AssignedCompany == expected {
		return CheckResult{
			CheckID: "address",
			Status:  StatusPass,
			Message: fmt.Sprintf("state %q correctly assigned to %q", state, expected),
		}
	}
	return CheckResult{
		CheckID: "address",
		Status:  StatusFail,
		Message: fmt.Sprintf("state %q should be assigned to %q, but assigned to %q", state, expected, in.Contact.AssignedCompany),
	}
}

// minimumPaymentCheck enforces the monthly payment floor.
type minimumPaymentCheck struct {
	ref *RefData
}

func (minimumPaymentCheck) ID() string { return "draft.minimum_payment" }

func (c minimumPaymentCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	if in.Contact.MonthlyPayment == nil {
		return CheckResult{
			CheckID: "draft.minimum_payment",
			Status:  StatusError,
			Message: "monthly payment amount not provided",
		}
	}
	payment := *in.Contact.MonthlyPayment
	if payment >= c.ref.MinimumPayment {
		return CheckResult{
			CheckID: "draft.minimum_payment",
			Status:  StatusPass,
			Message: fmt.Sprintf("payment amount $%.2f meets minimum requirement of $%.2f", payment, c.ref.MinimumPayment),
		}
	}
	return CheckResult{
		CheckID: "draft.minimum_payment",
		Status:  StatusFail,
		Message: fmt.Sprintf("payment amount $%.2f below minimum requirement of $%.2f", payment, c.ref.MinimumPayment),
	}
}

// draftTimingCheck verifies the first draft lands within the allowed
// window after enrollment, honoring per-affiliate overrides.
type draftTimingCheck struct {
	ref *RefData
}

func (draftTimingCheck) ID() string { return "draft.timing" }

func (c draftTimingCheck) Evaluate(_ context.Context, in *Input) CheckResult {
	if in.Contact.EnrollmentDate == "" || in.Contact.FirstDraftDate == "" {
		return CheckResult{
			CheckID: "draft.timing",
			Status:  StatusError,
			Message: "missing enrollment date or first draft date",
		}
	}
	enrollment, okE := parseDate(in.Contact.EnrollmentDate)
	firstDraft, okF := parseDate(in.Contact.FirstDraftDate)
	if !okE || !okF {
		return CheckResult{
			CheckID: "draft.timing",
			Status:  StatusError,
			Message: "unparseable enrollment or first draft date",
		}
	}

	days := int(firstDraft.Sub(enrollment).Hours() / 24)
	window := c.ref.DraftWindowFor(in.Contact.Affiliate)
	affiliate := in.Contact.Affiliate
	if affiliate == "" {
		affiliate = "standard"
	}

	evidence := map[string]string{
		"days":     fmt.Sprintf("%d", days),
		"min_days": fmt.Sprintf("%d", window.MinDays),
		"max_days": fmt.Sprintf("%d", window.MaxDays),
	}
	if days >= window.MinDays && days <= window.MaxDays {
		return CheckResult{
			CheckID:  "draft.timing",
			Status:   StatusPass,
			Message:  fmt.Sprintf("first draft is %d days after enrollment (within %d-%d day range for %s)", days, window.MinDays, window.MaxDays, affiliate),
			Evidence: evidence,
		}
	}
	return CheckResult{
		CheckID:  "draft.timing",
		Status:   StatusFail,
		Message:  fmt.Sprintf("first draft is %d days after enrollment (outside %d-%d day range for %s)", days, window.MinDays, window.MaxDays, affiliate),
		Evidence: evidence,
	}
}
