// Package contract turns extracted document text into structured
// contract data. Deterministic regex extraction runs first, an AI pass
// fills the rest, and every field carries its provenance so downstream
// checks can weigh trust.
package contract

import "sort"

// Source identifies how a field value was obtained.
type Source string

const (
	// SourceDeterministic marks values found by pattern matching on the
	// document text. Highest trust.
	SourceDeterministic Source = "deterministic"
	// SourceAI marks values produced by a model.
	SourceAI Source = "ai"
	// SourceFallback marks placeholder values filled in when no other
	// source produced the field.
	SourceFallback Source = "fallback"
)

func (s Source) rank() int {
	switch s {
	case SourceDeterministic:
		return 3
	case SourceAI:
		return 2
	case SourceFallback:
		return 1
	default:
		return 0
	}
}

// Field is one extracted value with provenance.
type Field struct {
	Value      string  `json:"value"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// FieldKeys is the canonical set of flat dotted field keys a fully
// extracted contract contains.
var FieldKeys = []string{
	"sender_ip",
	"signer_ip",
	"mailing_address.street",
	"mailing_address.city",
	"mailing_address.state",
	"mailing_address.zip_code",
	"signatures.applicant",
	"signatures.co_applicant",
	"bank_details.account_number",
	"bank_details.routing_number",
	"bank_details.bank_name",
	"agreement.ssn",
	"agreement.date_of_birth",
	"agreement.full_name",
	"gateway.ssn_last4",
	"gateway.payment_amount",
	"gateway.enrollment_date",
	"gateway.first_draft_date",
	"legal_plan.ssn",
	"legal_plan.signed",
	"vlp_section.present",
	"vlp_section.signed",
	"vlp_section.ssn",
	"vlp_section.dob",
	"vlp_section.name",
}

// Data holds extracted contract fields keyed by dotted path.
type Data struct {
	fields map[string]Field
}

// NewData returns an empty contract data set.
func NewData() *Data {
	return &Data{fields: make(map[string]Field)}
}

// Set records a field value. A value only replaces an existing one when
// its source outranks the existing source; equal or lower ranked writes
// are dropped, so deterministic values can never be overwritten by AI
// output or fallback padding. Reports whether the value was stored.
func (d *Data) Set(key string, f Field) bool {
	existing, ok := d.fields[key]
	if ok && f.Source.rank() <= existing.Source.rank() {
		return false
	}
	d.fields[key] = f
	return true
}

// Get returns the field for key.
func (d *Data) Get(key string) (Field, bool) {
	f, ok := d.fields[key]
	return f, ok
}

// Value returns the field value for key, or "" when absent.
func (d *Data) Value(key string) string {
	return d.fields[key].Value
}

// Has reports whether key holds a non-empty value from a real source.
func (d *Data) Has(key string) bool {
	f, ok := d.fields[key]
	return ok && f.Value != "" && f.Source != SourceFallback
}

// Keys returns the stored field keys in sorted order.
func (d *Data) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the field map.
func (d *Data) Fields() map[string]Field {
	out := make(map[string]Field, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}
