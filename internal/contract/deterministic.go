package contract

import (
	"regexp"
	"strings"
)

// Deterministic extractors find high-trust values by pattern matching
// before any model sees the document. A model can supplement these but
// never override them.

var (
	senderIPRe  = regexp.MustCompile(`(?i)sender[^\n]{0,80}?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	signerIPRe  = regexp.MustCompile(`(?i)sign(?:er|ed)[^\n]{0,80}?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	ssnRe       = regexp.MustCompile(`\b(\d{3}-\d{2}-\d{4})\b`)
	routingRe   = regexp.MustCompile(`(?i)routing[^\n]{0,40}?(\d{9})\b`)
	dobLabelRe  = regexp.MustCompile(`(?i)(?:date of birth|dob)[^\n]{0,40}?(\d{4}-\d{2}-\d{2})`)
	enrollLabel = regexp.MustCompile(`(?i)enrollment date[^\n]{0,40}?(\d{4}-\d{2}-\d{2})`)
)

// applyDeterministic scans the document text and stores every match with
// full confidence.
func applyDeterministic(d *Data, text string) {
	set := func(key, value string) {
		if value != "" {
			d.Set(key, Field{Value: value, Source: SourceDeterministic, Confidence: 1.0})
		}
	}

	set("sender_ip", firstGroup(senderIPRe, text))
	set("signer_ip", firstGroup(signerIPRe, text))
	set("agreement.ssn", firstGroup(ssnRe, text))
	set("bank_details.routing_number", firstGroup(routingRe, text))
	set("agreement.date_of_birth", firstGroup(dobLabelRe, text))
	set("gateway.enrollment_date", firstGroup(enrollLabel, text))
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
