package prompt

import "github.com/kalambet/underwrite/internal/provider"

// builtinTemplates returns the compiled-in prompt set. Versions stay
// registered side by side so a caller can pin an old one while "latest"
// moves forward.
func builtinTemplates() []*Template {
	return []*Template{
		contractExtractionV1(),
		contractExtractionV2(),
		hardshipAssessmentV2(),
		schemaRepairV1(),
	}
}

// ContractSchema describes the structured output expected from contract
// extraction. Section objects arrive as JSON objects and are flattened
// downstream, so the top-level property types are what matters here.
func ContractSchema() *provider.Schema {
	return &provider.Schema{
		Type: "object",
		Properties: map[string]provider.SchemaProperty{
			"sender_ip":       {Type: "string", Description: "IP address of document sender"},
			"signer_ip":       {Type: "string", Description: "IP address of document signer"},
			"mailing_address": {Type: "object", Description: "street, city, state, zip_code"},
			"signatures":      {Type: "object", Description: "applicant and co_applicant signatures"},
			"bank_details":    {Type: "object", Description: "account_number, routing_number, bank_name"},
			"agreement":       {Type: "object", Description: "ssn, date_of_birth, full_name"},
			"gateway":         {Type: "object", Description: "ssn_last4, payment_amount, enrollment_date, first_draft_date"},
			"legal_plan":      {Type: "object", Description: "ssn and signed flag"},
			"vlp_section":     {Type: "object", Description: "present, signed, ssn, dob, name"},
		},
		Required: []string{"sender_ip", "signer_ip", "signatures", "agreement", "gateway"},
	}
}

func contractExtractionV1() *Template {
	return &Template{
		ID:       "contract_extraction",
		Version:  "1.0",
		Category: "contract_parsing",
		System: `You are a legal document analyst. Extract structured information from debt settlement contracts. Only extract information explicitly stated in the document; use null for anything absent or ambiguous.`,
		Body: `Extract the following fields from the contract document below and return them as a single JSON object with these keys: sender_ip, signer_ip, mailing_address (street, city, state, zip_code), signatures (applicant, co_applicant), bank_details (account_number, routing_number, bank_name), agreement (ssn, date_of_birth, full_name), gateway (ssn_last4, payment_amount, enrollment_date, first_draft_date), legal_plan (ssn, signed), vlp_section (present, signed, ssn, dob, name).

DOCUMENT CONTENT:
{{ document_text }}

Return ONLY the JSON object with no additional commentary.`,
		Required: []string{"document_text"},
		Schema:   ContractSchema(),
	}
}

func contractExtractionV2() *Template {
	return &Template{
		ID:       "contract_extraction",
		Version:  "2.0",
		Category: "contract_parsing",
		System: `You are an expert legal document analyst specializing in debt settlement contract analysis. Your task is to extract specific structured information from contract documents with extreme accuracy.

CRITICAL EXTRACTION RULES:
1. Only extract information that is explicitly stated in the document
2. Use null for any information that is not clearly present or is ambiguous
3. Pay special attention to IP addresses, signatures, dates, and financial details
4. Distinguish between different document sections (agreement, gateway, legal plan, VLP)
5. Maintain data consistency and format standardization

QUALITY STANDARDS:
- IP addresses must be in valid IPv4 format (x.x.x.x)
- Dates must be in YYYY-MM-DD format
- SSN should be in XXX-XX-XXXX format or last 4 digits only where specified
- Signatures should not contain dots, dashes, or special characters
- Financial amounts should be numeric values`,
		Body: `Analyze the following contract document and extract the required underwriting information with maximum precision:

DOCUMENT CONTENT:
{{ document_text }}

Extract the following information in strict JSON format:

{
    "sender_ip": "IP address of document sender (null if not found)",
    "signer_ip": "IP address of document signer (null if not found)",
    "mailing_address": {
        "street": "complete street address",
        "city": "city name",
        "state": "state abbreviation (2 letters)",
        "zip_code": "zip code"
    },
    "signatures": {
        "applicant": "primary applicant signature/name (remove dots/dashes)",
        "co_applicant": "co-applicant signature/name (remove dots/dashes)"
    },
    "bank_details": {
        "account_number": "bank account number",
        "routing_number": "bank routing number (9 digits)",
        "bank_name": "name of bank"
    },
    "agreement": {
        "ssn": "social security number in XXX-XX-XXXX format",
        "date_of_birth": "date of birth in YYYY-MM-DD format",
        "full_name": "complete legal name as written"
    },
    "gateway": {
        "ssn_last4": "last 4 digits of SSN from payment gateway section",
        "payment_amount": "monthly payment amount (numeric)",
        "enrollment_date": "enrollment date in YYYY-MM-DD format",
        "first_draft_date": "first draft date in YYYY-MM-DD format"
    },
    "legal_plan": {
        "ssn": "SSN from legal plan section",
        "signed": "true if legal plan section is signed, false otherwise"
    },
    "vlp_section": {
        "present": "true if VLP (Voluntary Legal Plan) section exists",
        "signed": "true if VLP section is signed",
        "ssn": "SSN from VLP section",
        "dob": "date of birth from VLP section in YYYY-MM-DD format",
        "name": "full name from VLP section"
    }
}

VALIDATION REQUIREMENTS:
- Dates must be realistic and properly formatted
- SSN consistency across all sections
- Signature fields must not contain dots, dashes, or abbreviations

Return ONLY the JSON object with no additional commentary.`,
		Required: []string{"document_text"},
		Schema:   ContractSchema(),
	}
}

func hardshipAssessmentV2() *Template {
	return &Template{
		ID:       "hardship_assessment",
		Version:  "2.0",
		Category: "hardship_assessment",
		System: `You are an expert financial hardship analyst specializing in debt settlement program qualification. Evaluate hardship claims for legitimacy, severity, and program eligibility.

ACCEPTABLE HARDSHIP CATEGORIES:
- Employment Issues: job loss, unemployment, reduced hours, layoffs, business closure
- Medical/Health: illness, medical bills, disability, injury, chronic conditions
- Family Changes: divorce, separation, death of income provider, dependent care
- Income Reduction: salary cuts, commission loss, retirement, benefit reduction
- Emergency Expenses: home repairs, vehicle breakdown, unexpected major costs
- Economic Factors: inflation impact, cost of living increases, economic downturn

ASSESSMENT CRITERIA:
- Even single-word entries can be valid if they indicate legitimate hardship
- Brief descriptions are acceptable if they clearly communicate hardship
- Empty descriptions automatically fail`,
		Body: `Analyze the following hardship description for debt settlement program qualification:

HARDSHIP DESCRIPTION:
"{{ hardship_description }}"

Provide the assessment in JSON format:

{
    "is_valid": true or false,
    "confidence": 0.0-1.0,
    "category": "job_loss/medical/divorce/income_reduction/emergency/other",
    "reasoning": "brief explanation of the assessment decision"
}

Return ONLY the JSON object with no additional commentary.`,
		Required: []string{"hardship_description"},
		Schema: &provider.Schema{
			Type: "object",
			Properties: map[string]provider.SchemaProperty{
				"is_valid":   {Type: "boolean", Description: "whether the hardship claim is valid"},
				"confidence": {Type: "number", Description: "confidence between 0 and 1"},
				"category":   {Type: "string", Description: "primary hardship category"},
				"reasoning":  {Type: "string", Description: "explanation of the decision"},
			},
			Required: []string{"is_valid", "confidence", "reasoning"},
		},
	}
}

func schemaRepairV1() *Template {
	return &Template{
		ID:       "schema_repair",
		Version:  "1.0",
		Category: "contract_parsing",
		System: `You repair malformed JSON produced by another model. Given the raw output and the list of problems, return a corrected JSON object that satisfies the expected structure. Preserve every value that is already correct; never invent data for fields the raw output does not contain, use null instead.`,
		Body: `The following model output failed validation.

RAW OUTPUT:
{{ raw_output }}

PROBLEMS:
{{ problems }}

EXPECTED TOP-LEVEL KEYS:
{{ expected_keys }}

Return ONLY the corrected JSON object with no additional commentary.`,
		Required: []string{"raw_output", "problems", "expected_keys"},
	}
}
