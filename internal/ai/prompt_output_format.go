// prompt_output_format.go - JSON Output Format Schema
//
// Defines the JSON shape every provider must return. Gemini additionally
// enforces it through a response schema (see gemini.go).

package ai

// GetOutputFormatJSON returns the JSON schema for AI response
func GetOutputFormatJSON() string {
	return `🎨 OUTPUT FORMAT (JSON):

{
  "extractedData": {
    "sellerName": "[seller / exporter name]",
    "buyerName": "[buyer / importer name]",
    "originCountry": "[country of origin]",
    "destinationCountry": "[country of destination]",
    "products": [
      {
        "name": "[product description]",
        "quantity": "[quantity with unit]",
        "hsCode": "[HS code]",
        "isOrganic": false,
        "attributes": ["[claim]"]
      }
    ],
    "securityAnalysis": {
      "isSuspicious": false,
      "reason": "[forensic findings]",
      "tamperScore": 0
    }
  },
  "checklist": [
    {
      "id": "[short-kebab-case-id]",
      "documentName": "[official document name]",
      "description": "[why it is needed for this route]",
      "agency": "[issuing or enforcing agency]",
      "agencyUrl": "[agency website]",
      "category": "[Regulatory|Customs|Logistics|Financial|Certifications]",
      "isMandatory": true,
      "status": "missing"
    }
  ]
}

` + GetValidationRequirements()
}

// GetValidationRequirements returns the rules the JSON must satisfy
func GetValidationRequirements() string {
	return `⚠️ VALIDATION REQUIREMENTS
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
- Use exactly the field names above (camelCase). Do not add top-level fields.
- category MUST be one of: Regulatory, Customs, Logistics, Financial, Certifications.
- status MUST be "missing" for every checklist item.
- tamperScore MUST be an integer between 0 and 100.
- Use empty strings, never null, for text you cannot read.
- Every checklist id MUST be unique.`
}
