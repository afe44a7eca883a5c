// prompt_checklist_rules.go - Checklist categorization rules
//
// The Mandatory-vs-Advised decision table applied to every required document.

package ai

// GetChecklistRules returns the checklist instruction block with the decision table.
func GetChecklistRules() string {
	return `📑 STEP 3: BUILD THE COMPLIANCE CHECKLIST
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
List every document needed to export the extracted goods from {{fromCountry}}
and import them into {{toCountry}}. For each document give the issuing or
enforcing agency and its official website.

Assign exactly one category:
- Regulatory: licences, permits and registrations required by law
- Customs: declarations, tariff and origin paperwork handled by customs
- Logistics: transport and packing documents
- Financial: invoices, payment and insurance documents
- Certifications: product certificates and test reports

` + GetMandatoryDecisionTable()
}

// GetMandatoryDecisionTable returns the isMandatory rules.
func GetMandatoryDecisionTable() string {
	return `⚖️ MANDATORY vs ADVISED (isMandatory)
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Apply this table strictly:

| Document | isMandatory |
|---|---|
| Logistics, Financial and Customs documents | always true |
| Organic certificate | true only if a product has isOrganic = true AND {{toCountry}} enforces an organic labeling law; otherwise false |
| Phytosanitary or health certificate | true if any product is plant- or animal-derived; otherwise false |
| Halal or Kosher certificate | true only if {{toCountry}} has a binding religious-certification law for these goods; otherwise false, and list it only if a product claims the attribute |
| Certificate of origin | true only when preferential tariff treatment is claimed; otherwise false |
| Quality or test reports | false unless a cited regulation of {{toCountry}} requires them |

When isMandatory is false the document is advised: include it, but never mark it mandatory
without a rule from the table above.`
}
