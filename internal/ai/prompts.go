// prompts.go - Centralized prompt templates for trade compliance analysis

package ai

import (
	"strings"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// ============================================================================
// 📋 SECTION 1: PROMPT TEMPLATE
// ============================================================================

// PromptTemplate is the set of sections every provider prompt is built from.
// Providers override sections by passing a partial template to Merge.
type PromptTemplate struct {
	SystemRole            string
	ForensicsInstructions string
	ChecklistInstructions string
	OutputFormat          string
}

// Route placeholders interpolated by UserPrompt.
const (
	placeholderFromCountry = "{{fromCountry}}"
	placeholderToCountry   = "{{toCountry}}"
)

// DefaultPromptTemplate returns the shared template used by every provider.
func DefaultPromptTemplate() PromptTemplate {
	return PromptTemplate{
		SystemRole:            systemRole,
		ForensicsInstructions: forensicsInstructions,
		ChecklistInstructions: GetChecklistRules(),
		OutputFormat:          GetOutputFormatJSON(),
	}
}

// Merge returns a copy of t where every non-empty section of override wins.
func (t PromptTemplate) Merge(override PromptTemplate) PromptTemplate {
	if override.SystemRole != "" {
		t.SystemRole = override.SystemRole
	}
	if override.ForensicsInstructions != "" {
		t.ForensicsInstructions = override.ForensicsInstructions
	}
	if override.ChecklistInstructions != "" {
		t.ChecklistInstructions = override.ChecklistInstructions
	}
	if override.OutputFormat != "" {
		t.OutputFormat = override.OutputFormat
	}
	return t
}

// SystemPrompt returns the system instruction.
func (t PromptTemplate) SystemPrompt() string {
	return t.SystemRole
}

// UserPrompt assembles the instruction sections and interpolates the route.
func (t PromptTemplate) UserPrompt(opts common.AnalysisOptions) string {
	sections := make([]string, 0, 4)
	for _, s := range []string{routeHeader, t.ForensicsInstructions, t.ChecklistInstructions, t.OutputFormat} {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}

	prompt := strings.Join(sections, "\n\n") + "\n\nReturn ONLY valid JSON (no markdown, no code blocks)."
	return strings.NewReplacer(
		placeholderFromCountry, opts.FromCountry,
		placeholderToCountry, opts.ToCountry,
	).Replace(prompt)
}

// BuildCompliancePrompt returns the combined system and user prompt for
// backends that take a single message.
func BuildCompliancePrompt(t PromptTemplate, opts common.AnalysisOptions) string {
	return t.SystemPrompt() + "\n\n" + t.UserPrompt(opts)
}

// ============================================================================
// 📋 SECTION 2: SYSTEM ROLE
// ============================================================================

const systemRole = `You are a senior trade compliance officer and customs document examiner.
You read commercial shipping documents (invoices, packing lists, certificates, bills of lading)
and determine which export and import documents a consignment requires.
You are precise, you never invent data that is not visible in the document, and you answer in JSON only.`

const routeHeader = `🌍 TRADE ROUTE
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Export country: {{fromCountry}}
Import country: {{toCountry}}`

// ============================================================================
// 📋 SECTION 3: EXTRACTION AND FORENSICS
// ============================================================================

const forensicsInstructions = `🔍 STEP 1: EXTRACT DOCUMENT DATA
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Read the attached document and extract:
- sellerName: the exporter / seller / shipper exactly as printed
- buyerName: the importer / buyer / consignee exactly as printed
- originCountry: country of origin of the goods (leave empty if not shown)
- destinationCountry: country of destination (leave empty if not shown)
- products: every line item with
  - name: product description as printed
  - quantity: quantity with unit as printed (e.g. "20 MT", "1,200 cartons")
  - hsCode: the HS / tariff code if printed, otherwise your best 6-digit classification
  - isOrganic: true only when the document claims organic status
  - attributes: other claims that affect certification (e.g. "halal", "kosher", "frozen", "plant-derived", "animal-derived")

🕵️ STEP 2: DOCUMENT FORENSICS
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Inspect the document for signs of tampering or fraud:
- inconsistent fonts, misaligned text or overwritten figures
- totals that do not match line items
- missing or doubtful stamps, signatures or letterheads
- names, addresses or dates that contradict each other
Report securityAnalysis with:
- isSuspicious: true when any strong signal is present
- reason: one or two sentences naming the signals found (or "No anomalies detected")
- tamperScore: integer 0-100 (0 = clearly authentic, 100 = clearly forged)`

// ============================================================================
// 📋 SECTION 4: TRIMMED INSTRUCTIONS (small context windows)
// ============================================================================

const trimmedForensicsInstructions = `Extract sellerName, buyerName, originCountry, destinationCountry and products
(name, quantity, hsCode, isOrganic, attributes) from the document.
Add securityAnalysis {isSuspicious, reason, tamperScore 0-100} for signs of tampering.`

const trimmedChecklistInstructions = `List the documents required to ship these goods from {{fromCountry}} to {{toCountry}}.
category is one of Regulatory, Customs, Logistics, Financial, Certifications.
isMandatory: Logistics, Financial and Customs documents are always true. Certificates are true only when
the destination's law requires them for these goods; otherwise false. status is always "missing".`
