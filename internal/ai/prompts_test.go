package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

func TestUserPromptInterpolatesRoute(t *testing.T) {
	prompt := DefaultPromptTemplate().UserPrompt(common.AnalysisOptions{FromCountry: "Thailand", ToCountry: "Japan"})

	assert.Contains(t, prompt, "Export country: Thailand")
	assert.Contains(t, prompt, "Import country: Japan")
	assert.Contains(t, prompt, "into Japan")
	assert.NotContains(t, prompt, placeholderFromCountry)
	assert.NotContains(t, prompt, placeholderToCountry)
}

func TestDefaultTemplateCarriesDecisionTable(t *testing.T) {
	tmpl := DefaultPromptTemplate()

	assert.Contains(t, tmpl.SystemPrompt(), "trade compliance officer")
	assert.Contains(t, tmpl.ChecklistInstructions, "Organic certificate")
	assert.Contains(t, tmpl.ChecklistInstructions, "Phytosanitary")
	assert.Contains(t, tmpl.ChecklistInstructions, "Certificate of origin")
	assert.Contains(t, tmpl.OutputFormat, `"extractedData"`)
}

func TestMergeOnlyOverridesNonEmptySections(t *testing.T) {
	base := DefaultPromptTemplate()
	merged := base.Merge(PromptTemplate{SystemRole: "custom role"})

	assert.Equal(t, "custom role", merged.SystemRole)
	assert.Equal(t, base.ForensicsInstructions, merged.ForensicsInstructions)
	assert.Equal(t, base.ChecklistInstructions, merged.ChecklistInstructions)
	assert.Equal(t, base.OutputFormat, merged.OutputFormat)

	// base is a value and stays untouched
	assert.Equal(t, systemRole, base.SystemRole)
}

func TestBuildCompliancePrompt(t *testing.T) {
	tmpl := DefaultPromptTemplate().Merge(PromptTemplate{
		ForensicsInstructions: trimmedForensicsInstructions,
		ChecklistInstructions: trimmedChecklistInstructions,
	})
	prompt := BuildCompliancePrompt(tmpl, common.AnalysisOptions{FromCountry: "Peru", ToCountry: "Germany"})

	assert.Contains(t, prompt, "trade compliance officer")
	assert.Contains(t, prompt, "from Peru to Germany")
	assert.NotContains(t, prompt, "DOCUMENT FORENSICS")
}
