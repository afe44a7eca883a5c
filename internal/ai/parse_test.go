package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

var thToJP = common.AnalysisOptions{FromCountry: "Thailand", ToCountry: "Japan"}

func TestDecodeAnalysisFullPayload(t *testing.T) {
	content := `{
		"extractedData": {
			"sellerName": "Siam Rice Co.",
			"buyerName": "Tokyo Foods KK",
			"originCountry": "Thailand",
			"destinationCountry": "Japan",
			"products": [
				{"name": "Jasmine rice", "quantity": 20, "hsCode": "1006.30", "isOrganic": true, "attributes": ["milled", " "]}
			],
			"securityAnalysis": {"isSuspicious": false, "reason": "clean", "tamperScore": 12}
		},
		"checklist": [
			{"id": "phyto", "documentName": "Phytosanitary Certificate", "description": "Plant health", "agency": "MAFF",
			 "agencyUrl": "https://www.maff.go.jp", "category": "Certifications", "isMandatory": true, "status": "missing"}
		]
	}`

	result, err := decodeAnalysis("Gemini", content, thToJP)
	require.NoError(t, err)

	assert.Equal(t, "Siam Rice Co.", result.ExtractedData.SellerName)
	require.Len(t, result.ExtractedData.Products, 1)
	assert.Equal(t, "20", result.ExtractedData.Products[0].Quantity)
	assert.True(t, result.ExtractedData.Products[0].IsOrganic)
	assert.Equal(t, []string{"milled"}, result.ExtractedData.Products[0].Attributes)
	require.NotNil(t, result.ExtractedData.SecurityAnalysis)
	assert.Equal(t, 12, result.ExtractedData.SecurityAnalysis.TamperScore)

	require.Len(t, result.Checklist, 1)
	item := result.Checklist[0]
	assert.Equal(t, "phyto", item.ID)
	assert.Equal(t, common.CategoryCertifications, item.Category)
	assert.True(t, item.IsMandatory)
	assert.Equal(t, common.StatusMissing, item.Status)
}

func TestDecodeAnalysisWithProseAndFences(t *testing.T) {
	content := "Here is the analysis {as requested}:\n```json\n" +
		`{"extractedData": {"sellerName": "A {brace} seller"}, "checklist": []}` +
		"\n```\nLet me know if you need more."

	result, err := decodeAnalysis("Llama", content, thToJP)
	require.NoError(t, err)
	assert.Equal(t, "A {brace} seller", result.ExtractedData.SellerName)
	assert.Empty(t, result.Checklist)
}

func TestDecodeAnalysisBackfillsCountries(t *testing.T) {
	result, err := decodeAnalysis("Kimi", `{"extractedData": {"originCountry": "", "sellerName": "X"}}`, thToJP)
	require.NoError(t, err)
	assert.Equal(t, "Thailand", result.ExtractedData.OriginCountry)
	assert.Equal(t, "Japan", result.ExtractedData.DestinationCountry)

	result, err = decodeAnalysis("Kimi", `{"extractedData": {"originCountry": "Vietnam"}}`, thToJP)
	require.NoError(t, err)
	assert.Equal(t, "Vietnam", result.ExtractedData.OriginCountry)
}

func TestDecodeAnalysisRepairsRawNewlines(t *testing.T) {
	content := "{\"extractedData\": {\"sellerName\": \"Line one\nLine two\"}}"

	result, err := decodeAnalysis("MiniMax", content, thToJP)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", result.ExtractedData.SellerName)
}

func TestDecodeAnalysisNormalizesChecklist(t *testing.T) {
	content := `{"checklist": [
		{"documentName": "Commercial Invoice", "category": "Trade Finance", "isMandatory": "yes"},
		{"documentName": "Bill of Lading", "category": "shipping docs", "status": "SUBMITTED"},
		{"documentName": "Import Permit", "category": "something else"},
		{"documentName": "Customs Declaration", "category": "customs"},
		{"documentName": "Commercial Invoice"},
		{"documentName": ""}
	]}`

	result, err := decodeAnalysis("DeepSeek", content, thToJP)
	require.NoError(t, err)
	require.Len(t, result.Checklist, 6)

	assert.Equal(t, common.CategoryFinancial, result.Checklist[0].Category)
	assert.True(t, result.Checklist[0].IsMandatory)
	assert.Equal(t, "commercial-invoice", result.Checklist[0].ID)
	assert.Equal(t, common.StatusMissing, result.Checklist[0].Status)

	assert.Equal(t, common.CategoryLogistics, result.Checklist[1].Category)
	assert.Equal(t, "submitted", result.Checklist[1].Status)

	assert.Equal(t, common.CategoryRegulatory, result.Checklist[2].Category)
	assert.Equal(t, common.CategoryCustoms, result.Checklist[3].Category)

	assert.Equal(t, "commercial-invoice-2", result.Checklist[4].ID)
	assert.Equal(t, "item-6", result.Checklist[5].ID)

	for _, item := range result.Checklist {
		assert.True(t, item.Category.Valid(), item.DocumentName)
	}
}

func TestDecodeAnalysisClampsTamperScore(t *testing.T) {
	result, err := decodeAnalysis("Gemini", `{"extractedData": {"securityAnalysis": {"isSuspicious": "true", "tamperScore": "140%"}}}`, thToJP)
	require.NoError(t, err)
	require.NotNil(t, result.ExtractedData.SecurityAnalysis)
	assert.True(t, result.ExtractedData.SecurityAnalysis.IsSuspicious)
	assert.Equal(t, 100, result.ExtractedData.SecurityAnalysis.TamperScore)

	result, err = decodeAnalysis("Gemini", `{"extractedData": {"securityAnalysis": {"tamperScore": -3}}}`, thToJP)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExtractedData.SecurityAnalysis.TamperScore)
}

func TestDecodeAnalysisErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "I cannot read this document."},
		{"unbalanced", `{"extractedData": {"sellerName": "x"`},
		{"wrong shape", `{"answer": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAnalysis("Mistral", tt.content, thToJP)
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "Mistral", parseErr.Provider)
			assert.Contains(t, err.Error(), "Mistral")
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestJSONObjectCandidates(t *testing.T) {
	blocks := jsonObjectCandidates(`a {"k": "}"} b {"n": {"m": 1}}`)
	require.Len(t, blocks, 3)
	assert.Equal(t, `{"k": "}"}`, blocks[0])
	assert.Equal(t, `{"n": {"m": 1}}`, blocks[1])
	assert.Equal(t, `{"m": 1}`, blocks[2])
}
