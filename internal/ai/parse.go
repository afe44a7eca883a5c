// parse.go - Converts free-form model output into the canonical AnalysisResult

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// decodeAnalysis finds the JSON payload in content and adapts it to AnalysisResult.
// Missing countries are taken from opts.
func decodeAnalysis(provider, content string, opts common.AnalysisOptions) (*common.AnalysisResult, error) {
	payload, err := extractPayload(provider, content)
	if err != nil {
		return nil, err
	}
	return payload.toResult(opts), nil
}

func extractPayload(provider, content string) (*analysisPayload, error) {
	blocks := jsonObjectCandidates(content)
	if len(blocks) == 0 {
		return nil, &ParseError{Provider: provider, Reason: "no JSON object found", Content: content}
	}

	var lastErr error
	for _, block := range blocks {
		var payload analysisPayload
		if err := json.Unmarshal([]byte(block), &payload); err != nil {
			// Models sometimes emit raw newlines inside strings
			if err2 := json.Unmarshal([]byte(fixJSONEscaping(block)), &payload); err2 != nil {
				lastErr = err
				continue
			}
		}
		if !payload.recognised() {
			lastErr = fmt.Errorf("JSON object has neither extractedData nor checklist")
			continue
		}
		return &payload, nil
	}

	return nil, &ParseError{Provider: provider, Reason: lastErr.Error(), Content: content}
}

// jsonObjectCandidates returns every balanced {...} block in order of its opening brace.
// Braces inside JSON strings are ignored.
func jsonObjectCandidates(content string) []string {
	var blocks []string
	for start := strings.IndexByte(content, '{'); start >= 0; {
		if end := matchingBrace(content, start); end > 0 {
			blocks = append(blocks, content[start:end+1])
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return blocks
}

// matchingBrace returns the index of the brace closing the one at start, or -1.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var jsonStringPattern = regexp.MustCompile(`"([^"\\]*(?:\\.[^"\\]*)*)"`)

// fixJSONEscaping escapes raw control characters that models leave inside JSON strings.
func fixJSONEscaping(jsonStr string) string {
	return jsonStringPattern.ReplaceAllStringFunc(jsonStr, func(match string) string {
		if len(match) < 2 {
			return match
		}
		content := match[1 : len(match)-1]

		var builder strings.Builder
		for _, ch := range content {
			switch {
			case ch == '\n':
				builder.WriteString(`\n`)
			case ch == '\r':
				builder.WriteString(`\r`)
			case ch == '\t':
				builder.WriteString(`\t`)
			case ch < 0x20:
				fmt.Fprintf(&builder, `\u%04x`, ch)
			default:
				builder.WriteRune(ch)
			}
		}
		return `"` + builder.String() + `"`
	})
}

// --- Wire payload (tolerant of the shapes models actually return) ---

type analysisPayload struct {
	ExtractedData      *extractedPayload  `json:"extractedData"`
	ExtractedDataSnake *extractedPayload  `json:"extracted_data"`
	Checklist          []checklistPayload `json:"checklist"`
}

func (p *analysisPayload) recognised() bool {
	return p.ExtractedData != nil || p.ExtractedDataSnake != nil || p.Checklist != nil
}

type extractedPayload struct {
	SellerName         flexString       `json:"sellerName"`
	BuyerName          flexString       `json:"buyerName"`
	OriginCountry      flexString       `json:"originCountry"`
	DestinationCountry flexString       `json:"destinationCountry"`
	Products           []productPayload `json:"products"`
	SecurityAnalysis   *securityPayload `json:"securityAnalysis"`
}

type productPayload struct {
	Name       flexString   `json:"name"`
	Quantity   flexString   `json:"quantity"`
	HSCode     flexString   `json:"hsCode"`
	IsOrganic  flexBool     `json:"isOrganic"`
	Attributes []flexString `json:"attributes"`
}

type securityPayload struct {
	IsSuspicious flexBool   `json:"isSuspicious"`
	Reason       flexString `json:"reason"`
	TamperScore  flexNumber `json:"tamperScore"`
}

type checklistPayload struct {
	ID           flexString `json:"id"`
	DocumentName flexString `json:"documentName"`
	Description  flexString `json:"description"`
	Agency       flexString `json:"agency"`
	AgencyURL    flexString `json:"agencyUrl"`
	Category     flexString `json:"category"`
	IsMandatory  flexBool   `json:"isMandatory"`
	Status       flexString `json:"status"`
}

func (p *analysisPayload) toResult(opts common.AnalysisOptions) *common.AnalysisResult {
	extracted := p.ExtractedData
	if extracted == nil {
		extracted = p.ExtractedDataSnake
	}
	if extracted == nil {
		extracted = &extractedPayload{}
	}

	result := &common.AnalysisResult{
		ExtractedData: common.ExtractedDocumentData{
			SellerName:         extracted.SellerName.trimmed(),
			BuyerName:          extracted.BuyerName.trimmed(),
			OriginCountry:      extracted.OriginCountry.trimmed(),
			DestinationCountry: extracted.DestinationCountry.trimmed(),
			Products:           make([]common.Product, 0, len(extracted.Products)),
		},
		Checklist: make([]common.ChecklistItem, 0, len(p.Checklist)),
	}

	if result.ExtractedData.OriginCountry == "" {
		result.ExtractedData.OriginCountry = opts.FromCountry
	}
	if result.ExtractedData.DestinationCountry == "" {
		result.ExtractedData.DestinationCountry = opts.ToCountry
	}

	for _, prod := range extracted.Products {
		attrs := make([]string, 0, len(prod.Attributes))
		for _, a := range prod.Attributes {
			if v := a.trimmed(); v != "" {
				attrs = append(attrs, v)
			}
		}
		result.ExtractedData.Products = append(result.ExtractedData.Products, common.Product{
			Name:       prod.Name.trimmed(),
			Quantity:   prod.Quantity.trimmed(),
			HSCode:     prod.HSCode.trimmed(),
			IsOrganic:  bool(prod.IsOrganic),
			Attributes: attrs,
		})
	}

	if sec := extracted.SecurityAnalysis; sec != nil {
		result.ExtractedData.SecurityAnalysis = &common.SecurityAnalysis{
			IsSuspicious: bool(sec.IsSuspicious),
			Reason:       sec.Reason.trimmed(),
			TamperScore:  clampScore(float64(sec.TamperScore)),
		}
	}

	seen := make(map[string]int)
	for i, item := range p.Checklist {
		name := item.DocumentName.trimmed()
		id := item.ID.trimmed()
		if id == "" {
			id = slugify(name)
		}
		if id == "" {
			id = "item-" + strconv.Itoa(i+1)
		}
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = id + "-" + strconv.Itoa(n+1)
		} else {
			seen[id] = 1
		}

		status := strings.ToLower(item.Status.trimmed())
		if status == "" {
			status = common.StatusMissing
		}

		result.Checklist = append(result.Checklist, common.ChecklistItem{
			ID:           id,
			DocumentName: name,
			Description:  item.Description.trimmed(),
			Agency:       item.Agency.trimmed(),
			AgencyURL:    item.AgencyURL.trimmed(),
			Category:     normalizeCategory(item.Category.trimmed(), name),
			IsMandatory:  bool(item.IsMandatory),
			Status:       status,
		})
	}

	return result
}

// normalizeCategory maps free-form categories onto the fixed enumeration.
func normalizeCategory(raw, documentName string) common.ChecklistCategory {
	if c, ok := common.ParseChecklistCategory(raw); ok {
		return c
	}

	probe := strings.ToLower(raw + " " + documentName)
	switch {
	case containsAny(probe, "certif", "organic", "halal", "kosher", "phytosanitary", "sanitary", "veterinary"):
		return common.CategoryCertifications
	case containsAny(probe, "customs", "tariff", "declaration", "duty", "import licen", "export licen"):
		return common.CategoryCustoms
	case containsAny(probe, "invoice", "payment", "letter of credit", "financ", "bank", "insurance"):
		return common.CategoryFinancial
	case containsAny(probe, "lading", "packing", "shipping", "transport", "logistic", "waybill", "freight"):
		return common.CategoryLogistics
	default:
		return common.CategoryRegulatory
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// flexString accepts strings, numbers, booleans and null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = flexString(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*f = flexString(strconv.FormatBool(v))
	default:
		*f = flexString(string(data))
	}
	return nil
}

func (f flexString) trimmed() string {
	return strings.TrimSpace(string(f))
}

// flexBool accepts booleans, "true"/"yes"/"mandatory" strings and numbers.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = flexBool(v)
	case float64:
		*f = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "mandatory", "required":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}

// flexNumber accepts numbers and numeric strings such as "85" or "85%".
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*f = flexNumber(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexNumber(parsed)
	default:
		*f = 0
	}
	return nil
}
