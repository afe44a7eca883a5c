// analysis.go - Canonical analysis result shared by every AI provider

package common

import "strings"

// AnalysisOptions is the routing context of one analysis call.
type AnalysisOptions struct {
	FromCountry string `json:"fromCountry"`
	ToCountry   string `json:"toCountry"`
}

// AnalysisResult is the shape every provider converges to.
type AnalysisResult struct {
	ExtractedData ExtractedDocumentData `json:"extractedData"`
	Checklist     []ChecklistItem       `json:"checklist"`
}

// ExtractedDocumentData holds the trade facts read from a shipment document.
type ExtractedDocumentData struct {
	SellerName         string            `json:"sellerName"`
	BuyerName          string            `json:"buyerName"`
	OriginCountry      string            `json:"originCountry"`
	DestinationCountry string            `json:"destinationCountry"`
	Products           []Product         `json:"products"`
	SecurityAnalysis   *SecurityAnalysis `json:"securityAnalysis,omitempty"`
}

// Product is one line item of the shipment.
type Product struct {
	Name       string   `json:"name"`
	Quantity   string   `json:"quantity"`
	HSCode     string   `json:"hsCode"`
	IsOrganic  bool     `json:"isOrganic"`
	Attributes []string `json:"attributes"`
}

// SecurityAnalysis is the document forensics verdict. TamperScore is 0-100.
type SecurityAnalysis struct {
	IsSuspicious bool   `json:"isSuspicious"`
	Reason       string `json:"reason"`
	TamperScore  int    `json:"tamperScore"`
}

// ChecklistCategory is the fixed set of checklist groupings.
type ChecklistCategory string

const (
	CategoryLogistics      ChecklistCategory = "Logistics"
	CategoryCustoms        ChecklistCategory = "Customs"
	CategoryCertifications ChecklistCategory = "Certifications"
	CategoryRegulatory     ChecklistCategory = "Regulatory"
	CategoryFinancial      ChecklistCategory = "Financial"
)

// ChecklistCategories lists every valid category.
var ChecklistCategories = []ChecklistCategory{
	CategoryLogistics,
	CategoryCustoms,
	CategoryCertifications,
	CategoryRegulatory,
	CategoryFinancial,
}

// Valid reports whether c belongs to the fixed enumeration.
func (c ChecklistCategory) Valid() bool {
	for _, known := range ChecklistCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseChecklistCategory matches a category name case-insensitively.
func ParseChecklistCategory(raw string) (ChecklistCategory, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, known := range ChecklistCategories {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return "", false
}

// StatusMissing is the status of a checklist item nobody has uploaded yet.
const StatusMissing = "missing"

// ChecklistItem is one required or advised document for the consignment.
type ChecklistItem struct {
	ID           string            `json:"id"`
	DocumentName string            `json:"documentName"`
	Description  string            `json:"description"`
	Agency       string            `json:"agency"`
	AgencyURL    string            `json:"agencyUrl"`
	Category     ChecklistCategory `json:"category"`
	IsMandatory  bool              `json:"isMandatory"`
	Status       string            `json:"status"`
}
