package quotes

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Submission field bounds. Content below the floor carries too little signal
// for the analyzer to work with; the ceiling keeps upstream prompts bounded.
// Bounds are counted in runes: the product is French and byte counts would
// overcount accented text.
const (
	MaxVendorNameLen = 100
	MinContentLen    = 50
	MaxContentLen    = 5000
	MaxCategoryLen   = 100
)

// Batch size bounds. A comparison needs at least two quotes to mean anything;
// the upper bound caps response latency of the single synchronous upstream
// call, it is not a technical limit.
const (
	MinBatchSize = 2
	MaxBatchSize = 10
)

// QuoteSubmission is one vendor proposal submitted for analysis. Built per
// request, discarded once the call completes.
type QuoteSubmission struct {
	VendorName string `json:"vendorName"`
	Content    string `json:"content"`
	Category   string `json:"category"`
}

// Sanitize returns a copy safe to send upstream: NUL and non-printing control
// characters stripped from every field (tab and newline kept), surrounding
// whitespace trimmed.
func (s QuoteSubmission) Sanitize() QuoteSubmission {
	s.VendorName = sanitizeText(s.VendorName)
	s.Content = sanitizeText(s.Content)
	s.Category = sanitizeText(s.Category)
	return s
}

// Validate checks field bounds on an already-sanitized submission. Messages
// are written for the API caller.
func (s QuoteSubmission) Validate() error {
	if s.VendorName == "" {
		return &ValidationError{Field: "vendorName", Message: "le nom du fournisseur est requis"}
	}
	if utf8.RuneCountInString(s.VendorName) > MaxVendorNameLen {
		return &ValidationError{Field: "vendorName", Message: "le nom du fournisseur ne doit pas dépasser 100 caractères"}
	}
	switch n := utf8.RuneCountInString(s.Content); {
	case n < MinContentLen:
		return &ValidationError{Field: "content", Message: "le contenu doit comporter au moins 50 caractères"}
	case n > MaxContentLen:
		return &ValidationError{Field: "content", Message: "le contenu ne doit pas dépasser 5000 caractères"}
	}
	if s.Category == "" {
		return &ValidationError{Field: "category", Message: "la catégorie est requise"}
	}
	if utf8.RuneCountInString(s.Category) > MaxCategoryLen {
		return &ValidationError{Field: "category", Message: "la catégorie ne doit pas dépasser 100 caractères"}
	}
	return nil
}

func sanitizeText(in string) string {
	in = strings.ReplaceAll(in, "\x00", "")

	var b strings.Builder
	for _, r := range in {
		if r >= 32 || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// QuoteAnalysis is the structured extraction produced for one quote.
// Price is nil when the analyzer found no price in the text; a zero price
// is a real extracted value, not a missing one. Score is unconstrained as
// delivered by the analyzer and lands in [0, 100] after adjustment.
type QuoteAnalysis struct {
	VendorName string   `json:"vendorName"`
	Price      *float64 `json:"price"`
	Currency   string   `json:"currency"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Risks      []string `json:"risks"`
	Score      float64  `json:"score"`
	Reasoning  string   `json:"reasoning"`
}

// AnalysisBatchResult is the enriched outcome of one batch: analyses ordered
// by adjusted score (best first), the analyzer's overall recommendation and
// the completion timestamp. Never persisted.
type AnalysisBatchResult struct {
	Analyses              []QuoteAnalysis `json:"analyses"`
	OverallRecommendation string          `json:"overallRecommendation"`
	AnalyzedAt            time.Time       `json:"analyzedAt"`
}

// Categories is the fixed list served by GET /quotes/categories. Plain
// configuration data, not derived from traffic.
var Categories = []string{
	"Développement logiciel",
	"Infrastructure & Cloud",
	"Matériel informatique",
	"Conseil & Services",
	"Marketing & Communication",
	"Travaux & Maintenance",
	"Logistique & Transport",
	"Autre",
}
