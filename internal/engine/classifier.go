package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/raaihank/literal-sentinel/internal/catalog"
)

var (
	ipv4Shape   = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	invalidName = regexp.MustCompile(`[^A-Z0-9]+`)

	confidenceKeywords = []string{"password", "secret", "private_key", "cert", "token", "key"}
	urlSchemes         = []string{"http://", "https://", "ftp://"}
)

// securityTiers is evaluated top to bottom, first hit wins
var securityTiers = []struct {
	level    SecurityLevel
	keywords []string
}{
	{SecuritySecret, []string{"password", "secret", "private_key", "cert"}},
	{SecurityConfidential, []string{"token", "api_key", "auth"}},
	{SecurityInternal, []string{"internal", "private"}},
}

// Classifier turns raw matches into candidates. It only reads the catalog and
// vocabulary, so one Classifier may be shared by concurrent workers.
type Classifier struct {
	catalog    *catalog.Catalog
	vocabulary *catalog.Vocabulary
}

// NewClassifier creates a classifier over the given configuration tables
func NewClassifier(cat *catalog.Catalog, vocab *catalog.Vocabulary) *Classifier {
	return &Classifier{catalog: cat, vocabulary: vocab}
}

// Classify scores one raw match
func (c *Classifier) Classify(raw RawMatch, fileCategory FileCategory) Candidate {
	return Candidate{
		DocumentPath:         raw.DocumentPath,
		LineNumber:           raw.LineNumber,
		ColumnNumber:         raw.ColumnNumber,
		Category:             raw.Category,
		OriginalValue:        raw.RawText,
		ExtractedValue:       raw.ExtractedValue,
		SuggestedPlaceholder: SuggestPlaceholder(c.vocabulary, raw.Category, raw.ExtractedValue, raw.RawText),
		ConfidenceScore:      Confidence(raw.ExtractedValue, c.catalog.BaseWeight(raw.Category)),
		SecurityLevel:        Classification(raw.ExtractedValue),
		ConversionComplexity: ConversionComplexity(fileCategory, raw),
	}
}

// Confidence applies the additive scoring model to a value and clamps it to [0, 100].
func Confidence(value string, baseWeight float64) float64 {
	score := baseWeight
	if score == 0 {
		score = catalog.DefaultBaseWeight
	}

	length := utf8.RuneCountInString(value)
	if length > 50 {
		score -= 10
	}
	if length < 3 {
		score -= 20
	}

	lower := strings.ToLower(value)
	if containsAny(lower, confidenceKeywords) {
		score += 10
	}
	if hasAnyPrefix(lower, urlSchemes) {
		score += 15
	}
	if ipv4Shape.MatchString(value) {
		score += 10
	}

	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// Classification returns the security level implied by keywords in the value
func Classification(value string) SecurityLevel {
	lower := strings.ToLower(value)
	for _, tier := range securityTiers {
		if containsAny(lower, tier.keywords) {
			return tier.level
		}
	}
	return SecurityPublic
}

// ConversionComplexity combines the document kind with whether the value sits between
// quotes in its match.
func ConversionComplexity(fileCategory FileCategory, raw RawMatch) Complexity {
	switch fileCategory {
	case FileCategoryScript:
		if quoteDelimited(raw) {
			return ComplexityLow
		}
		return ComplexityMedium
	case FileCategoryStructuredData:
		return ComplexityLow
	case FileCategoryMarkup:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

func quoteDelimited(raw RawMatch) bool {
	span := raw.RawText
	start := raw.ValueOffset
	end := start + len(raw.ExtractedValue)

	if start == 0 && end == len(span) {
		return len(span) >= 2 && isQuote(span[0]) && span[len(span)-1] == span[0]
	}
	if start <= 0 || end >= len(span) {
		return false
	}
	return isQuote(span[start-1]) && span[start-1] == span[end]
}

func isQuote(b byte) bool {
	return b == '"' || b == '\'' || b == '`'
}

// suggestionInput is what every placeholder step sees
type suggestionInput struct {
	vocabulary *catalog.Vocabulary
	category   string
	value      string
	lowerValue string
	lowerSpan  string
}

// placeholderStep is one predicate/result pair of the suggestion cascade
type placeholderStep struct {
	name    string
	suggest func(in suggestionInput) (string, bool)
}

// placeholderCascade is tried in order; the last step always produces a name.
var placeholderCascade = []placeholderStep{
	{"direct-keyword", func(in suggestionInput) (string, bool) {
		return in.vocabulary.LookupDirect(in.lowerValue)
	}},
	{"category-keyword", func(in suggestionInput) (string, bool) {
		return in.vocabulary.LookupCascade(in.category, in.lowerValue, in.lowerSpan)
	}},
	{"url-shape", func(in suggestionInput) (string, bool) {
		return "{{BASE_URL}}", strings.HasPrefix(in.lowerValue, "http")
	}},
	{"ipv4-shape", func(in suggestionInput) (string, bool) {
		return "{{IP_ADDRESS}}", ipv4Shape.MatchString(in.value)
	}},
	{"email-shape", func(in suggestionInput) (string, bool) {
		return "{{EMAIL_ADDRESS}}", strings.Contains(in.value, "@") && strings.Contains(in.value, ".")
	}},
	{"constant-name", func(in suggestionInput) (string, bool) {
		if !isConstantName(in.value) {
			return "", false
		}
		return "{{" + in.value + "}}", true
	}},
	{"sanitized", func(in suggestionInput) (string, bool) {
		return "{{" + sanitizeName(in.value) + "}}", true
	}},
}

// SuggestPlaceholder returns the canonical placeholder for a value found by a category
// rule. span is the full matched text.
func SuggestPlaceholder(vocab *catalog.Vocabulary, category, value, span string) string {
	placeholder, _ := suggestPlaceholder(vocab, category, value, span)
	return placeholder
}

// suggestPlaceholder also reports which cascade step produced the name
func suggestPlaceholder(vocab *catalog.Vocabulary, category, value, span string) (string, string) {
	in := suggestionInput{
		vocabulary: vocab,
		category:   category,
		value:      value,
		lowerValue: strings.ToLower(value),
		lowerSpan:  strings.ToLower(span),
	}
	for _, step := range placeholderCascade {
		if placeholder, ok := step.suggest(in); ok {
			return placeholder, step.name
		}
	}
	// unreachable, the sanitized step always answers
	return "{{VALUE}}", "sanitized"
}

// isConstantName reports an upper-case identifier containing an underscore
func isConstantName(value string) bool {
	if !strings.Contains(value, "_") {
		return false
	}
	hasLetter := false
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return hasLetter
}

func sanitizeName(value string) string {
	name := strings.Trim(invalidName.ReplaceAllString(strings.ToUpper(value), "_"), "_")
	if name == "" {
		return "VALUE"
	}
	return name
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
