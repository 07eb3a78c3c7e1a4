package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`^\{\{[A-Za-z0-9_]+\}\}$`)

// KeywordPlaceholder maps a lower-case keyword to a canonical placeholder.
type KeywordPlaceholder struct {
	Keyword     string `yaml:"keyword" json:"keyword"`
	Placeholder string `yaml:"placeholder" json:"placeholder"`
}

// KeywordRule suggests Placeholder when every keyword is present. An empty keyword list
// always matches.
type KeywordRule struct {
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Placeholder string   `yaml:"placeholder" json:"placeholder"`
}

func (r KeywordRule) matches(haystack string) bool {
	for _, kw := range r.Keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}

// Vocabulary is the immutable PlaceholderVocabulary.
type Vocabulary struct {
	direct      []KeywordPlaceholder
	cascades    map[string][]KeywordRule
	fingerprint string
}

// NewVocabulary validates and copies the given tables. Keywords are lower-cased so that
// lookups can run against lower-cased values.
func NewVocabulary(direct []KeywordPlaceholder, cascades map[string][]KeywordRule) (*Vocabulary, error) {
	v := &Vocabulary{
		direct:   make([]KeywordPlaceholder, 0, len(direct)),
		cascades: make(map[string][]KeywordRule, len(cascades)),
	}

	for _, entry := range direct {
		kw := strings.ToLower(strings.TrimSpace(entry.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("direct entry for %s has an empty keyword", entry.Placeholder)
		}
		if !placeholderPattern.MatchString(entry.Placeholder) {
			return nil, fmt.Errorf("%w: %q for keyword %q", ErrInvalidPlaceholder, entry.Placeholder, kw)
		}
		v.direct = append(v.direct, KeywordPlaceholder{Keyword: kw, Placeholder: entry.Placeholder})
	}

	for category, rules := range cascades {
		copied := make([]KeywordRule, 0, len(rules))
		for _, rule := range rules {
			if !placeholderPattern.MatchString(rule.Placeholder) {
				return nil, fmt.Errorf("%w: %q in category %q", ErrInvalidPlaceholder, rule.Placeholder, category)
			}
			kws := make([]string, 0, len(rule.Keywords))
			for _, kw := range rule.Keywords {
				kws = append(kws, strings.ToLower(kw))
			}
			copied = append(copied, KeywordRule{Keywords: kws, Placeholder: rule.Placeholder})
		}
		v.cascades[category] = copied
	}

	fp, err := fingerprint(struct {
		Direct   []KeywordPlaceholder     `json:"direct"`
		Cascades map[string][]KeywordRule `json:"cascades"`
	}{v.direct, v.cascades})
	if err != nil {
		return nil, err
	}
	v.fingerprint = fp

	return v, nil
}

// LookupDirect returns the placeholder of the first direct entry whose keyword occurs in
// the lower-cased value.
func (v *Vocabulary) LookupDirect(lowerValue string) (string, bool) {
	for _, entry := range v.direct {
		if strings.Contains(lowerValue, entry.Keyword) {
			return entry.Placeholder, true
		}
	}
	return "", false
}

// LookupCascade walks the category table against the extracted value first and then
// against the full matched span, so that key names which sit outside the capture group
// (timeout = 30) still select a specific placeholder.
func (v *Vocabulary) LookupCascade(category, lowerValue, lowerSpan string) (string, bool) {
	rules := v.cascades[category]
	for _, haystack := range []string{lowerValue, lowerSpan} {
		for _, rule := range rules {
			if rule.matches(haystack) {
				return rule.Placeholder, true
			}
		}
	}
	return "", false
}

// Direct returns a copy of the direct table.
func (v *Vocabulary) Direct() []KeywordPlaceholder {
	out := make([]KeywordPlaceholder, len(v.direct))
	copy(out, v.direct)
	return out
}

// Cascade returns a copy of the keyword table for one category.
func (v *Vocabulary) Cascade(category string) []KeywordRule {
	out := make([]KeywordRule, len(v.cascades[category]))
	copy(out, v.cascades[category])
	return out
}

// Fingerprint identifies the vocabulary content.
func (v *Vocabulary) Fingerprint() string {
	return v.fingerprint
}
