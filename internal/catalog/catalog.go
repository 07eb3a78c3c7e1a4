package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// DefaultBaseWeight is used for categories that do not declare a weight.
const DefaultBaseWeight = 50.0

// Category is a named group of match rules targeting one kind of configuration literal.
//
// BaseWeight is the starting confidence for the category's matches. Zero means unset
// and is replaced by DefaultBaseWeight, so an explicit base_weight of 0 also yields 50;
// use a small positive weight such as 1 for a near-silent category.
type Category struct {
	Name       string   `yaml:"name" json:"name"`
	Patterns   []string `yaml:"patterns" json:"patterns"`
	BaseWeight float64  `yaml:"base_weight" json:"base_weight"`
}

// Rule is a compiled pattern belonging to a category.
type Rule struct {
	Category string
	Index    int
	Source   string
	Pattern  *regexp.Regexp
}

// HasGroup reports whether the rule extracts a capture group rather than the full span.
func (r Rule) HasGroup() bool {
	return r.Pattern.NumSubexp() > 0
}

// CompiledCategory is a category together with the rules that compiled successfully.
type CompiledCategory struct {
	Name       string
	BaseWeight float64
	Rules      []Rule
}

// Catalog is the immutable, compiled PatternCatalog.
type Catalog struct {
	categories  []CompiledCategory
	byName      map[string]int
	warnings    []*RuleError
	fingerprint string
}

// Compile builds a Catalog from declarative categories. Rules are compiled
// case-insensitively with multi-line anchors. A rule that fails to compile is skipped and
// reported in the returned warnings; compilation only fails as a whole when nothing usable
// is left.
func Compile(categories []Category) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]int, len(categories)),
	}

	ruleCount := 0
	for _, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			c.warnings = append(c.warnings, &RuleError{Category: cat.Name, Index: -1, Err: fmt.Errorf("empty category name")})
			continue
		}
		if _, exists := c.byName[name]; exists {
			c.warnings = append(c.warnings, &RuleError{Category: name, Index: -1, Err: ErrDuplicateCategory})
			continue
		}

		weight := cat.BaseWeight
		switch {
		case weight == 0:
			weight = DefaultBaseWeight
		case weight < 0 || weight > 100:
			c.warnings = append(c.warnings, &RuleError{
				Category: name,
				Index:    -1,
				Err:      fmt.Errorf("%w: %g, using %g", ErrInvalidWeight, weight, DefaultBaseWeight),
			})
			weight = DefaultBaseWeight
		}

		compiled := CompiledCategory{Name: name, BaseWeight: weight}
		for i, src := range cat.Patterns {
			re, err := compileRule(src)
			if err != nil {
				c.warnings = append(c.warnings, &RuleError{Category: name, Index: i, Pattern: src, Err: err})
				continue
			}
			compiled.Rules = append(compiled.Rules, Rule{Category: name, Index: i, Source: src, Pattern: re})
		}
		ruleCount += len(compiled.Rules)

		c.byName[name] = len(c.categories)
		c.categories = append(c.categories, compiled)
	}

	if ruleCount == 0 {
		return nil, ErrEmptyCatalog
	}

	fp, err := fingerprint(categories)
	if err != nil {
		return nil, err
	}
	c.fingerprint = fp

	return c, nil
}

func compileRule(src string) (*regexp.Regexp, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile("(?im)" + src)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() > 1 {
		return nil, fmt.Errorf("pattern has %d capture groups, at most one is allowed", re.NumSubexp())
	}
	return re, nil
}

// Categories returns the compiled categories in declaration order.
func (c *Catalog) Categories() []CompiledCategory {
	return c.categories
}

// Lookup returns the named category.
func (c *Catalog) Lookup(name string) (CompiledCategory, bool) {
	i, ok := c.byName[name]
	if !ok {
		return CompiledCategory{}, false
	}
	return c.categories[i], true
}

// BaseWeight returns the base confidence weight of a category, or DefaultBaseWeight when
// the category is unknown.
func (c *Catalog) BaseWeight(name string) float64 {
	if cat, ok := c.Lookup(name); ok {
		return cat.BaseWeight
	}
	return DefaultBaseWeight
}

// RuleCount returns the number of usable rules across all categories.
func (c *Catalog) RuleCount() int {
	n := 0
	for _, cat := range c.categories {
		n += len(cat.Rules)
	}
	return n
}

// Warnings returns the configuration problems found while compiling.
func (c *Catalog) Warnings() []*RuleError {
	return c.warnings
}

// Fingerprint identifies the declarative content the catalog was compiled from.
func (c *Catalog) Fingerprint() string {
	return c.fingerprint
}

func fingerprint(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
