package engine

import (
	"sort"
	"unicode/utf8"

	"github.com/raaihank/literal-sentinel/internal/catalog"
)

// Match applies every catalog rule to the document. Each rule scans left to right for
// non-overlapping matches; categories are scanned independently, so one span may be
// reported once per category that recognises it. Results are ordered by category, then
// rule, then position.
func Match(doc Document, cat *catalog.Catalog) []RawMatch {
	if doc.Content == "" {
		return nil
	}

	lines := newLineIndex(doc.Content)
	var matches []RawMatch

	for _, category := range cat.Categories() {
		for _, rule := range category.Rules {
			for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(doc.Content, -1) {
				start, end := loc[0], loc[1]
				if start == end {
					continue
				}

				raw := doc.Content[start:end]
				value, offset := raw, 0
				if len(loc) >= 4 && loc[2] >= 0 {
					value = doc.Content[loc[2]:loc[3]]
					offset = loc[2] - start
				}

				line, col := lines.position(doc.Content, start)
				matches = append(matches, RawMatch{
					DocumentPath:   doc.Path,
					LineNumber:     line,
					ColumnNumber:   col,
					Category:       category.Name,
					RuleIndex:      rule.Index,
					RawText:        raw,
					ExtractedValue: value,
					ValueOffset:    offset,
				})
			}
		}
	}

	return matches
}

// lineIndex holds the byte offset at which every line starts
type lineIndex []int

func newLineIndex(content string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// position returns the 1-based line and rune column of a byte offset
func (l lineIndex) position(content string, offset int) (int, int) {
	line := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
	col := utf8.RuneCountInString(content[l[line]:offset]) + 1
	return line + 1, col
}
