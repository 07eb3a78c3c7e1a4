package privacy

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/config"
	"github.com/raaihank/literal-sentinel/internal/engine"
	"github.com/raaihank/literal-sentinel/internal/logger"
)

// Redactor masks sensitive literals before results leave the process
type Redactor struct {
	levels      map[engine.SecurityLevel]bool
	replacement string
	logger      *logger.Logger
}

// New creates a redactor for the configured security levels
func New(cfg config.PrivacyConfig, log *logger.Logger) (*Redactor, error) {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Redactor{
		levels:      make(map[engine.SecurityLevel]bool),
		replacement: cfg.Replacement,
		logger:      log,
	}
	if r.replacement == "" {
		r.replacement = DefaultReplacement
	}

	for _, level := range cfg.Levels {
		switch sl := engine.SecurityLevel(strings.ToUpper(level)); sl {
		case engine.SecurityPublic, engine.SecurityInternal, engine.SecurityConfidential, engine.SecuritySecret:
			r.levels[sl] = true
		default:
			return nil, fmt.Errorf("unknown security level: %s", level)
		}
	}

	log.Info("Redactor initialized",
		zap.Strings("levels", cfg.Levels),
		zap.String("replacement", r.replacement),
	)
	return r, nil
}

// Redacts reports whether candidates of the level are masked
func (r *Redactor) Redacts(level engine.SecurityLevel) bool {
	return r.levels[level]
}

// RedactCandidate masks the literal of a single candidate when its level is redacted
func (r *Redactor) RedactCandidate(c engine.Candidate) (engine.Candidate, bool) {
	if !r.levels[c.SecurityLevel] {
		return c, false
	}
	if c.ExtractedValue != "" {
		c.OriginalValue = strings.ReplaceAll(c.OriginalValue, c.ExtractedValue, r.replacement)
	}
	c.ExtractedValue = r.replacement
	return c, true
}

// RedactResult returns a copy of result with sensitive literals masked in the
// candidate list and in every batch. The input is not modified.
func (r *Redactor) RedactResult(result *engine.AggregateResult) RedactResult {
	if result == nil {
		return RedactResult{Findings: []Finding{}}
	}

	counts := make(map[engine.SecurityLevel]int)
	masked := *result
	masked.Candidates = r.redactAll(result.Candidates, counts)

	// batches hold the same candidates again; count them only once
	discard := make(map[engine.SecurityLevel]int)
	masked.Batches = engine.Batches{
		SecurityPriority: r.redactAll(result.Batches.SecurityPriority, discard),
		Immediate:        r.redactAll(result.Batches.Immediate, discard),
		BatchConversion:  r.redactAll(result.Batches.BatchConversion, discard),
		ManualReview:     r.redactAll(result.Batches.ManualReview, discard),
	}

	findings := make([]Finding, 0, len(counts))
	for level, count := range counts {
		findings = append(findings, Finding{SecurityLevel: level, Count: count})
	}
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].SecurityLevel < findings[j].SecurityLevel
	})

	if len(findings) > 0 {
		r.logger.Debug("Sensitive literals masked", zap.Any("findings", findings))
	}

	return RedactResult{Result: &masked, Findings: findings}
}

func (r *Redactor) redactAll(candidates []engine.Candidate, counts map[engine.SecurityLevel]int) []engine.Candidate {
	if candidates == nil {
		return nil
	}
	out := make([]engine.Candidate, len(candidates))
	for i, c := range candidates {
		redacted, ok := r.RedactCandidate(c)
		if ok {
			counts[c.SecurityLevel]++
			r.logger.Debug("Literal masked",
				zap.String("path", c.DocumentPath),
				zap.Int("line", c.LineNumber),
				zap.String("security_level", string(c.SecurityLevel)),
				logger.Literal("value", c.ExtractedValue, c.SecurityLevel == engine.SecuritySecret),
			)
		}
		out[i] = redacted
	}
	return out
}

type span struct {
	start, end  int
	line        int
	value       string
	placeholder string
}

// Rewrite replaces each candidate's literal in doc with its suggested placeholder.
// Candidates are located by line, rune column and matched text; when several
// candidates cover the same bytes the highest-confidence one wins. Literals in
// mapping key position are never replaced.
func Rewrite(doc engine.Document, candidates []engine.Candidate) RewriteResult {
	lineStarts := []int{0}
	for i := 0; i < len(doc.Content); i++ {
		if doc.Content[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	ordered := make([]engine.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.DocumentPath == doc.Path {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ConfidenceScore > ordered[j].ConfidenceScore
	})

	result := RewriteResult{Original: doc.Content, Replacements: []Replacement{}}
	var accepted []span
	for _, c := range ordered {
		s, ok := locate(doc.Content, lineStarts, c)
		if !ok || overlaps(accepted, s) {
			result.Skipped++
			continue
		}
		accepted = append(accepted, s)
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	var b strings.Builder
	b.Grow(len(doc.Content))
	prev := 0
	for _, s := range accepted {
		b.WriteString(doc.Content[prev:s.start])
		b.WriteString(s.placeholder)
		prev = s.end
		result.Replacements = append(result.Replacements, Replacement{
			LineNumber:  s.line,
			Value:       s.value,
			Placeholder: s.placeholder,
		})
	}
	b.WriteString(doc.Content[prev:])
	result.MaskedText = b.String()

	return result
}

// locate finds the byte range of a candidate's extracted value in content
func locate(content string, lineStarts []int, c engine.Candidate) (span, bool) {
	if c.LineNumber < 1 || c.LineNumber > len(lineStarts) || c.ExtractedValue == "" || c.SuggestedPlaceholder == "" {
		return span{}, false
	}

	offset := lineStarts[c.LineNumber-1]
	for col := 1; col < c.ColumnNumber; col++ {
		if offset >= len(content) {
			return span{}, false
		}
		_, size := utf8.DecodeRuneInString(content[offset:])
		offset += size
	}

	if !strings.HasPrefix(content[offset:], c.OriginalValue) {
		return span{}, false
	}
	inner := strings.LastIndex(c.OriginalValue, c.ExtractedValue)
	if inner < 0 {
		return span{}, false
	}

	start := offset + inner
	if isMappingKey(content, start+len(c.ExtractedValue)) {
		return span{}, false
	}
	return span{
		start:       start,
		end:         start + len(c.ExtractedValue),
		line:        c.LineNumber,
		value:       c.ExtractedValue,
		placeholder: c.SuggestedPlaceholder,
	}, true
}

// isMappingKey reports whether the literal ending at end is a JSON or YAML key,
// i.e. an optional closing quote and blanks are followed by a colon
func isMappingKey(content string, end int) bool {
	rest := content[end:]
	if rest != "" && (rest[0] == '"' || rest[0] == '\'') {
		rest = rest[1:]
	}
	rest = strings.TrimLeft(rest, " \t")
	return strings.HasPrefix(rest, ":")
}

func overlaps(accepted []span, s span) bool {
	for _, a := range accepted {
		if s.start < a.end && a.start < s.end {
			return true
		}
	}
	return false
}
