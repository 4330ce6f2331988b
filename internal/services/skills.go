package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"alfredoptarigan/resume-matcher/internal/logger"
)

const (
	nerMinTextLength = 50
	nerWindow        = 1000
)

// SkillExtractor finds taxonomy skills mentioned in free text.
type SkillExtractor interface {
	Extract(ctx context.Context, text string) []string
}

type skillExtractor struct {
	taxonomy   *Taxonomy
	recognizer EntityRecognizer
	log        *slog.Logger
}

// NewSkillExtractor builds an extractor over taxonomy. recognizer may be nil,
// in which case only dictionary matching is used.
func NewSkillExtractor(taxonomy *Taxonomy, recognizer EntityRecognizer, log *slog.Logger) SkillExtractor {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &skillExtractor{
		taxonomy:   taxonomy,
		recognizer: recognizer,
		log:        log.With("component", "skill_extractor"),
	}
}

// Extract implements SkillExtractor. The result is lowercase, deduplicated
// and sorted.
func (s *skillExtractor) Extract(ctx context.Context, text string) []string {
	lower := strings.ToLower(text)
	found := make(map[string]struct{})

	for _, term := range s.taxonomy.Terms() {
		if containsWholeWord(lower, term) {
			found[term] = struct{}{}
		}
	}

	if s.recognizer != nil && utf8.RuneCountInString(text) > nerMinTextLength {
		for _, entity := range s.recognizeEntities(ctx, text) {
			found[entity] = struct{}{}
		}
	}

	skills := make([]string, 0, len(found))
	for skill := range found {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	return skills
}

func (s *skillExtractor) recognizeEntities(ctx context.Context, text string) []string {
	entities, err := s.recognizer.Recognize(ctx, truncateRunes(text, nerWindow))
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("entity recognition failed", "error", err)
		return nil
	}

	var out []string
	for _, e := range entities {
		if e.Label != EntityOrg && e.Label != EntityProduct {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(e.Text))
		if name != "" && s.taxonomy.ContainsAnyTerm(name) {
			out = append(out, name)
		}
	}
	return out
}

// containsWholeWord reports whether term occurs in text with no word
// character (letter, digit, underscore) directly before or after it.
func containsWholeWord(text, term string) bool {
	if term == "" {
		return false
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
