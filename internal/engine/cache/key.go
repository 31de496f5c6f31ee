package cache

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Key fields are joined with control characters that never appear in
// normalized field values: escapeField rewrites any occurrence inside a
// value, so distinct field vectors can never produce the same key.
const (
	fieldSep = "\x1f" // separates top-level fields
	itemSep  = "\x1e" // separates data-source names within one field
)

// LanguageAny is the sentinel for requests that do not constrain language.
const LanguageAny = "any"

// KeyParams are the request fields that participate in the cache
// fingerprint. Two requests that are field-wise identical after
// normalization always map to the same key.
type KeyParams struct {
	Query         string
	DataSources   []string
	Limit         int
	Offset        int
	MinConfidence float64
	Language      string
}

// BuildKey maps a request to its canonical cache key.
//
// Normalization, in order: Query is lowercased, trimmed, and inner
// whitespace runs collapse to single spaces; DataSources are sorted
// lexicographically and de-duplicated; MinConfidence is rounded to two
// decimal places; an absent Language becomes LanguageAny, a present one is
// canonicalized to its BCP-47 base tag.
func BuildKey(p KeyParams) string {
	fields := []string{
		escapeField(normalizeQuery(p.Query)),
		joinSources(p.DataSources),
		strconv.Itoa(p.Limit),
		strconv.Itoa(p.Offset),
		strconv.FormatFloat(roundConfidence(p.MinConfidence), 'f', 2, 64),
		escapeField(normalizeLanguage(p.Language)),
	}
	return strings.Join(fields, fieldSep)
}

// KeyForQuery builds the fingerprint for a search query. The query must
// already be normalized for defaults (limit, min confidence).
func KeyForQuery(query, lang string, sources []string, limit, offset int, minConfidence float64) string {
	return BuildKey(KeyParams{
		Query:         query,
		DataSources:   sources,
		Limit:         limit,
		Offset:        offset,
		MinConfidence: minConfidence,
		Language:      lang,
	})
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func joinSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	escaped := make([]string, len(sorted))
	for i, s := range sorted {
		escaped[i] = escapeField(s)
	}
	return strings.Join(escaped, itemSep)
}

func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return LanguageAny
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}

func roundConfidence(v float64) float64 {
	return math.Round(v*100) / 100
}

// escapeField rewrites separator characters so they cannot shift field
// boundaries. Backslash doubles first, making the mapping injective.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, fieldSep, `\F`)
	return strings.ReplaceAll(s, itemSep, `\I`)
}
