// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cascade implements the exact -> naming-variant -> semantic
// query engine (spec §4.6): every higher-level navigation operation
// resolves its starting symbol through this one pipeline so provenance
// (Direct/NamingVariant/Semantic) is reported consistently everywhere.
package cascade

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Variants generates the cross-language naming-variant forms of name:
// camelCase, snake_case, PascalCase, and UPPER_SNAKE_CASE. Duplicates
// and the input itself are excluded from the result.
func Variants(name string) []string {
	words := SplitWords(name)
	if len(words) == 0 {
		return nil
	}

	seen := map[string]bool{name: true}
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(toCamelCase(words))
	add(toPascalCase(words))
	add(toSnakeCase(words))
	add(toUpperSnakeCase(words))

	return out
}

// SplitWords breaks an identifier into its constituent words regardless
// of its current convention: camelCase, PascalCase, snake_case, and
// kebab-case are all recognized. Exported so pkg/search can reuse the
// same code-aware tokenization for free-text query splitting.
func SplitWords(name string) []string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			// Start of a new word, unless preceded by another uppercase
			// letter that is itself followed by a lowercase letter
			// (handles "HTTPServer" -> "HTTP", "Server").
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func toCamelCase(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func toPascalCase(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func toSnakeCase(words []string) string {
	return strings.Join(words, "_")
}

func toUpperSnakeCase(words []string) string {
	upper := make([]string, len(words))
	for i, w := range words {
		upper[i] = strings.ToUpper(w)
	}
	return strings.Join(upper, "_")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// RankSuggestions orders candidate names by Levenshtein distance to
// query, ascending — used when a naming-variant miss should still
// surface the closest few names to the caller instead of nothing
// (suggestion ranking, not a CASCADE stage in its own right).
func RankSuggestions(query string, candidates []string, limit int) []string {
	type scored struct {
		name string
		dist int
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredList = append(scoredList, scored{name: c, dist: levenshtein.ComputeDistance(query, c)})
	}
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && scoredList[j].dist < scoredList[j-1].dist; j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}
	if limit > 0 && limit < len(scoredList) {
		scoredList = scoredList[:limit]
	}
	out := make([]string, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.name
	}
	return out
}
