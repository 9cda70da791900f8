// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import "strings"

// Mode selects how tokens are combined into an FTS5 MATCH expression.
type Mode int

const (
	// ModeExact requires every token to appear as a whole term, ANDed
	// together; order and adjacency are not required.
	ModeExact Mode = iota
	// ModePrefix requires every token to appear as a prefix match,
	// ANDed together — used for "fast_goto"-style partial-name lookups.
	ModePrefix
	// ModeAny ORs every token — the widest net, used for the
	// business-logic discovery fallback before falling through to
	// semantic search.
	ModeAny
)

// quoteFTS5 escapes an FTS5 bareword token by wrapping it in double
// quotes and doubling any embedded quote, so a token containing FTS5
// syntax characters (like "-" or "*") is matched literally instead of
// being interpreted as query syntax.
func quoteFTS5(token string) string {
	escaped := strings.ReplaceAll(token, `"`, `""`)
	return `"` + escaped + `"`
}

// BuildMatchQuery turns tokens into an FTS5 MATCH expression per mode.
// An empty token list yields an empty string — callers must treat that
// as "no query to run" rather than passing it to MATCH (which errors
// on an empty expression).
func BuildMatchQuery(tokens []string, mode Mode) string {
	if len(tokens) == 0 {
		return ""
	}

	switch mode {
	case ModePrefix:
		parts := make([]string, len(tokens))
		for i, t := range tokens {
			parts[i] = quoteFTS5(t) + "*"
		}
		return strings.Join(parts, " AND ")
	case ModeAny:
		parts := make([]string, len(tokens))
		for i, t := range tokens {
			parts[i] = quoteFTS5(t)
		}
		return strings.Join(parts, " OR ")
	default: // ModeExact
		parts := make([]string, len(tokens))
		for i, t := range tokens {
			parts[i] = quoteFTS5(t)
		}
		return strings.Join(parts, " ")
	}
}

// hasWildcard reports whether query (a MATCH expression built by
// BuildMatchQuery) contains an FTS5 wildcard, used by the caller to decide
// whether the 5s slow-query timeout applies — a bare prefix/wildcard scan
// over a large corpus can be pathologically slow in SQLite FTS5 in a way
// a whole-term match is not.
func hasWildcard(query string) bool {
	return strings.ContainsAny(query, "*")
}
