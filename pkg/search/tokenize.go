// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search implements lexical (full-text) lookup over a
// workspace's symbols: code-aware tokenization, FTS5 query
// construction, a path-relevance scorer, and the progressive
// token-budget truncation used when a result set overflows the
// caller's response budget.
package search

import (
	"strings"
	"unicode"

	"github.com/kraklabs/cortex/pkg/cascade"
)

// stopWords are dropped from free-text queries before FTS matching;
// they carry no discriminative value and would otherwise force every
// symbol mentioning them into the candidate set.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "in": true,
	"for": true, "and": true, "or": true, "is": true, "that": true, "this": true,
}

// Tokenize splits query into lowercase, code-aware search tokens:
// identifiers are decomposed by camelCase/snake_case/kebab-case the
// same way naming-variant generation does, plain words are lowercased,
// and stop words and empty tokens are dropped.
func Tokenize(query string) []string {
	var tokens []string
	for _, field := range strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '(' || r == ')' || r == '.'
	}) {
		words := cascade.SplitWords(field)
		if len(words) == 0 {
			continue
		}
		for _, w := range words {
			if w == "" || stopWords[w] {
				continue
			}
			tokens = append(tokens, w)
		}
	}
	return tokens
}
