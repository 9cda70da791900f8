// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeSplitsIdentifiersAndDropsStopWords(t *testing.T) {
	got := Tokenize("the parseInput function for HTTPServer")
	assert.Contains(t, got, "parse")
	assert.Contains(t, got, "input")
	assert.Contains(t, got, "http")
	assert.Contains(t, got, "server")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "for")
}

func TestTokenizeEmptyQuery(t *testing.T) {
	assert.Empty(t, Tokenize("   "))
}

func TestBuildMatchQueryModes(t *testing.T) {
	tokens := []string{"parse", "input"}
	assert.Equal(t, `"parse" "input"`, BuildMatchQuery(tokens, ModeExact))
	assert.Equal(t, `"parse"* AND "input"*`, BuildMatchQuery(tokens, ModePrefix))
	assert.Equal(t, `"parse" OR "input"`, BuildMatchQuery(tokens, ModeAny))
}

func TestBuildMatchQueryEmptyTokens(t *testing.T) {
	assert.Equal(t, "", BuildMatchQuery(nil, ModeExact))
}

func TestQuoteFTS5EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"foo""bar"`, quoteFTS5(`foo"bar`))
}
