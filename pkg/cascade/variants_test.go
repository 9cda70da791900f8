// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantsCamelToOthers(t *testing.T) {
	got := Variants("parseInput")
	assert.Contains(t, got, "ParseInput")
	assert.Contains(t, got, "parse_input")
	assert.Contains(t, got, "PARSE_INPUT")
	assert.NotContains(t, got, "parseInput")
}

func TestVariantsSnakeToOthers(t *testing.T) {
	got := Variants("parse_input")
	assert.Contains(t, got, "parseInput")
	assert.Contains(t, got, "ParseInput")
	assert.Contains(t, got, "PARSE_INPUT")
}

func TestVariantsHandlesAcronyms(t *testing.T) {
	got := Variants("HTTPServer")
	assert.Contains(t, got, "http_server")
	assert.Contains(t, got, "httpServer")
}

func TestVariantsEmptyForEmptyInput(t *testing.T) {
	assert.Nil(t, Variants(""))
}

func TestRankSuggestionsOrdersByDistance(t *testing.T) {
	got := RankSuggestions("Helper", []string{"Unrelated", "Helpers", "Help"}, 2)
	require := assert.New(t)
	require.Len(got, 2)
	require.Equal("Helpers", got[0])
	require.Equal("Help", got[1])
}
