// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitRunner struct {
	calls [][]string
	runs  []func(args []string) (string, error)
}

func (f *fakeGitRunner) Run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	i := len(f.calls) - 1
	if i < len(f.runs) {
		return f.runs[i](args)
	}
	return "", nil
}

func TestHistoryParsesLineRangeLog(t *testing.T) {
	g := &fakeGitRunner{runs: []func(args []string) (string, error){
		func(args []string) (string, error) {
			return "abc1234|2024-01-15|Jane Doe|Fix edge case\n" +
				"def5678|2024-01-10|John Roe|Add handler\n", nil
		},
	}}

	entries, fellBack, err := History(context.Background(), g, "internal/auth/handler.go", 10, 40, 5)
	require.NoError(t, err)
	assert.False(t, fellBack)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc1234", entries[0].Hash)
	assert.Equal(t, "Jane Doe", entries[0].Author)
}

func TestHistoryFallsBackToFileWhenLineRangeLogFails(t *testing.T) {
	g := &fakeGitRunner{runs: []func(args []string) (string, error){
		func(args []string) (string, error) { return "", assertErr{} },
		func(args []string) (string, error) {
			return "abc1234|2024-01-15|Jane Doe|Rename file\n", nil
		},
	}}

	entries, fellBack, err := History(context.Background(), g, "internal/auth/handler.go", 10, 40, 5)
	require.NoError(t, err)
	assert.True(t, fellBack)
	require.Len(t, entries, 1)
}

type assertErr struct{}

func (assertErr) Error() string { return "line range unavailable" }

func TestBlameAggregatesByAuthor(t *testing.T) {
	porcelain := "abcdef1234567890abcdef1234567890abcdef12 10 10 1\n" +
		"author Jane Doe\n" +
		"\tfunc Handle() {\n" +
		"abcdef1234567890abcdef1234567890abcdef12 11 11 1\n" +
		"author Jane Doe\n" +
		"\treturn nil\n" +
		"1234567890abcdef1234567890abcdef12345678 12 12 1\n" +
		"author John Roe\n" +
		"\t}\n"

	g := &fakeGitRunner{runs: []func(args []string) (string, error){
		func(args []string) (string, error) { return porcelain, nil },
	}}

	authors, err := Blame(context.Background(), g, "internal/auth/handler.go", 10, 12)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "Jane Doe", authors[0].Name)
	assert.Equal(t, 2, authors[0].Lines)
	assert.InDelta(t, 66.66, authors[0].Percentage, 0.1)
	assert.Equal(t, "John Roe", authors[1].Name)
	assert.Equal(t, 1, authors[1].Lines)
}

func TestFindIntroductionReturnsNilWhenNotFound(t *testing.T) {
	g := &fakeGitRunner{runs: []func(args []string) (string, error){
		func(args []string) (string, error) { return "", nil },
	}}

	intro, err := FindIntroduction(context.Background(), g, "someUniquePattern", "")
	require.NoError(t, err)
	assert.Nil(t, intro)
}

func TestFindIntroductionParsesCommit(t *testing.T) {
	g := &fakeGitRunner{runs: []func(args []string) (string, error){
		func(args []string) (string, error) {
			return "abc1234def5678|2023-05-01|Jane Doe|Introduce retry logic\n", nil
		},
	}}

	intro, err := FindIntroduction(context.Background(), g, "retryWithBackoff", "internal/net")
	require.NoError(t, err)
	require.NotNil(t, intro)
	assert.Equal(t, "abc1234def5678", intro.Hash)
	assert.Equal(t, "Jane Doe", intro.Author)
}
