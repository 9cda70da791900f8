// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/store"
)

// wildcardTimeout bounds an FTS5 prefix/wildcard query, which can scan
// far more of the trigram-free FTS5 index than a fully-specified
// phrase match; a bare-word prefix search over a large workspace is the
// pathological case this guards against.
const wildcardTimeout = 5 * time.Second

// Result is one ranked search hit: the symbol, its blended score
// (BM25 rank folded with the path-relevance weight), and which FTS
// stage produced it.
type Result struct {
	Symbol store.Symbol
	Score  float64
	Mode   Mode
}

// Search runs the lexical cascade over workspaceID's symbols: an
// all-terms exact match first, then a prefix match, then an OR-of-tokens match,
// stopping at the first stage that yields results. Each candidate's
// BM25 rank (negative, better = more negative) is combined with its
// file path's relevance weight so test/vendor/doc hits sort below
// source hits even when they match just as strongly lexically.
func Search(ctx context.Context, st *store.Store, workspaceID, query string, limit int) ([]Result, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	for _, mode := range []Mode{ModeExact, ModePrefix, ModeAny} {
		matchQuery := BuildMatchQuery(tokens, mode)
		if matchQuery == "" {
			continue
		}

		queryCtx := ctx
		if hasWildcard(matchQuery) {
			var cancel context.CancelFunc
			queryCtx, cancel = context.WithTimeout(ctx, wildcardTimeout)
			defer cancel()
		}

		hits, err := st.SearchSymbolsFTS(queryCtx, workspaceID, matchQuery, limit*4)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, cerrors.E(cerrors.Timeout, "search.Search", err)
			}
			return nil, err
		}
		if len(hits) == 0 {
			continue
		}

		results := make([]Result, len(hits))
		for i, h := range hits {
			weight := PathWeight(h.Symbol.FilePath, tokens)
			// BM25 rank is negative and unbounded; weight it multiplicatively
			// so a worse (less negative) rank times a lower path weight still
			// sorts below a strong rank times full weight.
			results[i] = Result{Symbol: h.Symbol, Score: h.Rank * weight, Mode: mode}
		}
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
		if len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	}

	return nil, nil
}

// truncationSchedule is the progressive token-budget reduction applied
// to a result set's doc/signature text when the full response would
// overflow the caller's budget: each step keeps that fraction of each
// text field's words, tried in order until the estimated total fits.
var truncationSchedule = []float64{1.0, 0.75, 0.5, 0.3, 0.2, 0.1, 0.05}

// EstimateTokens approximates a result set's rendered size in tokens by
// counting whitespace-separated words across every symbol's signature
// and doc text — consistent with the same word-based approximation
// pkg/semantic uses for its own token budget.
func EstimateTokens(results []Result) int {
	total := 0
	for _, r := range results {
		total += len(strings.Fields(r.Symbol.Signature)) + len(strings.Fields(r.Symbol.Doc))
	}
	return total
}

// FitToBudget truncates each result's signature/doc text by the first
// schedule step that brings the estimated total at or under maxTokens.
// It returns the (possibly truncated) results and whether truncation
// was applied, so the caller can set the wire response's `truncated`
// flag accurately.
func FitToBudget(results []Result, maxTokens int) ([]Result, bool) {
	if maxTokens <= 0 || EstimateTokens(results) <= maxTokens {
		return results, false
	}

	for _, fraction := range truncationSchedule {
		candidate := truncateResults(results, fraction)
		if EstimateTokens(candidate) <= maxTokens {
			return candidate, true
		}
	}
	// Even the most aggressive step overflows (e.g. a single huge doc
	// comment) — return it anyway; the caller's own result-count cap is
	// the backstop, not infinite truncation.
	return truncateResults(results, truncationSchedule[len(truncationSchedule)-1]), true
}

func truncateResults(results []Result, fraction float64) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r
		out[i].Symbol.Signature = truncateWords(r.Symbol.Signature, fraction)
		out[i].Symbol.Doc = truncateWords(r.Symbol.Doc, fraction)
	}
	return out
}

func truncateWords(text string, fraction float64) string {
	words := strings.Fields(text)
	keep := int(float64(len(words)) * fraction)
	if keep >= len(words) {
		return text
	}
	if keep <= 0 {
		return ""
	}
	return strings.Join(words[:keep], " ")
}
