// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"strings"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/search"
	"github.com/kraklabs/cortex/pkg/store"
)

// candidateCap bounds the 5-tier pipeline's working set before final
// scoring and truncation, per spec §4.9 ("capped at 100 candidates").
const candidateCap = 100

// architecturalKindHints are Kinds business logic tends to live in;
// a pure data Struct or Enum rarely carries a domain rule, a Method on
// a *Service does.
var architecturalKindHints = map[store.Kind]float64{
	store.KindFunction: 0.1, store.KindMethod: 0.1, store.KindConstructor: 0.05,
}

// architecturalNameHints are naming conventions the AST-hint tier
// recognizes as likely business-logic carriers.
var architecturalNameHints = []string{
	"service", "handler", "controller", "usecase", "use_case", "manager",
	"processor", "workflow", "policy", "validator", "calculator",
}

type scoredCandidate struct {
	symbol     store.Symbol
	provenance cascade.Provenance
	score      float64
}

// scoreDomainCandidates runs the 5-tier business-logic scoring
// pipeline spec §4.9 describes for both explore(mode=logic) and
// find_logic: lexical recall first, then AST-hint and path-weight
// reranking, then an optional semantic expansion, then a graph-centrality
// boost, capped at candidateCap candidates throughout.
func (e *Engine) scoreDomainCandidates(ctx context.Context, workspaceID, domain string, minScore float64) ([]scoredCandidate, error) {
	tokens := search.Tokenize(domain)

	// Tier 1: lexical recall.
	hits, err := search.Search(ctx, e.st, workspaceID, domain, candidateCap)
	if err != nil {
		hits = nil // a text-search failure (e.g. wildcard timeout) just skips tier 1
	}

	byID := make(map[string]*scoredCandidate, len(hits))
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		byID[h.Symbol.ID] = &scoredCandidate{symbol: h.Symbol, provenance: cascade.ProvenanceDirect, score: normalizeBM25(h.Score)}
		order = append(order, h.Symbol.ID)
	}

	// Tier 2: AST architectural hints.
	for _, id := range order {
		c := byID[id]
		c.score += architecturalKindHints[c.symbol.Kind]
		lower := strings.ToLower(c.symbol.Name)
		for _, hint := range architecturalNameHints {
			if strings.Contains(lower, hint) {
				c.score += 0.15
				break
			}
		}
	}

	// Tier 3: path-relevance scoring (pkg/search's own weighting,
	// reused rather than reimplemented).
	for _, id := range order {
		c := byID[id]
		c.score *= search.PathWeight(c.symbol.FilePath, tokens)
	}

	// Tier 4: semantic expansion at the business-logic-find threshold,
	// merging in anything lexical recall missed.
	if e.semantic != nil && len(order) < candidateCap {
		semHits, serr := e.semantic.Search(ctx, workspaceID, domain, candidateCap-len(order), cascade.ThresholdBusinessLogicFind)
		if serr == nil {
			for _, h := range semHits {
				if _, exists := byID[h.SymbolID]; exists {
					continue
				}
				sym, gerr := e.st.SymbolByID(ctx, h.SymbolID)
				if gerr != nil {
					continue
				}
				byID[sym.ID] = &scoredCandidate{symbol: sym, provenance: cascade.ProvenanceSemantic, score: h.Score * search.PathWeight(sym.FilePath, tokens)}
				order = append(order, sym.ID)
			}
		}
	}

	if len(order) > candidateCap {
		order = order[:candidateCap]
	}

	// Tier 5: graph centrality — symbols many others call into read as
	// more central to the domain's behavior than leaf helpers.
	ids := make([]string, len(order))
	copy(ids, order)
	centrality, err := e.st.RelationshipsToBatch(ctx, ids, nil)
	if err == nil {
		inDegree := map[string]int{}
		for _, rel := range centrality {
			inDegree[rel.ToSymbolID]++
		}
		maxDegree := 1
		for _, d := range inDegree {
			if d > maxDegree {
				maxDegree = d
			}
		}
		for _, id := range order {
			c := byID[id]
			c.score += 0.2 * float64(inDegree[id]) / float64(maxDegree)
		}
	}

	out := make([]scoredCandidate, 0, len(order))
	for _, id := range order {
		c := *byID[id]
		if c.score >= minScore {
			out = append(out, c)
		}
	}
	sortCandidatesByScore(out)
	return out, nil
}

func sortCandidatesByScore(cs []scoredCandidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].score > cs[j-1].score; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

// normalizeBM25 maps SQLite FTS5's bm25() output (negative, lower is
// better) onto a positive [0,1]-ish scale so it composes additively
// with the other tiers' scores.
func normalizeBM25(rank float64) float64 {
	if rank >= 0 {
		return 0
	}
	score := -rank / (1 - rank)
	if score > 1 {
		return 1
	}
	return score
}
