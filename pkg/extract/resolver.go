// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/store"
)

// Resolver runs the cross-file stitching pass that turns pending
// relationships (emitted by an adapter with only a callee/base name,
// never a target symbol id) into concrete edges once the target has
// been extracted. It runs after every ingest batch, not per-file,
// since the target symbol may live in a file that has not been
// extracted yet.
type Resolver struct {
	st *store.Store
}

func NewResolver(st *store.Store) *Resolver {
	return &Resolver{st: st}
}

// ResolveOutcome summarizes one sweep for logging (pkg/extract/indexlog.go).
type ResolveOutcome struct {
	Considered int
	Resolved   int
	Ambiguous  int
	Variant    int
}

// Resolve stitches every pending relationship in the workspace that it
// can. Target names are first looked up exactly in one batch; names with
// no exact match are retried with their CASCADE naming variants (spec
// §4.6), so a call spelled new_http_client can reach a symbol named
// NewHttpClient. When several candidates match, the one in the caller's
// own file is chosen; otherwise the edge stays pending and is counted as
// ambiguous. Edges with no candidate stay pending.
func (r *Resolver) Resolve(ctx context.Context, workspaceID string) (ResolveOutcome, error) {
	var out ResolveOutcome

	pending, err := r.st.PendingRelationships(ctx, workspaceID)
	if err != nil {
		return out, err
	}
	if len(pending) == 0 {
		return out, nil
	}

	names := make([]string, 0, len(pending))
	seen := map[string]bool{}
	for _, p := range pending {
		if !seen[p.ToName] {
			seen[p.ToName] = true
			names = append(names, p.ToName)
		}
	}

	byName, err := r.st.SymbolsByNamesBatch(ctx, workspaceID, names)
	if err != nil {
		return out, err
	}

	// Collect variant candidates only for names that missed on the
	// first pass, and only query the store once for that expanded set.
	var variantNames []string
	variantOf := map[string]string{} // variant spelling -> original to_name
	for _, name := range names {
		if len(byName[name]) > 0 {
			continue
		}
		for _, v := range cascade.Variants(name) {
			if !seen[v] {
				variantNames = append(variantNames, v)
				variantOf[v] = name
			}
		}
	}
	var byVariant map[string][]store.Symbol
	if len(variantNames) > 0 {
		byVariant, err = r.st.SymbolsByNamesBatch(ctx, workspaceID, variantNames)
		if err != nil {
			return out, err
		}
	}

	for _, p := range pending {
		out.Considered++
		candidates := byName[p.ToName]
		matchedVariant := false
		if len(candidates) == 0 {
			for variant, original := range variantOf {
				if original != p.ToName {
					continue
				}
				if cs := byVariant[variant]; len(cs) == 1 {
					candidates = cs
					matchedVariant = true
					break
				} else if len(cs) > 1 {
					candidates = cs
					matchedVariant = true
					break
				}
			}
		}

		switch len(candidates) {
		case 0:
			continue
		case 1:
			if err := r.st.StitchRelationship(ctx, p.ID, candidates[0].ID); err != nil {
				return out, err
			}
			out.Resolved++
			if matchedVariant {
				out.Variant++
			}
		default:
			// Several same-named symbols across files/packages: prefer
			// one in the same file as the caller's relationship record
			// when present, else leave pending rather than guess.
			if target, ok := pickSameFile(p, candidates); ok {
				if err := r.st.StitchRelationship(ctx, p.ID, target.ID); err != nil {
					return out, err
				}
				out.Resolved++
				continue
			}
			out.Ambiguous++
		}
	}

	return out, nil
}

func pickSameFile(p store.Relationship, candidates []store.Symbol) (store.Symbol, bool) {
	for _, c := range candidates {
		if c.FilePath == p.FilePath {
			return c, true
		}
	}
	return store.Symbol{}, false
}
