// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"strings"

	"github.com/kraklabs/cortex/pkg/store"
)

// FieldResolver links struct fields to the types they're declared with,
// so a call reached through an interface-typed field (c.logger.Info())
// can be widened at traversal time to every concrete type that
// satisfies the field's declared interface, instead of dead-ending on
// the field name alone. It runs after ImplementsResolver so the
// Implements edges it reads are already in place.
type FieldResolver struct {
	st *store.Store
}

func NewFieldResolver(st *store.Store) *FieldResolver {
	return &FieldResolver{st: st}
}

// Resolve walks every Field symbol's recorded field_type and, when that
// type names a symbol defined in the workspace, records a Uses edge
// from the owning struct to the field's type. When the field's type is
// itself an interface, it also records a Uses edge from the field
// straight to each concrete implementation, so the traversal layer can
// hop struct -> field -> implementation without re-deriving the
// implements index.
func (r *FieldResolver) Resolve(ctx context.Context, workspaceID string) (int, error) {
	fieldRows, err := r.st.SymbolByKindBatch(ctx, workspaceID, store.KindField)
	if err != nil {
		return 0, err
	}
	if len(fieldRows) == 0 {
		return 0, nil
	}

	typeNames := map[string]bool{}
	for _, f := range fieldRows {
		if t := baseTypeName(f.Metadata["field_type"]); t != "" {
			typeNames[t] = true
		}
	}
	names := make([]string, 0, len(typeNames))
	for t := range typeNames {
		names = append(names, t)
	}
	byName, err := r.st.SymbolsByNamesBatch(ctx, workspaceID, names)
	if err != nil {
		return 0, err
	}

	ifaces, err := r.st.SymbolByKindBatch(ctx, workspaceID, store.KindInterface)
	if err != nil {
		return 0, err
	}
	ifaceIDs := map[string]bool{}
	for _, i := range ifaces {
		ifaceIDs[i.ID] = true
	}

	count := 0
	for _, f := range fieldRows {
		typeName := baseTypeName(f.Metadata["field_type"])
		if typeName == "" || f.ParentID == "" {
			continue
		}
		targets := byName[typeName]
		if len(targets) != 1 {
			continue // ambiguous or unresolved type name, leave unlinked
		}
		target := targets[0]

		relID := store.RelationshipID(workspaceID, f.ParentID, target.ID, store.RelUses, f.StartLine)
		if err := r.st.UpsertRelationship(ctx, store.Relationship{
			ID: relID, WorkspaceID: workspaceID, FromSymbolID: f.ParentID, ToSymbolID: target.ID,
			Kind: store.RelUses, Confidence: 0.9, FilePath: f.FilePath, Line: f.StartLine,
		}); err != nil {
			return count, err
		}
		count++

		if ifaceIDs[target.ID] {
			impls, err := r.st.RelationshipsToBatch(ctx, []string{target.ID}, []store.RelKind{store.RelImplements})
			if err != nil {
				return count, err
			}
			for _, impl := range impls {
				bridgeID := store.RelationshipID(workspaceID, f.ID, impl.FromSymbolID, store.RelUses, f.StartLine)
				if err := r.st.UpsertRelationship(ctx, store.Relationship{
					ID: bridgeID, WorkspaceID: workspaceID, FromSymbolID: f.ID, ToSymbolID: impl.FromSymbolID,
					Kind: store.RelUses, Confidence: 0.7, FilePath: f.FilePath, Line: f.StartLine,
				}); err != nil {
					return count, err
				}
				count++
			}
		}
	}
	return count, nil
}

// baseTypeName strips one leading "*", then one leading "[]", then any
// package qualifier, leaving the type identifier a workspace symbol could
// be named after. Map and channel types are not unwrapped.
func baseTypeName(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "*")
	t = strings.TrimPrefix(t, "[]")
	if idx := strings.LastIndex(t, "."); idx >= 0 {
		t = t[idx+1:]
	}
	return t
}
