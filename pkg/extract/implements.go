// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"strings"

	"github.com/kraklabs/cortex/pkg/store"
)

// ImplementsResolver discovers Go's structural (implicit) interface
// satisfaction: a struct implements an interface when it defines every
// method the interface requires, with no "implements" keyword to read
// off the syntax tree. It runs as a separate pass over the whole
// workspace rather than per-file, since a struct's methods are often
// spread across several files in the same package.
type ImplementsResolver struct {
	st *store.Store
}

func NewImplementsResolver(st *store.Store) *ImplementsResolver {
	return &ImplementsResolver{st: st}
}

// Resolve scans every Interface and Struct symbol in the workspace and
// emits an Implements relationship for every pair where the struct's
// method set is a superset of the interface's, matched by method name
// (receiver-qualified signatures are not compared, matching a Go
// compiler's name-and-arity check only loosely — false positives are
// rare in practice since same-named methods on unrelated types with
// different shapes are uncommon).
func (r *ImplementsResolver) Resolve(ctx context.Context, workspaceID string) (int, error) {
	ifaceRows, err := r.st.SymbolByKindBatch(ctx, workspaceID, store.KindInterface)
	if err != nil {
		return 0, err
	}
	if len(ifaceRows) == 0 {
		return 0, nil
	}

	methodRows, err := r.st.SymbolByKindBatch(ctx, workspaceID, store.KindMethod)
	if err != nil {
		return 0, err
	}
	structRows, err := r.st.SymbolByKindBatch(ctx, workspaceID, store.KindStruct)
	if err != nil {
		return 0, err
	}
	structByName := map[string]store.Symbol{}
	for _, s := range structRows {
		structByName[s.Name] = s
	}

	// receiver type name -> set of method names it defines
	byReceiver := map[string]map[string]bool{}
	for _, m := range methodRows {
		recv, name := splitQualified(m.QualifiedName)
		if recv == "" {
			continue
		}
		if byReceiver[recv] == nil {
			byReceiver[recv] = map[string]bool{}
		}
		byReceiver[recv][name] = true
	}

	// interface name -> required method names (child symbols with
	// Metadata["interface_method"] == "true", ParentID == interface id)
	required := map[string][]string{}
	ifaceIDByName := map[string]string{}
	for _, iface := range ifaceRows {
		ifaceIDByName[iface.Name] = iface.ID
	}
	for _, m := range methodRows {
		if m.Metadata["interface_method"] != "true" {
			continue
		}
		recv, name := splitQualified(m.QualifiedName)
		if recv == "" {
			continue
		}
		required[recv] = append(required[recv], name)
	}

	count := 0
	for ifaceName, methods := range required {
		if len(methods) == 0 {
			continue
		}
		ifaceID := ifaceIDByName[ifaceName]
		if ifaceID == "" {
			continue
		}
		for structName, structMethods := range byReceiver {
			if structName == ifaceName {
				continue
			}
			if hasAll(structMethods, methods) {
				structSym, ok := structByName[structName]
				if !ok {
					continue
				}
				structID := structSym.ID
				relID := store.RelationshipID(workspaceID, structID, ifaceID, store.RelImplements, 0)
				rel := store.Relationship{
					ID: relID, WorkspaceID: workspaceID, FromSymbolID: structID, ToSymbolID: ifaceID,
					Kind: store.RelImplements, Confidence: 0.75, FilePath: structSym.FilePath,
				}
				if err := r.st.UpsertRelationship(ctx, rel); err != nil {
					return count, err
				}
				count++
			}
		}
	}
	return count, nil
}

func splitQualified(qualified string) (recv, name string) {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

func hasAll(have map[string]bool, want []string) bool {
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

