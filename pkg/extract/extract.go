// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract implements the uniform extraction contract: one
// stateless adapter per language, dispatched by the manager's registry,
// each producing an ExtractionResult over the same Symbol/Relationship/
// Identifier/TypeInfo shape regardless of source language.
package extract

import "github.com/kraklabs/cortex/pkg/store"

// PendingRel is a relationship whose target has not yet been extracted;
// it carries a name instead of a resolved id (spec §3/§9).
type PendingRel struct {
	FromSymbolID string
	ToName       string
	Kind         store.RelKind
	Confidence   float64
	Line         int
}

// ExtractionResult is the uniform output of every grammar adapter.
type ExtractionResult struct {
	File         store.File
	Symbols      []store.Symbol
	Relationships []store.Relationship // only edges already resolvable within this file
	Pending      []PendingRel          // cross-file edges awaiting the resolution pass
	Identifiers  []store.Identifier
	TypeInfo     []store.TypeInfo
	PackageName  string // language package/module name, used for cross-file call resolution
	Imports      []ImportRef
}

// ImportRef records one import statement for the resolver's
// import-path-to-local-alias index.
type ImportRef struct {
	Path  string
	Alias string
	Line  int
}

// Extractor is the contract every language adapter implements. It must
// be stateless between calls: no adapter instance may carry data from
// one file to the next.
type Extractor interface {
	// Language returns the adapter's language tag (e.g. "go", "python").
	Language() string
	// Extract parses src (the full file content) and produces symbols,
	// relationships, identifiers and type info scoped to path. It never
	// fails outright: on malformed input it returns a best-effort
	// partial result.
	Extract(workspaceID, path string, src []byte) (*ExtractionResult, error)
}
