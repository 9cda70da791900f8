// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ops implements the operations exposed to a tool-calling
// agent: thin, typed compositions over pkg/search, pkg/cascade,
// pkg/traverse, and pkg/store. Every operation returns a Response with
// the same envelope (summary, payload, next_actions, token-budget
// status), matching spec §6's "Operation request/response" shape.
package ops

import (
	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/extract"
	"github.com/kraklabs/cortex/pkg/store"
)

// History is a symbol's optional git provenance: its line-range commit
// log and blame-aggregated authorship. Populated only by the history
// operation, and left nil by every other operation's records.
type History struct {
	Commits        []extract.CommitEntry `json:"commits"`
	FellBackToFile bool                  `json:"fell_back_to_file,omitempty"`
	Authors        []extract.BlameAuthor `json:"authors,omitempty"`
	IntroducedBy   *extract.Introduction `json:"introduced_by,omitempty"`
}

// SymbolRecord is the wire-format symbol record (spec §6): the fields
// an agent needs to locate and reason about a symbol without a second
// round trip.
type SymbolRecord struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Kind        store.Kind        `json:"kind"`
	Language    string            `json:"language"`
	FilePath    string            `json:"file_path"`
	StartLine   int               `json:"start_line"`
	StartColumn int               `json:"start_column"`
	EndLine     int               `json:"end_line"`
	EndColumn   int               `json:"end_column"`
	Signature   string            `json:"signature,omitempty"`
	Visibility  store.Visibility  `json:"visibility"`
	ParentID    string            `json:"parent_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	MatchType  cascade.Provenance `json:"match_type,omitempty"`
	Similarity float64            `json:"similarity,omitempty"`

	History *History `json:"history,omitempty"`
}

// ToRecord builds the wire record for a cascade match. language comes
// from the caller since a bare Symbol carries no language field of its
// own (it's implied by file extension, which pkg/ops resolves for each
// record).
func ToRecord(sym store.Symbol, language string, provenance cascade.Provenance, similarity float64) SymbolRecord {
	return SymbolRecord{
		ID: sym.ID, Name: sym.Name, Kind: sym.Kind, Language: language,
		FilePath: sym.FilePath, StartLine: sym.StartLine, EndLine: sym.EndLine,
		Signature: sym.Signature, Visibility: sym.Visibility, ParentID: sym.ParentID,
		Metadata: sym.Metadata, MatchType: provenance, Similarity: similarity,
	}
}

// Response is the common envelope every exposed operation returns.
type Response struct {
	Summary     string   `json:"summary"`
	Payload     any      `json:"payload"`
	NextActions []string `json:"next_actions,omitempty"`
	Note        string   `json:"note,omitempty"`

	Truncated bool `json:"truncated"`
	Total     int  `json:"total"`
	Returned  int  `json:"returned"`
}
