// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

const symbolColumns = `id, workspace_id, file_path, kind, name, qualified_name, parent_id, signature, doc,
	start_byte, end_byte, start_line, end_line, visibility, content_type, metadata_json`

func scanSymbol(row interface{ Scan(...any) error }) (Symbol, error) {
	var sym Symbol
	var qualified, parentID, signature, doc, metaJSON sql.NullString
	err := row.Scan(&sym.ID, &sym.WorkspaceID, &sym.FilePath, &sym.Kind, &sym.Name, &qualified, &parentID,
		&signature, &doc, &sym.StartByte, &sym.EndByte, &sym.StartLine, &sym.EndLine,
		&sym.Visibility, &sym.ContentType, &metaJSON)
	if err != nil {
		return Symbol{}, err
	}
	sym.QualifiedName = qualified.String
	sym.ParentID = parentID.String
	sym.Signature = signature.String
	sym.Doc = doc.String
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &sym.Metadata)
	}
	return sym, nil
}

// SymbolByExactName looks up symbols by exact name (query #1, spec
// §4.2). caseSensitive=false performs a COLLATE NOCASE match.
func (s *Store) SymbolByExactName(ctx context.Context, workspaceID, name string, caseSensitive bool) ([]Symbol, error) {
	q := `SELECT ` + symbolColumns + ` FROM symbols WHERE workspace_id = ? AND name = ?`
	if !caseSensitive {
		q = `SELECT ` + symbolColumns + ` FROM symbols WHERE workspace_id = ? AND name = ? COLLATE NOCASE`
	}
	rows, err := s.db.QueryContext(ctx, q, workspaceID, name)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.SymbolByExactName", err)
	}
	defer rows.Close()
	return collectSymbols(rows)
}

// DistinctSymbolNames returns up to limit distinct symbol names in the
// workspace, for naming-variant-suggestion ranking (pkg/cascade's
// RankSuggestions) when no resolution stage found anything — bounded
// so a "did you mean" lookup never turns into a full table scan's
// worth of candidates for a large workspace.
func (s *Store) DistinctSymbolNames(ctx context.Context, workspaceID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM symbols WHERE workspace_id = ? ORDER BY name LIMIT ?`, workspaceID, limit)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.DistinctSymbolNames", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, cerrors.E(cerrors.Storage, "store.DistinctSymbolNames", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SymbolsForFile returns every symbol defined in path (query #3).
func (s *Store) SymbolsForFile(ctx context.Context, workspaceID, path string) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE workspace_id = ? AND file_path = ? ORDER BY start_line`, workspaceID, path)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.SymbolsForFile", err)
	}
	defer rows.Close()
	return collectSymbols(rows)
}

// SymbolsByNamesBatch resolves many names to their candidate symbols in
// one query, for the resolver's pending-relationship sweep (spec §4.2's
// linear-scan ban applies here too: one IN (...) query beats one query
// per pending edge).
func (s *Store) SymbolsByNamesBatch(ctx context.Context, workspaceID string, names []string) (map[string][]Symbol, error) {
	out := make(map[string][]Symbol)
	if len(names) == 0 {
		return out, nil
	}
	var b strings.Builder
	b.WriteString(`SELECT ` + symbolColumns + ` FROM symbols WHERE workspace_id = ? AND name IN (`)
	args := make([]any, 0, len(names)+1)
	args = append(args, workspaceID)
	for i, n := range names {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, n)
	}
	b.WriteString(")")
	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.SymbolsByNamesBatch", err)
	}
	defer rows.Close()
	syms, err := collectSymbols(rows)
	if err != nil {
		return nil, err
	}
	for _, sym := range syms {
		out[sym.Name] = append(out[sym.Name], sym)
	}
	return out, nil
}

// AllFiles returns every tracked file for workspaceID with its last
// known content hash, for the incremental delta detectors in
// pkg/extract to diff against the tree on disk.
func (s *Store) AllFiles(ctx context.Context, workspaceID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT workspace_id, path, hash, language, size, last_extracted FROM files WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.AllFiles", err)
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.WorkspaceID, &f.Path, &f.Hash, &f.Language, &f.Size, &f.LastExtracted); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SymbolByKindBatch returns every symbol of kind in the workspace, for
// whole-workspace passes like interface-implementation matching that
// cannot be scoped to one file.
func (s *Store) SymbolByKindBatch(ctx context.Context, workspaceID string, kind Kind) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE workspace_id = ? AND kind = ?`, workspaceID, kind)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.SymbolByKindBatch", err)
	}
	defer rows.Close()
	return collectSymbols(rows)
}

// UpsertRelationship writes a single relationship outside the per-file
// transaction, used by passes (Implements matching, field-dispatch
// resolution) that discover edges after extraction rather than during it.
func (s *Store) UpsertRelationship(ctx context.Context, rel Relationship) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO relationships
		(id, workspace_id, from_symbol_id, to_symbol_id, to_name, kind, confidence, file_path, line)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rel.ID, rel.WorkspaceID, rel.FromSymbolID, nullable(rel.ToSymbolID), nullable(rel.ToName),
		rel.Kind, rel.Confidence, nullable(rel.FilePath), rel.Line)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.UpsertRelationship", err)
	}
	return nil
}

// SymbolByID fetches a single symbol, or NotFound.
func (s *Store) SymbolByID(ctx context.Context, id string) (Symbol, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return Symbol{}, cerrors.E(cerrors.NotFound, "store.SymbolByID", err)
	}
	if err != nil {
		return Symbol{}, cerrors.E(cerrors.Storage, "store.SymbolByID", err)
	}
	return sym, nil
}

func collectSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// RelationshipsFrom returns direct outgoing relationships from symbolID,
// optionally restricted to kinds.
func (s *Store) RelationshipsFrom(ctx context.Context, symbolID string, kinds []RelKind) ([]Relationship, error) {
	q, args := relQuery("from_symbol_id", []string{symbolID}, kinds)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.RelationshipsFrom", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// RelationshipsToBatch answers "relationships to this set of symbol ids"
// in one indexed query — spec §4.2 forbids a linear scan here since it
// is the reference-finding hot path.
func (s *Store) RelationshipsToBatch(ctx context.Context, symbolIDs []string, kinds []RelKind) ([]Relationship, error) {
	if len(symbolIDs) == 0 {
		return nil, nil
	}
	q, args := relQuery("to_symbol_id", symbolIDs, kinds)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.RelationshipsToBatch", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// RelationshipsFromBatch is the downstream-direction analogue of
// RelationshipsToBatch, used by the batched traversal in pkg/traverse.
func (s *Store) RelationshipsFromBatch(ctx context.Context, symbolIDs []string, kinds []RelKind) ([]Relationship, error) {
	if len(symbolIDs) == 0 {
		return nil, nil
	}
	q, args := relQuery("from_symbol_id", symbolIDs, kinds)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.RelationshipsFromBatch", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func relQuery(col string, ids []string, kinds []RelKind) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, workspace_id, from_symbol_id, to_symbol_id, to_name, kind, confidence, file_path, line FROM relationships WHERE `)
	b.WriteString(col)
	b.WriteString(` IN (`)
	args := make([]any, 0, len(ids)+len(kinds))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(")")
	if len(kinds) > 0 {
		b.WriteString(" AND kind IN (")
		for i, k := range kinds {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("?")
			args = append(args, string(k))
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func collectRelationships(rows *sql.Rows) ([]Relationship, error) {
	var out []Relationship
	for rows.Next() {
		var r Relationship
		var toSym, toName sql.NullString
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.FromSymbolID, &toSym, &toName, &r.Kind, &r.Confidence, &r.FilePath, &r.Line); err != nil {
			return nil, err
		}
		r.ToSymbolID = toSym.String
		r.ToName = toName.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// PendingRelationships returns every unresolved edge (to_symbol_id IS
// NULL) in the workspace, for the resolution pass in
// pkg/extract/resolver.go.
func (s *Store) PendingRelationships(ctx context.Context, workspaceID string) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, workspace_id, from_symbol_id, to_symbol_id, to_name, kind, confidence, file_path, line
		FROM relationships WHERE workspace_id = ? AND to_symbol_id IS NULL`, workspaceID)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.PendingRelationships", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// StitchRelationship resolves a previously-pending edge to a concrete
// to_symbol_id, outside the originating file's transaction (spec §9
// "pending relationships as a tagged variant").
func (s *Store) StitchRelationship(ctx context.Context, relID, toSymbolID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE relationships SET to_symbol_id = ?, to_name = NULL WHERE id = ?`, toSymbolID, relID)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.StitchRelationship", err)
	}
	return nil
}

// IdentifiersInFile returns identifier occurrences for a file (query #5).
func (s *Store) IdentifiersInFile(ctx context.Context, workspaceID, path string) ([]Identifier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, workspace_id, name, kind, file_path, line, column, containing_symbol_id
		FROM identifiers WHERE workspace_id = ? AND file_path = ? ORDER BY line, column`, workspaceID, path)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.IdentifiersInFile", err)
	}
	defer rows.Close()
	return collectIdentifiers(rows)
}

// IdentifiersByName returns identifier occurrences by name across the
// workspace (query #5).
func (s *Store) IdentifiersByName(ctx context.Context, workspaceID, name string) ([]Identifier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, workspace_id, name, kind, file_path, line, column, containing_symbol_id
		FROM identifiers WHERE workspace_id = ? AND name = ?`, workspaceID, name)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.IdentifiersByName", err)
	}
	defer rows.Close()
	return collectIdentifiers(rows)
}

func collectIdentifiers(rows *sql.Rows) ([]Identifier, error) {
	var out []Identifier
	for rows.Next() {
		var id Identifier
		var containing sql.NullString
		if err := rows.Scan(&id.ID, &id.WorkspaceID, &id.Name, &id.Kind, &id.FilePath, &id.Line, &id.Column, &containing); err != nil {
			return nil, err
		}
		id.ContainingSymbolID = containing.String
		out = append(out, id)
	}
	return out, rows.Err()
}

// EmbeddingVectorFor returns the vector for (symbolID, modelName), query #6.
func (s *Store) EmbeddingVectorFor(ctx context.Context, symbolID, modelName string) (EmbeddingVector, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT vector, dimension FROM embedding_vectors WHERE symbol_id = ? AND model_name = ?`, symbolID, modelName)
	var blob []byte
	var dim int
	if err := row.Scan(&blob, &dim); err == sql.ErrNoRows {
		return EmbeddingVector{}, false, nil
	} else if err != nil {
		return EmbeddingVector{}, false, cerrors.E(cerrors.Storage, "store.EmbeddingVectorFor", err)
	}
	return EmbeddingVector{SymbolID: symbolID, ModelName: modelName, Vector: decodeFloat32s(blob, dim)}, true, nil
}

// UpsertEmbeddingVector writes or replaces a symbol's embedding.
func (s *Store) UpsertEmbeddingVector(ctx context.Context, v EmbeddingVector) error {
	blob := encodeFloat32s(v.Vector)
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO embedding_vectors (symbol_id, model_name, vector, dimension) VALUES (?,?,?,?)`,
		v.SymbolID, v.ModelName, blob, len(v.Vector))
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.UpsertEmbeddingVector", err)
	}
	return nil
}

// AllEmbeddingVectors streams every vector for modelName, used to
// (re)build the HNSW index from scratch.
func (s *Store) AllEmbeddingVectors(ctx context.Context, workspaceID, modelName string) ([]EmbeddingVector, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ev.symbol_id, ev.vector, ev.dimension FROM embedding_vectors ev
		JOIN symbols s ON s.id = ev.symbol_id WHERE s.workspace_id = ? AND ev.model_name = ?`, workspaceID, modelName)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.AllEmbeddingVectors", err)
	}
	defer rows.Close()
	var out []EmbeddingVector
	for rows.Next() {
		var v EmbeddingVector
		var blob []byte
		var dim int
		if err := rows.Scan(&v.SymbolID, &blob, &dim); err != nil {
			return nil, err
		}
		v.ModelName = modelName
		v.Vector = decodeFloat32s(blob, dim)
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetProjectMeta/SetProjectMeta: incremental-indexing bookkeeping
// (last indexed SHA, manifest snapshots), grounded on the teacher's
// EmbeddedBackend.GetProjectMeta/SetProjectMeta.
func (s *Store) GetProjectMeta(ctx context.Context, workspaceID, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM project_meta WHERE workspace_id = ? AND key = ?`, workspaceID, key)
	var v string
	if err := row.Scan(&v); err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", cerrors.E(cerrors.Storage, "store.GetProjectMeta", err)
	}
	return v, nil
}

func (s *Store) SetProjectMeta(ctx context.Context, workspaceID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO project_meta (workspace_id, key, value) VALUES (?,?,?)`, workspaceID, key, value)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.SetProjectMeta", err)
	}
	return nil
}

// FTSHit is one full-text search result: the symbol plus its raw BM25
// rank (more negative is a better match, matching SQLite FTS5's
// convention) so callers can blend it with other scoring signals.
type FTSHit struct {
	Symbol Symbol
	Rank   float64
}

// SearchSymbolsFTS runs matchQuery (already built as an FTS5 MATCH
// expression by pkg/search) against symbols_fts, scoped to workspaceID,
// ordered by BM25 rank, and capped at limit rows.
func (s *Store) SearchSymbolsFTS(ctx context.Context, workspaceID, matchQuery string, limit int) ([]FTSHit, error) {
	q := `SELECT ` + prefixColumns("sym.", symbolColumns) + `, bm25(symbols_fts) AS rank
		FROM symbols_fts
		JOIN symbols sym ON sym.rowid = symbols_fts.rowid
		WHERE symbols_fts MATCH ? AND sym.workspace_id = ?
		ORDER BY rank
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, matchQuery, workspaceID, limit)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.SearchSymbolsFTS", err)
	}
	defer rows.Close()

	var out []FTSHit
	for rows.Next() {
		sym, rank, err := scanSymbolWithRank(rows)
		if err != nil {
			return nil, cerrors.E(cerrors.Storage, "store.SearchSymbolsFTS", err)
		}
		out = append(out, FTSHit{Symbol: sym, Rank: rank})
	}
	return out, rows.Err()
}

func scanSymbolWithRank(row interface{ Scan(...any) error }) (Symbol, float64, error) {
	var sym Symbol
	var qualified, parentID, signature, doc, metaJSON sql.NullString
	var rank float64
	err := row.Scan(&sym.ID, &sym.WorkspaceID, &sym.FilePath, &sym.Kind, &sym.Name, &qualified, &parentID,
		&signature, &doc, &sym.StartByte, &sym.EndByte, &sym.StartLine, &sym.EndLine,
		&sym.Visibility, &sym.ContentType, &metaJSON, &rank)
	if err != nil {
		return Symbol{}, 0, err
	}
	sym.QualifiedName = qualified.String
	sym.ParentID = parentID.String
	sym.Signature = signature.String
	sym.Doc = doc.String
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &sym.Metadata)
	}
	return sym, rank, nil
}

// prefixColumns prepends prefix to each comma-separated column in cols,
// so symbolColumns can be reused in a query that joins symbols under an
// alias.
func prefixColumns(prefix, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Counts summarizes one workspace's index for the status operation:
// file/symbol/relationship/embedding totals plus a per-kind symbol
// breakdown, mirroring the file/function/type/embedding/call-edge
// tally the teacher's status command prints.
type Counts struct {
	Files         int
	Symbols       int
	Relationships int
	Identifiers   int
	Embeddings    int
	SymbolsByKind map[Kind]int
}

// WorkspaceCounts runs the index-summary counts for workspaceID.
func (s *Store) WorkspaceCounts(ctx context.Context, workspaceID string) (Counts, error) {
	var c Counts
	c.SymbolsByKind = make(map[Kind]int)

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE workspace_id = ?`, workspaceID).Scan(&c.Files); err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols WHERE workspace_id = ?`, workspaceID).Scan(&c.Symbols); err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships WHERE workspace_id = ?`, workspaceID).Scan(&c.Relationships); err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identifiers WHERE workspace_id = ?`, workspaceID).Scan(&c.Identifiers); err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_vectors ev JOIN symbols s ON s.id = ev.symbol_id WHERE s.workspace_id = ?`, workspaceID).Scan(&c.Embeddings); err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM symbols WHERE workspace_id = ? GROUP BY kind`, workspaceID)
	if err != nil {
		return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind Kind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return c, cerrors.E(cerrors.Storage, "store.WorkspaceCounts", err)
		}
		c.SymbolsByKind[kind] = n
	}
	return c, rows.Err()
}

// UpsertWorkspace registers or updates a workspace row.
func (s *Store) UpsertWorkspace(ctx context.Context, w Workspace) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO workspaces (id, root_path, role, last_indexed_at) VALUES (?,?,?,?)`,
		w.ID, w.RootPath, string(w.Role), w.LastIndexedAt)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.UpsertWorkspace", err)
	}
	return nil
}
