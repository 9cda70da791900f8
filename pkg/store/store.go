// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// Store is the embedded relational database: single shared handle,
// matching spec §9 ("a single shared handle, internally synchronized by
// the database engine, is preferable to a connection pool"). SQLite
// itself serializes writers; Store adds no additional user-level lock
// around reads.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	mu     sync.Mutex // guards multi-statement write transactions only
}

// Open opens (creating if absent) the SQLite database at path in WAL
// mode, matching spec §6's "db/symbols.db (with side files for WAL)".
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "store.Open", err)
	}
	db.SetMaxOpenConns(1) // single-writer; modernc.org/sqlite is not safe for concurrent writers on one *DB
	s := &Store{db: db, path: path, logger: logger}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, cerrors.E(cerrors.Storage, "store.Open", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for packages (search, semantic) that
// need direct SQL access beyond the Store's own methods.
func (s *Store) DB() *sql.DB { return s.db }

// ReplaceFile atomically replaces every row keyed on filePath with the
// given extraction output, in one transaction (spec §4.2: "a file
// re-extraction replaces all rows keyed on that file path in one
// transaction"). The file's existing rows are deleted explicitly first:
// embedding vectors and type info of its symbols, relationships whose
// from_symbol_id pointed into it, its identifiers, its symbols and its
// file row.
func (s *Store) ReplaceFile(ctx context.Context, f File, symbols []Symbol, rels []Relationship, idents []Identifier, types []TypeInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFileRows(tx, f.WorkspaceID, f.Path); err != nil {
		return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (workspace_id, path, hash, language, size, last_extracted) VALUES (?, ?, ?, ?, ?, ?)`,
		f.WorkspaceID, f.Path, f.Hash, f.Language, f.Size, f.LastExtracted); err != nil {
		return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
	}

	for _, sym := range symbols {
		if err := insertSymbol(ctx, tx, sym); err != nil {
			return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
		}
	}
	for _, r := range rels {
		if err := insertRelationship(ctx, tx, r); err != nil {
			return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
		}
	}
	for _, id := range idents {
		if err := insertIdentifier(ctx, tx, id); err != nil {
			return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
		}
	}
	for _, t := range types {
		if err := insertTypeInfo(ctx, tx, t); err != nil {
			return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cerrors.E(cerrors.Storage, "store.ReplaceFile", err)
	}
	return nil
}

// DeleteFile removes a file and everything that cascades from it
// (symbols, relationships originating in it, identifiers, type info,
// embedding vectors). Used when a file is removed from disk.
func (s *Store) DeleteFile(ctx context.Context, workspaceID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.E(cerrors.Storage, "store.DeleteFile", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFileRows(tx, workspaceID, path); err != nil {
		return cerrors.E(cerrors.Storage, "store.DeleteFile", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE workspace_id = ? AND path = ?`, workspaceID, path); err != nil {
		return cerrors.E(cerrors.Storage, "store.DeleteFile", err)
	}
	return tx.Commit()
}

func deleteFileRows(tx *sql.Tx, workspaceID, path string) error {
	stmts := []struct {
		q    string
		args []any
	}{
		{`DELETE FROM embedding_vectors WHERE symbol_id IN (SELECT id FROM symbols WHERE workspace_id = ? AND file_path = ?)`, []any{workspaceID, path}},
		{`DELETE FROM type_info WHERE symbol_id IN (SELECT id FROM symbols WHERE workspace_id = ? AND file_path = ?)`, []any{workspaceID, path}},
		{`DELETE FROM relationships WHERE workspace_id = ? AND from_symbol_id IN (SELECT id FROM symbols WHERE workspace_id = ? AND file_path = ?)`, []any{workspaceID, workspaceID, path}},
		{`DELETE FROM identifiers WHERE workspace_id = ? AND file_path = ?`, []any{workspaceID, path}},
		{`DELETE FROM symbols WHERE workspace_id = ? AND file_path = ?`, []any{workspaceID, path}},
		{`DELETE FROM files WHERE workspace_id = ? AND path = ?`, []any{workspaceID, path}},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(st.q, st.args...); err != nil {
			return err
		}
	}
	return nil
}

func insertSymbol(ctx context.Context, tx *sql.Tx, sym Symbol) error {
	meta, err := json.Marshal(sym.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO symbols
		(id, workspace_id, file_path, kind, name, qualified_name, parent_id, signature, doc,
		 start_byte, end_byte, start_line, end_line, visibility, content_type, metadata_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sym.ID, sym.WorkspaceID, sym.FilePath, string(sym.Kind), sym.Name, sym.QualifiedName, nullable(sym.ParentID),
		sym.Signature, sym.Doc, sym.StartByte, sym.EndByte, sym.StartLine, sym.EndLine,
		string(sym.Visibility), string(sym.ContentType), string(meta))
	return err
}

func insertRelationship(ctx context.Context, tx *sql.Tx, r Relationship) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO relationships
		(id, workspace_id, from_symbol_id, to_symbol_id, to_name, kind, confidence, file_path, line)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.WorkspaceID, r.FromSymbolID, nullable(r.ToSymbolID), nullable(r.ToName),
		string(r.Kind), r.Confidence, r.FilePath, r.Line)
	return err
}

func insertIdentifier(ctx context.Context, tx *sql.Tx, id Identifier) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO identifiers
		(id, workspace_id, name, kind, file_path, line, column, containing_symbol_id)
		VALUES (?,?,?,?,?,?,?,?)`,
		id.ID, id.WorkspaceID, id.Name, string(id.Kind), id.FilePath, id.Line, id.Column, nullable(id.ContainingSymbolID))
	return err
}

func insertTypeInfo(ctx context.Context, tx *sql.Tx, t TypeInfo) error {
	generics, _ := json.Marshal(t.Generics)
	constraints, _ := json.Marshal(t.Constraints)
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO type_info
		(symbol_id, resolved_type, generics_json, constraints_json) VALUES (?,?,?,?)`,
		t.SymbolID, t.Resolved, string(generics), string(constraints))
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
