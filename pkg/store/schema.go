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

// Package store is the symbol database: the single transactional source
// of truth for files, symbols, relationships, identifiers, type info,
// and embedding vectors. Everything else in the engine is derived from
// it (the full-text index via triggers, the HNSW index via background
// rebuild from embedding_vectors).
package store

// schema holds the DDL for every table. Tables are created individually
// with IF NOT EXISTS so repeated calls to EnsureSchema are idempotent,
// matching the teacher's CozoDB schema-creation style of tolerating
// "already exists" on every statement.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		root_path TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'primary',
		last_indexed_at INTEGER
	)`,

	`CREATE TABLE IF NOT EXISTS files (
		workspace_id TEXT NOT NULL,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		language TEXT NOT NULL,
		size INTEGER NOT NULL,
		last_extracted INTEGER NOT NULL,
		PRIMARY KEY (workspace_id, path)
	)`,

	`CREATE TABLE IF NOT EXISTS symbols (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT,
		parent_id TEXT,
		signature TEXT,
		doc TEXT,
		start_byte INTEGER NOT NULL,
		end_byte INTEGER NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		visibility TEXT NOT NULL DEFAULT 'Public',
		content_type TEXT NOT NULL DEFAULT 'code',
		metadata_json TEXT,
		FOREIGN KEY (workspace_id, file_path) REFERENCES files(workspace_id, path) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(workspace_id, name)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_name_lower ON symbols(workspace_id, name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(workspace_id, file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
		id UNINDEXED,
		name,
		signature,
		doc,
		content='symbols',
		content_rowid='rowid'
	)`,

	// Trigger-synced per spec §4.2: the FTS index is maintained inline
	// with every symbols write within the same transaction.
	`CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
		INSERT INTO symbols_fts(rowid, id, name, signature, doc)
		VALUES (new.rowid, new.id, new.name, new.signature, new.doc);
	END`,
	`CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
		INSERT INTO symbols_fts(symbols_fts, rowid, id, name, signature, doc)
		VALUES ('delete', old.rowid, old.id, old.name, old.signature, old.doc);
	END`,
	`CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
		INSERT INTO symbols_fts(symbols_fts, rowid, id, name, signature, doc)
		VALUES ('delete', old.rowid, old.id, old.name, old.signature, old.doc);
		INSERT INTO symbols_fts(rowid, id, name, signature, doc)
		VALUES (new.rowid, new.id, new.name, new.signature, new.doc);
	END`,

	`CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		from_symbol_id TEXT NOT NULL,
		to_symbol_id TEXT,
		to_name TEXT,
		kind TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		file_path TEXT NOT NULL,
		line INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_from ON relationships(from_symbol_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_to ON relationships(to_symbol_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_pending ON relationships(workspace_id, to_name) WHERE to_symbol_id IS NULL`,

	`CREATE TABLE IF NOT EXISTS identifiers (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line INTEGER NOT NULL,
		column INTEGER NOT NULL,
		containing_symbol_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ident_file ON identifiers(workspace_id, file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_ident_name ON identifiers(workspace_id, name)`,

	`CREATE TABLE IF NOT EXISTS type_info (
		symbol_id TEXT PRIMARY KEY,
		resolved_type TEXT,
		generics_json TEXT,
		constraints_json TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS embedding_vectors (
		symbol_id TEXT NOT NULL,
		model_name TEXT NOT NULL,
		vector BLOB NOT NULL,
		dimension INTEGER NOT NULL,
		PRIMARY KEY (symbol_id, model_name)
	)`,

	`CREATE TABLE IF NOT EXISTS project_meta (
		workspace_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (workspace_id, key)
	)`,
}

// EnsureSchema creates every table, index, and trigger if missing. Safe
// to call on every startup.
func (s *Store) EnsureSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
