// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"encoding/json"
	"os"

	cerrors "github.com/kraklabs/cortex/internal/errors"
	"github.com/kraklabs/cortex/pkg/store"
)

// RegistryEntry is one row of workspaces.json: a primary workspace or
// one of its registered reference workspaces.
type RegistryEntry struct {
	ID            string     `json:"id"`
	Root          string     `json:"root"`
	Role          store.Role `json:"role"`
	LastIndexedAt int64      `json:"last_indexed_at"`
}

// Registry is the primary+reference workspace list for one primary
// workspace (spec §6's workspaces.json).
type Registry struct {
	Entries []RegistryEntry `json:"entries"`
}

// LoadRegistry reads path, returning an empty Registry if it doesn't
// exist yet.
func LoadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Registry{}, nil
	}
	if err != nil {
		return Registry{}, cerrors.E(cerrors.Storage, "workspace.LoadRegistry", err)
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registry{}, cerrors.E(cerrors.Storage, "workspace.LoadRegistry", err)
	}
	return reg, nil
}

// Save writes the registry to path.
func (r Registry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return cerrors.E(cerrors.Storage, "workspace.Registry.Save", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerrors.E(cerrors.Storage, "workspace.Registry.Save", err)
	}
	return nil
}

// Upsert adds or replaces the entry for e.ID.
func (r *Registry) Upsert(e RegistryEntry) {
	for i, existing := range r.Entries {
		if existing.ID == e.ID {
			r.Entries[i] = e
			return
		}
	}
	r.Entries = append(r.Entries, e)
}

// Remove deletes the entry for id, if present.
func (r *Registry) Remove(id string) {
	out := r.Entries[:0]
	for _, e := range r.Entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	r.Entries = out
}
