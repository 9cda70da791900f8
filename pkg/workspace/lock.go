// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"fmt"

	"github.com/gofrs/flock"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// Lock is the single-process advisory lock enforcing spec §5's "a
// workspace is owned by a single process" rule: a workspace's
// db/symbols.db is a single-writer SQLite file, and two cortex
// processes opening the same root concurrently would corrupt the
// extraction-transaction ordering guarantees.
type Lock struct {
	f *flock.Flock
}

// AcquireLock tries to lock path without blocking. A held lock from
// another process is reported as a DeviceFailure-free, ordinary error
// so the caller can print a clear "already open elsewhere" message.
func AcquireLock(path string) (*Lock, error) {
	f := flock.New(path)
	ok, err := f.TryLock()
	if err != nil {
		return nil, cerrors.E(cerrors.Storage, "workspace.AcquireLock", err)
	}
	if !ok {
		return nil, cerrors.E(cerrors.Storage, "workspace.AcquireLock",
			fmt.Errorf("workspace is already open by another process (lock held: %s)", path))
	}
	return &Lock{f: f}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Unlock()
}
