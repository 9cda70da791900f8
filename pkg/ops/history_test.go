// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryReturnsEmptyWhenSymbolUnresolved(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	eng := newTestEngine(st, nil)

	resp, err := eng.History(ctx, testWS, t.TempDir(), "DoesNotExist", "", 10)
	require.NoError(t, err)
	assert.Contains(t, resp.Summary, "no definition found")
	assert.Empty(t, resp.Payload.([]SymbolRecord))
}

func TestHistoryDegradesWithNoteOutsideGitCheckout(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunction(t, st, "a.go", "ComputeTotals", 10)
	eng := newTestEngine(st, nil)

	// t.TempDir() is never itself a git checkout, so History should
	// degrade to a note instead of erroring.
	resp, err := eng.History(ctx, testWS, t.TempDir(), "ComputeTotals", "", 10)
	require.NoError(t, err)
	assert.Contains(t, resp.Note, "not a git checkout")

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].History)
}
