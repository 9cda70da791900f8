// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifestNeedsReextraction(t *testing.T) {
	m := Manifest{}
	assert.True(t, m.NeedsReextraction("a.go", "h1"), "unknown path always needs extraction")

	m.Set("a.go", ManifestEntry{Hash: "h1", ExtractorVersion: ExtractorVersion})
	assert.False(t, m.NeedsReextraction("a.go", "h1"))
	assert.True(t, m.NeedsReextraction("a.go", "h2"), "changed hash needs re-extraction")

	m.Set("a.go", ManifestEntry{Hash: "h1", ExtractorVersion: "stale-version"})
	assert.True(t, m.NeedsReextraction("a.go", "h1"), "extractor version bump forces re-extraction")
}

func TestManifestRemove(t *testing.T) {
	m := Manifest{"a.go": ManifestEntry{Hash: "h1"}}
	m.Remove("a.go")
	assert.True(t, m.NeedsReextraction("a.go", "h1"))
}
