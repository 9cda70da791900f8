// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathWeightSourceIsFullWeight(t *testing.T) {
	assert.Equal(t, sourceWeight, PathWeight("pkg/store/query.go", []string{"parse"}))
}

func TestPathWeightTestFileDeprioritizedUnlessQueryAsksForTests(t *testing.T) {
	assert.Equal(t, testWeight, PathWeight("pkg/store/query_test.go", []string{"parse"}))
	assert.Equal(t, sourceWeight, PathWeight("pkg/store/query_test.go", []string{"test", "parse"}))
}

func TestPathWeightDependencyPathsDeprioritized(t *testing.T) {
	assert.Equal(t, dependencyWeight, PathWeight("vendor/github.com/foo/bar.go", []string{"parse"}))
	assert.Equal(t, dependencyWeight, PathWeight("docs/guide.md", []string{"parse"}))
}
