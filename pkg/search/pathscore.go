// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import "strings"

// Path-relevance weights: a match in source carries full weight, a
// match in a test file is deprioritized unless the query itself is
// about tests, and anything under a dependency/vendor/doc path is
// deprioritized further still regardless of query intent.
const (
	sourceWeight     = 1.0
	testWeight       = 0.4
	dependencyWeight = 0.15
)

var dependencyPathMarkers = []string{
	"vendor/", "node_modules/", ".venv/", "site-packages/",
	"third_party/", "_examples/", "dist/", "build/",
}

var docPathMarkers = []string{
	"docs/", "doc/", ".md", "examples/",
}

var testPathMarkers = []string{
	"_test.go", ".test.ts", ".test.js", ".spec.ts", ".spec.js",
	"test/", "tests/", "test_", "_test.py",
}

// PathWeight scores path's relevance given the original query tokens.
// A query that explicitly mentions "test" (or a synonym token) lifts
// the test-file penalty back to source weight, since the caller is
// presumably looking for tests on purpose.
func PathWeight(path string, queryTokens []string) float64 {
	lower := strings.ToLower(path)

	for _, m := range dependencyPathMarkers {
		if strings.Contains(lower, m) {
			return dependencyWeight
		}
	}

	isTest := false
	for _, m := range testPathMarkers {
		if strings.Contains(lower, m) {
			isTest = true
			break
		}
	}
	if isTest {
		if queryMentionsTests(queryTokens) {
			return sourceWeight
		}
		return testWeight
	}

	for _, m := range docPathMarkers {
		if strings.Contains(lower, m) {
			return dependencyWeight
		}
	}

	return sourceWeight
}

func queryMentionsTests(tokens []string) bool {
	for _, t := range tokens {
		if t == "test" || t == "tests" || t == "testing" || t == "spec" {
			return true
		}
	}
	return false
}
