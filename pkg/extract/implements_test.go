// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

func TestImplementsResolverMatchesStructuralSatisfaction(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"

	ext := NewGoExtractor()
	res, err := ext.Extract(ws, "widgets.go", []byte(goFixture))
	require.NoError(t, err)

	res.File.WorkspaceID = ws
	require.NoError(t, st.ReplaceFile(ctx, res.File, res.Symbols, nil, res.Identifiers, res.TypeInfo))

	resolver := NewImplementsResolver(st)
	count, err := resolver.Resolve(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var structID, ifaceID string
	for _, s := range res.Symbols {
		if s.Kind == store.KindStruct && s.Name == "EnglishGreeter" {
			structID = s.ID
		}
		if s.Kind == store.KindInterface && s.Name == "Greeter" {
			ifaceID = s.ID
		}
	}
	require.NotEmpty(t, structID)
	require.NotEmpty(t, ifaceID)

	rels, err := st.RelationshipsFrom(ctx, structID, []store.RelKind{store.RelImplements})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, ifaceID, rels[0].ToSymbolID)
}

func TestImplementsResolverNoMatchWhenMethodMissing(t *testing.T) {
	ctx := context.Background()
	st := openResolverTestStore(t)
	const ws = "ws1"

	src := `package widgets

type Greeter interface {
	Greet(name string) string
	Farewell(name string) string
}

type EnglishGreeter struct{}

func (g *EnglishGreeter) Greet(name string) string { return name }
`
	ext := NewGoExtractor()
	res, err := ext.Extract(ws, "widgets.go", []byte(src))
	require.NoError(t, err)
	res.File.WorkspaceID = ws
	require.NoError(t, st.ReplaceFile(ctx, res.File, res.Symbols, nil, res.Identifiers, res.TypeInfo))

	resolver := NewImplementsResolver(st)
	count, err := resolver.Resolve(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
