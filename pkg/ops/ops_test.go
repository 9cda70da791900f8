// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/cascade"
	"github.com/kraklabs/cortex/pkg/extract"
	"github.com/kraklabs/cortex/pkg/store"
	"github.com/kraklabs/cortex/pkg/traverse"
)

const testWS = "ws1"

type fakeSemantic struct {
	hits []cascade.SemanticHit
	err  error
}

func (f *fakeSemantic) Search(ctx context.Context, workspaceID, text string, k int, minSimilarity float64) ([]cascade.SemanticHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func openOpsTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestEngine wires a real pkg/cascade and pkg/traverse engine
// against the test store, matching how pkg/workspace wires
// pkg/ops.Engine in production.
func newTestEngine(st *store.Store, semantic cascade.SemanticSearcher) *Engine {
	cas := cascade.NewEngine(st, semantic)
	trav := traverse.NewEngine(st, cas)
	return NewEngine(st, cas, trav, semantic, extract.NewManager(), nil)
}

func seedFunction(t *testing.T, st *store.Store, file, name string, line int) string {
	t.Helper()
	return seedFunctionWithDoc(t, st, file, name, line, "")
}

// seedFunctionWithDoc seeds a function symbol whose doc comment
// carries plain, space-separated words — FTS5's default tokenizer
// treats a whole CamelCase identifier as a single token, so lexical
// recall tests need real words to match against, same as pkg/search's
// own tests do.
func seedFunctionWithDoc(t *testing.T, st *store.Store, file, name string, line int, doc string) string {
	t.Helper()
	ctx := context.Background()
	id := store.SymbolID(testWS, file, store.KindFunction, name, line)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: testWS, Path: file, Hash: "h" + name, Language: "go", Size: 1},
		[]store.Symbol{{ID: id, WorkspaceID: testWS, FilePath: file, Kind: store.KindFunction, Name: name, QualifiedName: name, Doc: doc, StartLine: line, EndLine: line + 5}},
		nil, nil, nil))
	return id
}

func TestSearchFallsBackToSemanticWhenTextFindsNothing(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	id := seedFunction(t, st, "a.go", "ComputeTotals", 10)

	eng := newTestEngine(st, &fakeSemantic{hits: []cascade.SemanticHit{{SymbolID: id, Score: 0.6}}})
	resp, err := eng.Search(ctx, testWS, "sum up the invoice amounts", SearchModeText, 10)
	require.NoError(t, err)

	records, ok := resp.Payload.([]SymbolRecord)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "ComputeTotals", records[0].Name)
	assert.Equal(t, cascade.ProvenanceSemantic, records[0].MatchType)
	assert.Contains(t, resp.Note, "semantic matches instead")
}

func TestSearchTextModeFindsLexicalMatchWithoutFallback(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunctionWithDoc(t, st, "a.go", "ParseInvoice", 1, "parses invoice data")

	eng := newTestEngine(st, nil)
	resp, err := eng.Search(ctx, testWS, "parses invoice", SearchModeText, 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Empty(t, resp.Note)
}

func TestGotoPrefersDefinitionOverImport(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	fnID := store.SymbolID(testWS, "a.go", store.KindFunction, "Handler", 0)
	impID := store.SymbolID(testWS, "b.go", store.KindImport, "Handler", 0)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: testWS, Path: "a.go", Hash: "h1", Language: "go", Size: 1},
		[]store.Symbol{{ID: fnID, WorkspaceID: testWS, FilePath: "a.go", Kind: store.KindFunction, Name: "Handler"}}, nil, nil, nil))
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: testWS, Path: "b.go", Hash: "h2", Language: "go", Size: 1},
		[]store.Symbol{{ID: impID, WorkspaceID: testWS, FilePath: "b.go", Kind: store.KindImport, Name: "Handler"}}, nil, nil, nil))

	eng := newTestEngine(st, nil)
	resp, err := eng.Goto(ctx, testWS, "Handler", "", 0)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 2)
	assert.Equal(t, store.KindFunction, records[0].Kind, "the concrete definition should rank before the import alias")
}

func TestGotoReturnsEmptySummaryWhenUnresolved(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	eng := newTestEngine(st, nil)

	resp, err := eng.Goto(ctx, testWS, "NoSuchSymbol", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.Contains(t, resp.Summary, "no definition found")
	assert.Empty(t, resp.Note)
}

func TestGotoSuggestsNearMissesWhenUnresolved(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunction(t, st, "a.go", "ComputeTotals", 10)

	eng := newTestEngine(st, nil)
	resp, err := eng.Goto(ctx, testWS, "ComputeTotal", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.Contains(t, resp.Note, "Did you mean")
	assert.Contains(t, resp.Note, "ComputeTotals")
}

func TestRefsFindsCallers(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	caller := seedFunction(t, st, "a.go", "Handler", 1)
	callee := seedFunction(t, st, "b.go", "Process", 1)
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: testWS, FromSymbolID: caller, ToSymbolID: callee, Kind: store.RelCalls, FilePath: "a.go",
	}))

	eng := newTestEngine(st, nil)
	resp, err := eng.Refs(ctx, testWS, "Process", false, 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "Handler", records[0].Name)
}

func TestRefsCanIncludeDefinition(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	caller := seedFunction(t, st, "a.go", "Handler", 1)
	callee := seedFunction(t, st, "b.go", "Process", 1)
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: testWS, FromSymbolID: caller, ToSymbolID: callee, Kind: store.RelCalls, FilePath: "a.go",
	}))

	eng := newTestEngine(st, nil)
	resp, err := eng.Refs(ctx, testWS, "Process", true, 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 2)
}

func TestSymbolsForFileListsAllSymbolsInPath(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: testWS, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{
			{ID: store.SymbolID(testWS, "a.go", store.KindFunction, "One", 0), WorkspaceID: testWS, FilePath: "a.go", Kind: store.KindFunction, Name: "One", StartLine: 1},
			{ID: store.SymbolID(testWS, "a.go", store.KindFunction, "Two", 10), WorkspaceID: testWS, FilePath: "a.go", Kind: store.KindFunction, Name: "Two", StartLine: 10},
		}, nil, nil, nil))

	eng := newTestEngine(st, nil)
	resp, err := eng.SymbolsForFile(ctx, testWS, "a.go", 10, "")
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 2)
	assert.Equal(t, "One", records[0].Name)
	assert.Equal(t, "Two", records[1].Name)
}

func TestSymbolsForFileFiltersByTargetName(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	require.NoError(t, st.ReplaceFile(ctx, store.File{WorkspaceID: testWS, Path: "a.go", Hash: "h", Language: "go", Size: 1},
		[]store.Symbol{
			{ID: store.SymbolID(testWS, "a.go", store.KindFunction, "One", 0), WorkspaceID: testWS, FilePath: "a.go", Kind: store.KindFunction, Name: "One"},
			{ID: store.SymbolID(testWS, "a.go", store.KindFunction, "Two", 10), WorkspaceID: testWS, FilePath: "a.go", Kind: store.KindFunction, Name: "Two"},
		}, nil, nil, nil))

	eng := newTestEngine(st, nil)
	resp, err := eng.SymbolsForFile(ctx, testWS, "a.go", 10, "Two")
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "Two", records[0].Name)
}

func TestTraceFollowsCallGraphDownstream(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	a := seedFunction(t, st, "a.go", "Handler", 1)
	b := seedFunction(t, st, "b.go", "Process", 1)
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: testWS, FromSymbolID: a, ToSymbolID: b, Kind: store.RelCalls, FilePath: "a.go",
	}))

	eng := newTestEngine(st, nil)
	resp, err := eng.Trace(ctx, testWS, "Handler", traverse.DirectionDownstream, 3)
	require.NoError(t, err)

	trees := resp.Payload.([]TraceNode)
	require.Len(t, trees, 1)
	require.Len(t, trees[0].Children, 1)
	assert.Equal(t, "Process", trees[0].Children[0].Name)
	assert.Equal(t, store.RelCalls, trees[0].Children[0].RelationKind)
}

func TestFindLogicRanksLexicalHitAboveUnrelatedSymbol(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunctionWithDoc(t, st, "billing_service.go", "CalculateInvoiceTotal", 1, "calculates the invoice total")
	seedFunctionWithDoc(t, st, "util.go", "ReverseString", 1, "reverses a string in place")

	eng := newTestEngine(st, nil)
	resp, err := eng.FindLogic(ctx, testWS, "invoice total calculation", 10, 0)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.NotEmpty(t, records)
	assert.Equal(t, "CalculateInvoiceTotal", records[0].Name)
}

func TestFindLogicExpandsViaSemanticWhenLexicalMisses(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	id := seedFunction(t, st, "billing.go", "TallyCharges", 1)

	eng := newTestEngine(st, &fakeSemantic{hits: []cascade.SemanticHit{{SymbolID: id, Score: 0.5}}})
	resp, err := eng.FindLogic(ctx, testWS, "sum up customer charges", 10, 0)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "TallyCharges", records[0].Name)
}

func TestExploreLogicDelegatesToFindLogic(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunctionWithDoc(t, st, "billing_service.go", "CalculateInvoiceTotal", 1, "calculates the invoice total")

	eng := newTestEngine(st, nil)
	resp, err := eng.Explore(ctx, testWS, ExploreModeLogic, "invoice total calculation", "", 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.NotEmpty(t, records)
	assert.Equal(t, "CalculateInvoiceTotal", records[0].Name)
}

func TestExploreSimilarFindsSemanticNeighbors(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	target := seedFunction(t, st, "a.go", "ComputeTotals", 1)
	neighbor := seedFunction(t, st, "b.go", "ComputeSubtotals", 1)

	eng := newTestEngine(st, &fakeSemantic{hits: []cascade.SemanticHit{
		{SymbolID: target, Score: 1.0},
		{SymbolID: neighbor, Score: 0.85},
	}})
	resp, err := eng.Explore(ctx, testWS, ExploreModeSimilar, "", "ComputeTotals", 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1, "the queried symbol itself must be excluded from its own similarity results")
	assert.Equal(t, "ComputeSubtotals", records[0].Name)
}

func TestExploreSimilarWithoutEmbedderReturnsNote(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	seedFunction(t, st, "a.go", "ComputeTotals", 1)

	eng := newTestEngine(st, nil)
	resp, err := eng.Explore(ctx, testWS, ExploreModeSimilar, "", "ComputeTotals", 10)
	require.NoError(t, err)
	assert.Contains(t, resp.Summary, "mock mode")
}

func TestExploreDependenciesListsOutboundRelationships(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	a := seedFunction(t, st, "a.go", "Handler", 1)
	b := seedFunction(t, st, "b.go", "Process", 1)
	require.NoError(t, st.UpsertRelationship(ctx, store.Relationship{
		ID: "r1", WorkspaceID: testWS, FromSymbolID: a, ToSymbolID: b, Kind: store.RelUses, FilePath: "a.go",
	}))

	eng := newTestEngine(st, nil)
	resp, err := eng.Explore(ctx, testWS, ExploreModeDependencies, "", "Handler", 10)
	require.NoError(t, err)

	records := resp.Payload.([]SymbolRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "Process", records[0].Name)
}

func TestExploreRejectsUnknownMode(t *testing.T) {
	ctx := context.Background()
	st := openOpsTestStore(t)
	eng := newTestEngine(st, nil)

	_, err := eng.Explore(ctx, testWS, ExploreMode("bogus"), "", "Handler", 10)
	assert.Error(t, err)
}
