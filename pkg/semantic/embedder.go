// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package semantic is the embedding + approximate-nearest-neighbor
// layer behind the CASCADE engine's semantic stage (spec §4.4/§4.5):
// turning a symbol's signature/doc text into a vector, and turning a
// query string into the same space so pkg/cascade can rank by cosine
// similarity instead of exact name.
package semantic

import (
	"context"
	"fmt"
	"strings"

	cerrors "github.com/kraklabs/cortex/internal/errors"
)

// maxTokens is the BERT-family encoder's mandatory input cap; longer
// text is truncated rather than rejected, matching spec §4.4's
// "padding and truncation are mandatory, never optional" invariant.
const maxTokens = 512

// Embedder turns text into fixed-size vectors. Both the local
// (llama.cpp) and standalone (remote API via langchaingo) modes
// implement it; pkg/cascade and the rest of pkg/semantic only depend
// on this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Close() error
}

// truncate applies the mandatory token budget. It approximates "tokens"
// as whitespace-separated words, which is conservative for BPE/WordPiece
// tokenizers (they rarely produce fewer tokens than words) and avoids
// pulling in a full tokenizer here just to bound input length.
func truncate(text string) string {
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}
	return strings.Join(fields[:maxTokens], " ")
}

// TextForSymbol builds the embedding input for a code symbol: name,
// kind, signature, doc comment, and a small window of surrounding
// source lines ("code context"), concatenated so the vector captures
// the symbol's shape, intent, and immediate neighborhood — spec §4.4's
// embedding-input recipe. codeContext is empty when the caller couldn't
// read the source window (file gone, out-of-range lines); that's not
// an error, the vector just falls back to name/kind/signature/doc.
func TextForSymbol(qualifiedName, kind, signature, doc, codeContext string) string {
	var b strings.Builder
	b.WriteString(qualifiedName)
	if kind != "" {
		b.WriteString("\n")
		b.WriteString(kind)
	}
	if signature != "" {
		b.WriteString("\n")
		b.WriteString(signature)
	}
	if doc != "" {
		b.WriteString("\n")
		b.WriteString(doc)
	}
	if codeContext != "" {
		b.WriteString("\n")
		b.WriteString(codeContext)
	}
	return truncate(b.String())
}

// EmbedBatch embeds texts in batches sized by batchSize (already
// clamped by the caller's device-state logic), falling back to
// embedding one item at a time within a batch that fails outright —
// spec §4.4's "a batch failure falls back to embedding each item in
// that batch individually" invariant.
func EmbedBatch(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		vecs, err := e.Embed(ctx, chunk)
		if err == nil && len(vecs) == len(chunk) {
			out = append(out, vecs...)
			continue
		}

		// Batch failed (or returned a short result) — fall back item by
		// item so one bad input doesn't lose the whole batch.
		for _, t := range chunk {
			v, itemErr := e.Embed(ctx, []string{t})
			if itemErr != nil || len(v) != 1 {
				out = append(out, nil) // caller skips nil vectors
				continue
			}
			out = append(out, v[0])
		}
	}
	if len(out) != len(texts) {
		return out, cerrors.E(cerrors.Embedding, "semantic.EmbedBatch",
			fmt.Errorf("embedded %d of %d items", len(out), len(texts)))
	}
	return out, nil
}
