// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kraklabs/cortex/pkg/store"
)

// DocExtractor handles Markdown, YAML, JSON, and TOML as documentation
// content per spec §4.1 point 7: it extracts sections/headings/top-level
// keys as symbols whose signature/doc fields carry the text content, so
// full-text and semantic search can reach documentation and config the
// same way they reach code. It never emits Relationships or Identifiers
// — documentation has no call graph.
type DocExtractor struct{}

func NewDocExtractor() *DocExtractor { return &DocExtractor{} }

func (d *DocExtractor) Language() string { return "doc" }

func (d *DocExtractor) Extract(workspaceID, path string, src []byte) (*ExtractionResult, error) {
	res := &ExtractionResult{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		extractMarkdown(workspaceID, path, src, res)
	case ".yaml", ".yml", ".json", ".toml":
		extractKeyedDoc(workspaceID, path, src, res)
	}
	return res, nil
}

// extractMarkdown turns each ATX heading ("#", "##", ...) into a symbol
// (a Heading for depth 1, a Section for deeper levels) whose body is every
// line up to (not including) the next heading of equal or lower depth.
func extractMarkdown(workspaceID, path string, src []byte, res *ExtractionResult) {
	lines := strings.Split(string(src), "\n")

	type open struct {
		depth     int
		name      string
		startLine int
		bodyStart int
	}
	var stack []open
	flush := func(o open, endLine int) {
		body := strings.Join(lines[o.bodyStart:endLine], "\n")
		id := store.SymbolID(workspaceID, path, store.KindSection, o.name, o.startLine)
		res.Symbols = append(res.Symbols, store.Symbol{
			ID: id, WorkspaceID: workspaceID, FilePath: path, Kind: sectionKind(o.depth), Name: o.name,
			Signature: o.name, Doc: strings.TrimSpace(body), StartLine: o.startLine + 1, EndLine: endLine,
			Visibility: store.Public, ContentType: store.ContentDocs,
		})
	}

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		depth := 0
		for depth < len(trimmed) && trimmed[depth] == '#' {
			depth++
		}
		if depth == 0 || depth > 6 || (depth < len(trimmed) && trimmed[depth] != ' ') {
			continue
		}
		name := strings.TrimSpace(trimmed[depth:])

		// close any open sections at >= this depth
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			top := stack[len(stack)-1]
			flush(top, i)
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, open{depth: depth, name: name, startLine: i, bodyStart: i + 1})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		flush(top, len(lines))
		stack = stack[:len(stack)-1]
	}
}

func sectionKind(depth int) store.Kind {
	if depth == 1 {
		return store.KindHeading
	}
	return store.KindSection
}

// extractKeyedDoc handles YAML/JSON/TOML by treating each top-level key
// (detected by indentation/line shape rather than a full parse, matching
// the lightweight, regex/line-based style the teacher's Parser uses for
// its "simplified" mode) as a Section symbol.
func extractKeyedDoc(workspaceID, path string, src []byte, res *ExtractionResult) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0
	var curKey string
	var curStart int
	var body []string

	flush := func(endLine int) {
		if curKey == "" {
			return
		}
		id := store.SymbolID(workspaceID, path, store.KindSection, curKey, curStart)
		res.Symbols = append(res.Symbols, store.Symbol{
			ID: id, WorkspaceID: workspaceID, FilePath: path, Kind: store.KindSection, Name: curKey,
			Signature: curKey, Doc: strings.TrimSpace(strings.Join(body, "\n")),
			StartLine: curStart + 1, EndLine: endLine, Visibility: store.Public, ContentType: store.ContentDocs,
		})
		body = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if isTopLevelKeyLine(line) {
			flush(lineNo)
			curKey = topLevelKeyName(line)
			curStart = lineNo
		}
		body = append(body, line)
		lineNo++
	}
	flush(lineNo)
}

// isTopLevelKeyLine reports whether line looks like a non-indented
// "key:" (YAML) or "[section]" (TOML) or a top-level JSON field.
func isTopLevelKeyLine(line string) bool {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return true
	}
	if idx := strings.Index(trimmed, ":"); idx > 0 {
		return true
	}
	if idx := strings.Index(trimmed, "\""); idx == 0 {
		return strings.Contains(trimmed, "\":")
	}
	return false
}

func topLevelKeyName(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "[") {
		return strings.Trim(trimmed, "[]")
	}
	trimmed = strings.Trim(trimmed, "\"")
	if idx := strings.Index(trimmed, ":"); idx > 0 {
		return strings.TrimSpace(strings.Trim(trimmed[:idx], "\""))
	}
	return fmt.Sprintf("key@%d", len(trimmed))
}
