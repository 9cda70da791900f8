// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/cortex/pkg/store"
)

// JSExtractor covers JavaScript and TypeScript with one adapter,
// selecting the grammar by extension at parse time. Exported-ness in
// ESM maps onto the closed visibility set via the presence of an
// `export` keyword: exported top-level classes and functions are Public,
// non-exported ones Private. Imports and class methods are always Public.
type JSExtractor struct {
	jsPool sync.Pool
	tsPool sync.Pool
}

func NewJSExtractor() *JSExtractor {
	e := &JSExtractor{}
	e.jsPool.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(javascript.GetLanguage())
		return p
	}
	e.tsPool.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(typescript.GetLanguage())
		return p
	}
	return e
}

func (e *JSExtractor) Language() string { return "javascript" }

func (e *JSExtractor) Extract(workspaceID, path string, src []byte) (*ExtractionResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	isTS := ext == ".ts" || ext == ".tsx"

	var parser *sitter.Parser
	if isTS {
		parser = e.tsPool.Get().(*sitter.Parser)
		defer e.tsPool.Put(parser)
	} else {
		parser = e.jsPool.Get().(*sitter.Parser)
		defer e.jsPool.Put(parser)
	}

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &jsCtx{workspaceID: workspaceID, path: path, src: src, res: &ExtractionResult{}}

	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			ctx.extractImport(n)
		case "class_declaration":
			ctx.extractClass(n)
		case "function_declaration":
			ctx.extractFunction(n, "", "", exported(n))
		}
		return true
	})

	return ctx.res, nil
}

type jsCtx struct {
	workspaceID string
	path        string
	src         []byte
	res         *ExtractionResult
}

func (c *jsCtx) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func exported(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.Type() == "export_statement"
}

func (c *jsCtx) extractImport(n *sitter.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	importPath := strings.Trim(c.text(src), `"'`)
	line := int(n.StartPoint().Row) + 1
	c.res.Imports = append(c.res.Imports, ImportRef{Path: importPath, Line: line})
	id := store.SymbolID(c.workspaceID, c.path, store.KindImport, importPath, int(n.StartByte()))
	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: id, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindImport, Name: importPath,
		Signature: c.text(n), StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), StartLine: line, EndLine: line,
		Visibility: store.Public, ContentType: store.ContentCode,
	})
}

func (c *jsCtx) extractClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	symID := store.SymbolID(c.workspaceID, c.path, store.KindClass, name, int(n.StartByte()))
	vis := store.Private
	if exported(n) {
		vis = store.Public
	}

	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindClass, Name: name, QualifiedName: name,
		StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), StartLine: startLine, EndLine: endLine,
		Visibility: vis, ContentType: store.ContentCode,
	})

	if heritage := n.ChildByFieldName("superclass"); heritage != nil {
		base := c.text(heritage)
		c.res.Pending = append(c.res.Pending, PendingRel{FromSymbolID: symID, ToName: base, Kind: store.RelExtends, Confidence: 0.8, Line: startLine})
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() == "method_definition" {
			c.extractFunction(m, name, symID, true)
		}
	}
}

func (c *jsCtx) extractFunction(n *sitter.Node, owner, parentID string, vis bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	kind := store.KindFunction
	qualified := name
	if owner != "" {
		kind = store.KindMethod
		qualified = owner + "." + name
	}
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	symID := store.SymbolID(c.workspaceID, c.path, kind, name, int(n.StartByte()))
	params := c.text(n.ChildByFieldName("parameters"))
	visibility := store.Private
	if vis {
		visibility = store.Public
	}

	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: kind, Name: name, QualifiedName: qualified,
		ParentID: parentID, Signature: "function " + name + params, StartByte: int(n.StartByte()), EndByte: int(n.EndByte()),
		StartLine: startLine, EndLine: endLine, Visibility: visibility, ContentType: store.ContentCode,
	})

	if body := n.ChildByFieldName("body"); body != nil {
		c.extractCalls(body, symID)
	}
}

func (c *jsCtx) extractCalls(body *sitter.Node, callerID string) {
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		var name string
		switch fn.Type() {
		case "identifier":
			name = c.text(fn)
		case "member_expression":
			if prop := fn.ChildByFieldName("property"); prop != nil {
				name = c.text(prop)
			}
		}
		if name == "" {
			return true
		}
		line := int(n.StartPoint().Row) + 1
		col := int(n.StartPoint().Column)
		c.res.Identifiers = append(c.res.Identifiers, store.Identifier{
			ID: store.IdentifierID(c.workspaceID, c.path, name, line, col), WorkspaceID: c.workspaceID,
			Name: name, Kind: store.IdentCall, FilePath: c.path, Line: line, Column: col, ContainingSymbolID: callerID,
		})
		c.res.Pending = append(c.res.Pending, PendingRel{FromSymbolID: callerID, ToName: name, Kind: store.RelCalls, Confidence: 0.85, Line: line})
		return true
	})
}
