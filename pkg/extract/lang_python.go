// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/cortex/pkg/store"
)

// PythonExtractor is the Python grammar adapter: functions, classes and
// methods, imports, and call sites. Python has no visibility keywords,
// so the leading-underscore convention maps to Private per spec §4.1's
// "package-private maps to Private" guidance generalized to Python's
// closest analogue.
type PythonExtractor struct {
	pool sync.Pool
}

func NewPythonExtractor() *PythonExtractor {
	p := &PythonExtractor{}
	p.pool.New = func() any {
		parser := sitter.NewParser()
		parser.SetLanguage(python.GetLanguage())
		return parser
	}
	return p
}

func (p *PythonExtractor) Language() string { return "python" }

func (p *PythonExtractor) Extract(workspaceID, path string, src []byte) (*ExtractionResult, error) {
	parser := p.pool.Get().(*sitter.Parser)
	defer p.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &pyCtx{workspaceID: workspaceID, path: path, src: src, res: &ExtractionResult{}}

	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement", "import_from_statement":
			ctx.extractImport(n)
		case "class_definition":
			ctx.extractClass(n)
		case "function_definition":
			if n.Parent() != nil && n.Parent().Type() == "block" && isClassBody(n.Parent()) {
				return true // handled by extractClass to set parent_id
			}
			ctx.extractFunction(n, "", "")
		}
		return true
	})

	return ctx.res, nil
}

func isClassBody(block *sitter.Node) bool {
	p := block.Parent()
	return p != nil && p.Type() == "class_definition"
}

type pyCtx struct {
	workspaceID string
	path        string
	src         []byte
	res         *ExtractionResult
}

func (c *pyCtx) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *pyCtx) extractImport(n *sitter.Node) {
	line := int(n.StartPoint().Row) + 1
	txt := c.text(n)
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(txt, "import"), "from"))
	c.res.Imports = append(c.res.Imports, ImportRef{Path: name, Line: line})
	id := store.SymbolID(c.workspaceID, c.path, store.KindImport, name, int(n.StartByte()))
	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: id, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindImport, Name: name,
		Signature: txt, StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), StartLine: line, EndLine: line,
		Visibility: store.Public, ContentType: store.ContentCode,
	})
}

func (c *pyCtx) extractClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	symID := store.SymbolID(c.workspaceID, c.path, store.KindClass, name, int(n.StartByte()))

	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindClass, Name: name,
		QualifiedName: name, StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), StartLine: startLine, EndLine: endLine,
		Visibility: pyVisibility(name), ContentType: store.ContentCode,
	})

	if superclasses := n.ChildByFieldName("superclasses"); superclasses != nil {
		for i := 0; i < int(superclasses.NamedChildCount()); i++ {
			base := c.text(superclasses.NamedChild(i))
			if base == "" || base == "object" {
				continue
			}
			c.res.Pending = append(c.res.Pending, PendingRel{FromSymbolID: symID, ToName: base, Kind: store.RelExtends, Confidence: 0.8, Line: startLine})
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() == "function_definition" {
			c.extractFunction(m, name, symID)
		}
	}
}

func (c *pyCtx) extractFunction(n *sitter.Node, owner, parentID string) {
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

	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: kind, Name: name, QualifiedName: qualified,
		ParentID: parentID, Signature: "def " + name + params, StartByte: int(n.StartByte()), EndByte: int(n.EndByte()),
		StartLine: startLine, EndLine: endLine, Visibility: pyVisibility(name), ContentType: store.ContentCode,
	})

	if body := n.ChildByFieldName("body"); body != nil {
		c.extractCalls(body, symID)
	}
}

func (c *pyCtx) extractCalls(body *sitter.Node, callerID string) {
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "call" {
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
		case "attribute":
			if attr := fn.ChildByFieldName("attribute"); attr != nil {
				name = c.text(attr)
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

func pyVisibility(name string) store.Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return store.Public
	}
	if strings.HasPrefix(name, "_") {
		return store.Private
	}
	return store.Public
}
