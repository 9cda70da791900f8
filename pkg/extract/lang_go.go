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
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/cortex/pkg/sigparse"
	"github.com/kraklabs/cortex/pkg/store"
)

// GoExtractor is the Go grammar adapter. It is stateless between calls:
// the only per-instance state is the parser pool, which hands out one
// *sitter.Parser per goroutine and returns it when done, matching the
// teacher's per-thread pool pattern in parser_treesitter.go generalized
// from four hard-coded pools to one pool per adapter instance.
type GoExtractor struct {
	pool sync.Pool
}

// NewGoExtractor constructs a Go adapter with a lazily-initialized
// tree-sitter parser pool.
func NewGoExtractor() *GoExtractor {
	g := &GoExtractor{}
	g.pool.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(golang.GetLanguage())
		return p
	}
	return g
}

func (g *GoExtractor) Language() string { return "go" }

func (g *GoExtractor) Extract(workspaceID, path string, src []byte) (*ExtractionResult, error) {
	parser := g.pool.Get().(*sitter.Parser)
	defer g.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &goCtx{workspaceID: workspaceID, path: path, src: src, res: &ExtractionResult{}}
	ctx.res.PackageName = ctx.packageName(root)

	var parentStack []string // struct/interface symbol ids currently open, for parent_id

	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_spec":
			ctx.extractImport(n)
		case "function_declaration":
			ctx.extractFunc(n, "")
		case "method_declaration":
			ctx.extractMethod(n)
		case "type_declaration":
			ctx.extractTypeDecl(n, &parentStack)
		}
		return true
	})

	return ctx.res, nil
}

type goCtx struct {
	workspaceID string
	path        string
	src         []byte
	res         *ExtractionResult
}

func (c *goCtx) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *goCtx) packageName(root *sitter.Node) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		ch := root.Child(i)
		if ch.Type() == "package_clause" {
			if id := ch.ChildByFieldName("name"); id != nil {
				return c.text(id)
			}
		}
	}
	return ""
}

func (c *goCtx) extractImport(n *sitter.Node) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	importPath := strings.Trim(c.text(pathNode), `"`)
	alias := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		alias = c.text(nameNode)
	}
	line := int(n.StartPoint().Row) + 1
	c.res.Imports = append(c.res.Imports, ImportRef{Path: importPath, Alias: alias, Line: line})

	simple := importPath
	if idx := strings.LastIndex(simple, "/"); idx >= 0 {
		simple = simple[idx+1:]
	}
	id := store.SymbolID(c.workspaceID, c.path, store.KindImport, importPath, int(n.StartByte()))
	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: id, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindImport, Name: simple,
		QualifiedName: importPath, Signature: c.text(n), StartByte: int(n.StartByte()), EndByte: int(n.EndByte()),
		StartLine: line, EndLine: line, Visibility: store.Public, ContentType: store.ContentCode,
	})
}

func (c *goCtx) extractFunc(n *sitter.Node, receiverType string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	kind := store.KindFunction
	qualified := name
	if receiverType != "" {
		kind = store.KindMethod
		qualified = receiverType + "." + name
	}
	sig := c.signatureFor(n, name, receiverType)
	vis := visibilityOf(name)

	symID := store.SymbolID(c.workspaceID, c.path, kind, name, int(n.StartByte()))
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1

	c.res.Symbols = append(c.res.Symbols, store.Symbol{
		ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: kind, Name: name, QualifiedName: qualified,
		Signature: sig, StartByte: int(n.StartByte()), EndByte: int(n.EndByte()), StartLine: startLine, EndLine: endLine,
		Visibility: vis, ContentType: store.ContentCode,
	})

	// Parameters become TypeInfo-adjacent Identifier occurrences, and the
	// call body is walked for Calls relationships/identifiers.
	for _, p := range sigparse.ParseGoParams(sig) {
		c.res.Identifiers = append(c.res.Identifiers, store.Identifier{
			ID: store.IdentifierID(c.workspaceID, c.path, p.Type, startLine, 0), WorkspaceID: c.workspaceID,
			Name: p.Type, Kind: store.IdentTypeUsage, FilePath: c.path, Line: startLine, ContainingSymbolID: symID,
		})
	}

	if body := n.ChildByFieldName("body"); body != nil {
		c.extractCalls(body, symID)
	}
}

func (c *goCtx) extractMethod(n *sitter.Node) {
	recvNode := n.ChildByFieldName("receiver")
	receiverType := extractReceiverType(c, recvNode)
	c.extractFunc(n, receiverType)
}

func extractReceiverType(c *goCtx, recv *sitter.Node) string {
	if recv == nil {
		return ""
	}
	// receiver is a parameter_list containing one parameter_declaration
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		pd := recv.NamedChild(i)
		if t := pd.ChildByFieldName("type"); t != nil {
			txt := strings.TrimLeft(c.text(t), "*")
			return txt
		}
	}
	return ""
}

func (c *goCtx) extractTypeDecl(n *sitter.Node, parentStack *[]string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := c.text(nameNode)
		kind := kindForGoType(typeNode)
		startLine := int(spec.StartPoint().Row) + 1
		endLine := int(spec.EndPoint().Row) + 1
		symID := store.SymbolID(c.workspaceID, c.path, kind, name, int(spec.StartByte()))

		c.res.Symbols = append(c.res.Symbols, store.Symbol{
			ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: kind, Name: name, QualifiedName: name,
			Signature: c.text(typeNode), StartByte: int(spec.StartByte()), EndByte: int(spec.EndByte()),
			StartLine: startLine, EndLine: endLine, Visibility: visibilityOf(name), ContentType: store.ContentCode,
		})

		if kind == store.KindStruct {
			c.extractStructFields(typeNode, name, symID)
		}
		if kind == store.KindInterface {
			c.extractInterfaceMethods(typeNode, name, symID)
		}
	}
}

func kindForGoType(typeNode *sitter.Node) store.Kind {
	switch typeNode.Type() {
	case "struct_type":
		return store.KindStruct
	case "interface_type":
		return store.KindInterface
	default:
		return store.KindTypeAlias
	}
}

func (c *goCtx) extractStructFields(structType *sitter.Node, structName, parentID string) {
	fieldList := structType.ChildByFieldName("field_list")
	if fieldList == nil {
		// some grammar versions name it body
		for i := 0; i < int(structType.ChildCount()); i++ {
			if structType.Child(i).Type() == "field_declaration_list" {
				fieldList = structType.Child(i)
				break
			}
		}
	}
	if fieldList == nil {
		return
	}
	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fd := fieldList.NamedChild(i)
		if fd.Type() != "field_declaration" {
			continue
		}
		typeNode := fd.ChildByFieldName("type")
		fieldType := c.text(typeNode)
		for j := 0; j < int(fd.NamedChildCount()); j++ {
			child := fd.NamedChild(j)
			if child.Type() != "field_identifier" {
				continue
			}
			fieldName := c.text(child)
			line := int(fd.StartPoint().Row) + 1
			symID := store.SymbolID(c.workspaceID, c.path, store.KindField, structName+"."+fieldName, int(fd.StartByte()))
			c.res.Symbols = append(c.res.Symbols, store.Symbol{
				ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindField, Name: fieldName,
				QualifiedName: structName + "." + fieldName, ParentID: parentID, Signature: fieldType,
				StartByte: int(fd.StartByte()), EndByte: int(fd.EndByte()), StartLine: line, EndLine: line,
				Visibility: visibilityOf(fieldName), ContentType: store.ContentCode,
				Metadata: map[string]string{"field_type": sigparse.NormalizeType(fieldType)},
			})
		}
	}
}

func (c *goCtx) extractInterfaceMethods(ifaceType *sitter.Node, ifaceName, parentID string) {
	for i := 0; i < int(ifaceType.NamedChildCount()); i++ {
		m := ifaceType.NamedChild(i)
		if m.Type() != "method_spec" {
			continue
		}
		nameNode := m.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := c.text(nameNode)
		line := int(m.StartPoint().Row) + 1
		symID := store.SymbolID(c.workspaceID, c.path, store.KindMethod, ifaceName+"."+name, int(m.StartByte()))
		c.res.Symbols = append(c.res.Symbols, store.Symbol{
			ID: symID, WorkspaceID: c.workspaceID, FilePath: c.path, Kind: store.KindMethod, Name: name,
			QualifiedName: ifaceName + "." + name, ParentID: parentID, Signature: c.text(m),
			StartByte: int(m.StartByte()), EndByte: int(m.EndByte()), StartLine: line, EndLine: line,
			Visibility: store.Public, ContentType: store.ContentCode, Metadata: map[string]string{"interface_method": "true"},
		})
	}
}

// extractCalls walks a function body for call_expression nodes, emitting
// an Identifier and a Pending Calls edge for every call site; the resolver
// stitches the Pending edges to target symbols later.
func (c *goCtx) extractCalls(body *sitter.Node, callerID string) {
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		name := calleeName(c, fn)
		if name == "" {
			return true
		}
		line := int(n.StartPoint().Row) + 1
		col := int(n.StartPoint().Column)

		c.res.Identifiers = append(c.res.Identifiers, store.Identifier{
			ID: store.IdentifierID(c.workspaceID, c.path, name, line, col), WorkspaceID: c.workspaceID,
			Name: name, Kind: store.IdentCall, FilePath: c.path, Line: line, Column: col, ContainingSymbolID: callerID,
		})
		c.res.Pending = append(c.res.Pending, PendingRel{
			FromSymbolID: callerID, ToName: name, Kind: store.RelCalls, Confidence: 0.9, Line: line,
		})
		return true
	})
}

// calleeName extracts the simple name of a call target:
// "foo()" -> "foo", "pkg.Foo()" -> "Foo", "recv.Method()" -> "Method"
// (field/method dispatch is qualified at resolution time, not here).
func calleeName(c *goCtx, fn *sitter.Node) string {
	switch fn.Type() {
	case "identifier":
		return c.text(fn)
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		if field == nil {
			return ""
		}
		return c.text(field)
	default:
		return ""
	}
}

func (c *goCtx) signatureFor(n *sitter.Node, name, receiverType string) string {
	params := n.ChildByFieldName("parameters")
	result := n.ChildByFieldName("result")
	var b strings.Builder
	b.WriteString("func ")
	if receiverType != "" {
		b.WriteString("(r *")
		b.WriteString(receiverType)
		b.WriteString(") ")
	}
	b.WriteString(name)
	b.WriteString(c.text(params))
	if result != nil {
		b.WriteString(" ")
		b.WriteString(c.text(result))
	}
	return b.String()
}

// visibilityOf maps Go's capitalization-based export rule onto the
// closed {Public, Private, Protected} set (spec §4.1 invariant 3).
func visibilityOf(name string) store.Visibility {
	if name == "" {
		return store.Private
	}
	r := name[0]
	if r >= 'A' && r <= 'Z' {
		return store.Public
	}
	return store.Private
}

// walk performs a pre-order traversal, stopping descent into a subtree
// when visit returns false.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}
