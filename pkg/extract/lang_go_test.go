// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cortex/pkg/store"
)

const goFixture = `package widgets

import "fmt"

type Greeter interface {
	Greet(name string) string
}

type EnglishGreeter struct {
	prefix string
}

func (g *EnglishGreeter) Greet(name string) string {
	return g.prefix + name
}

func NewEnglishGreeter(prefix string) *EnglishGreeter {
	g := &EnglishGreeter{prefix: prefix}
	fmt.Println(g.Greet("world"))
	return g
}
`

func TestGoExtractorFunctionsAndMethods(t *testing.T) {
	ext := NewGoExtractor()
	res, err := ext.Extract("ws1", "widgets.go", []byte(goFixture))
	require.NoError(t, err)
	assert.Equal(t, "widgets", res.PackageName)

	var foundFunc, foundMethod, foundIface, foundStruct bool
	for _, s := range res.Symbols {
		switch {
		case s.Kind == store.KindFunction && s.Name == "NewEnglishGreeter":
			foundFunc = true
			assert.Equal(t, store.Public, s.Visibility)
		case s.Kind == store.KindMethod && s.Name == "Greet" && s.QualifiedName == "EnglishGreeter.Greet":
			foundMethod = true
		case s.Kind == store.KindInterface && s.Name == "Greeter":
			foundIface = true
		case s.Kind == store.KindStruct && s.Name == "EnglishGreeter":
			foundStruct = true
		}
	}
	assert.True(t, foundFunc, "expected NewEnglishGreeter function symbol")
	assert.True(t, foundMethod, "expected EnglishGreeter.Greet method symbol")
	assert.True(t, foundIface, "expected Greeter interface symbol")
	assert.True(t, foundStruct, "expected EnglishGreeter struct symbol")

	var sawCallToGreet, sawCallToPrintln bool
	for _, p := range res.Pending {
		if p.ToName == "Greet" {
			sawCallToGreet = true
		}
		if p.ToName == "Println" {
			sawCallToPrintln = true
		}
	}
	assert.True(t, sawCallToGreet, "expected a pending call edge to Greet")
	assert.True(t, sawCallToPrintln, "expected a pending call edge to Println")
}

func TestGoExtractorInterfaceMethodMetadata(t *testing.T) {
	ext := NewGoExtractor()
	res, err := ext.Extract("ws1", "widgets.go", []byte(goFixture))
	require.NoError(t, err)

	found := false
	for _, s := range res.Symbols {
		if s.Kind == store.KindMethod && s.QualifiedName == "Greeter.Greet" {
			found = true
			assert.Equal(t, "true", s.Metadata["interface_method"])
		}
	}
	assert.True(t, found, "expected Greeter.Greet interface method symbol")
}

func TestGoExtractorStructFieldType(t *testing.T) {
	ext := NewGoExtractor()
	res, err := ext.Extract("ws1", "widgets.go", []byte(goFixture))
	require.NoError(t, err)

	found := false
	for _, s := range res.Symbols {
		if s.Kind == store.KindField && s.Name == "prefix" {
			found = true
			assert.Equal(t, "string", s.Metadata["field_type"])
		}
	}
	assert.True(t, found, "expected prefix field symbol with field_type metadata")
}
