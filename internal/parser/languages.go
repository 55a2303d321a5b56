// Package parser turns source files into syntax trees. Ballerina sources go
// through a hand-written front end; Go sources are parsed with tree-sitter.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/jward/semdiff/internal/syntax"
)

// Canonical language names.
const (
	LanguageBallerina = "ballerina"
	LanguageGo        = "go"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".bal": LanguageBallerina,
	".go":  LanguageGo,
}

// langToGrammar maps tree-sitter backed languages to their grammars.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			LanguageGo: golang.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter grammar for a language. Languages
// with a hand-written front end have no grammar.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// Extensions returns the supported file extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(extToLanguage))
	for ext := range extToLanguage {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Parse parses src with the front end selected by name's extension.
func Parse(ctx context.Context, name, src string) (*syntax.Document, error) {
	lang, ok := LanguageForFile(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedLanguage)
	}
	switch lang {
	case LanguageBallerina:
		return ParseBallerina(name, src)
	case LanguageGo:
		return ParseGo(ctx, name, src)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedLanguage)
}
