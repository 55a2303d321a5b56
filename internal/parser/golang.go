package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/semdiff/internal/syntax"
)

// ParseGo parses a Go source file with tree-sitter and maps it onto the
// declaration model: functions become module functions, each type spec a
// type definition, and the methods of one receiver type are grouped into a
// synthetic service whose path is the receiver type name. The file name
// stands in for the listener list, so the methods a receiver declares in
// different files keep distinct keys. Go has no listeners and no
// expression-bodied functions.
func ParseGo(ctx context.Context, name, src string) (*syntax.Document, error) {
	lang, _ := GrammarForLanguage(LanguageGo)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	content := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstSyntaxError(name, root)
	}

	b := &goBuilder{name: name, src: content}
	module := &syntax.ModulePart{
		Node: syntax.Node{Text: src, Range: syntax.NewLineMap(src).Range(name, 0, len(src))},
	}
	services := make(map[string]*syntax.Service)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			module.Members = append(module.Members, b.function(child))
		case "method_declaration":
			recv := receiverTypeName(child.ChildByFieldName("receiver"), content)
			svc, ok := services[recv]
			if !ok {
				svc = &syntax.Service{AbsolutePath: []string{recv}, Expressions: []string{name}}
				services[recv] = svc
				module.Members = append(module.Members, svc)
			}
			svc.Members = append(svc.Members, b.function(child))
		case "type_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
					continue
				}
				module.Members = append(module.Members, &syntax.TypeDef{
					Node: b.node(spec),
					Name: strings.TrimSpace(spec.ChildByFieldName("name").Content(content)),
				})
			}
		case "comment":
		default:
			module.Members = append(module.Members, &syntax.Other{Node: b.node(child), Keyword: child.Type()})
		}
	}
	for _, svc := range services {
		b.finishService(svc)
	}
	return &syntax.Document{Name: name, Language: LanguageGo, Source: src, Root: module}, nil
}

type goBuilder struct {
	name string
	src  []byte
}

func (b *goBuilder) node(n *sitter.Node) syntax.Node {
	start, end := n.StartPoint(), n.EndPoint()
	return syntax.Node{
		Text: n.Content(b.src),
		Range: syntax.LineRange{
			FileName:  b.name,
			StartLine: syntax.LinePosition{Line: int(start.Row), Offset: int(start.Column)},
			EndLine:   syntax.LinePosition{Line: int(end.Row), Offset: int(end.Column)},
		},
	}
}

func (b *goBuilder) function(n *sitter.Node) *syntax.Function {
	fn := &syntax.Function{
		Node: b.node(n),
		Name: strings.TrimSpace(n.ChildByFieldName("name").Content(b.src)),
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		fn.Body = &syntax.ExternalBody{}
		return fn
	}
	block := &syntax.BlockBody{Node: b.node(body)}
	b.collectStatements(body, block)
	fn.Body = block
	return fn
}

// collectStatements appends the statements of a block. Grammar versions
// differ on whether statements sit directly under the block or inside a
// statement_list node.
func (b *goBuilder) collectStatements(n *sitter.Node, block *syntax.BlockBody) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "comment":
		case "statement_list":
			b.collectStatements(child, block)
		default:
			block.Statements = append(block.Statements, syntax.Statement{Node: b.node(child)})
		}
	}
}

// finishService derives the synthetic service's text and range from its
// methods.
func (b *goBuilder) finishService(svc *syntax.Service) {
	texts := make([]string, 0, len(svc.Members))
	for _, m := range svc.Members {
		texts = append(texts, m.SourceCode())
	}
	first := svc.Members[0].LineRange()
	last := svc.Members[len(svc.Members)-1].LineRange()
	svc.Node = syntax.Node{
		Text: strings.Join(texts, "\n\n"),
		Range: syntax.LineRange{
			FileName:  b.name,
			StartLine: first.StartLine,
			EndLine:   last.EndLine,
		},
	}
}

// receiverTypeName returns the base type name of a method receiver,
// stripping pointers and type arguments.
func receiverTypeName(recv *sitter.Node, src []byte) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		t := param.ChildByFieldName("type")
		for t != nil {
			switch t.Type() {
			case "pointer_type":
				t = t.NamedChild(0)
				continue
			case "generic_type":
				t = t.ChildByFieldName("type")
				continue
			}
			return strings.TrimSpace(t.Content(src))
		}
	}
	return ""
}

func firstSyntaxError(name string, root *sitter.Node) error {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if found == nil {
		found = root
	}
	p := found.StartPoint()
	return &SyntaxError{File: name, Line: int(p.Row), Offset: int(p.Column), Msg: "syntax error"}
}
