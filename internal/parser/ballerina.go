package parser

import (
	"fmt"
	"strings"

	"github.com/jward/semdiff/internal/syntax"
)

// memberQualifiers may precede a module-level or service-level member.
var memberQualifiers = map[string]bool{
	"public":        true,
	"private":       true,
	"isolated":      true,
	"transactional": true,
	"final":         true,
	"configurable":  true,
	"readonly":      true,
	"client":        true,
	"distinct":      true,
	"remote":        true,
	"resource":      true,
}

// compoundStatements end at the closing brace of their last block rather
// than at a semicolon.
var compoundStatements = map[string]bool{
	"if":          true,
	"while":       true,
	"foreach":     true,
	"match":       true,
	"do":          true,
	"lock":        true,
	"transaction": true,
	"retry":       true,
	"fork":        true,
	"worker":      true,
}

var closerFor = map[string]string{"(": ")", "[": "]", "{": "}"}

func isOpener(t token) bool {
	if t.kind != tokPunct {
		return false
	}
	_, ok := closerFor[t.text]
	return ok
}

func isCloser(t token) bool {
	return t.kind == tokPunct && (t.text == ")" || t.text == "]" || t.text == "}")
}

type balParser struct {
	file  string
	src   string
	toks  []token
	pos   int
	lines *syntax.LineMap
}

// ParseBallerina parses a Ballerina source file. Only the structure the diff
// engine needs is recovered: top-level members, service members, function
// bodies and the statements of block bodies. Everything else is kept as
// rendered text.
func ParseBallerina(name, src string) (*syntax.Document, error) {
	toks, err := lex(name, src)
	if err != nil {
		return nil, err
	}
	p := &balParser{file: name, src: src, toks: toks, lines: syntax.NewLineMap(src)}

	root := &syntax.ModulePart{
		Node: syntax.Node{Text: src, Range: p.lines.Range(name, 0, len(src))},
	}
	for !p.atEOF() {
		if p.at(";") {
			p.pos++
			continue
		}
		m, err := p.parseMember(false)
		if err != nil {
			return nil, err
		}
		root.Members = append(root.Members, m)
	}
	return &syntax.Document{Name: name, Language: LanguageBallerina, Source: src, Root: root}, nil
}

// --- token helpers ---

func (p *balParser) peek() token { return p.toks[p.pos] }

func (p *balParser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *balParser) atEOF() bool { return p.peek().kind == tokEOF }

func (p *balParser) at(text string) bool { return matches(p.peek(), text) }

func matches(t token, text string) bool {
	return (t.kind == tokIdent || t.kind == tokPunct) && t.text == text
}

func textIn(texts ...string) func(token) bool {
	return func(t token) bool {
		for _, text := range texts {
			if matches(t, text) {
				return true
			}
		}
		return false
	}
}

func (p *balParser) errorf(t token, format string, args ...any) error {
	pos := p.lines.Position(t.start)
	return &SyntaxError{File: p.file, Line: pos.Line, Offset: pos.Offset, Msg: fmt.Sprintf(format, args...)}
}

// text returns the source between the first and last token, inclusive.
func (p *balParser) text(first, last int) string {
	return p.src[p.toks[first].start:p.toks[last].end]
}

func (p *balParser) node(first, last int) syntax.Node {
	start, end := p.toks[first].start, p.toks[last].end
	return syntax.Node{Text: p.src[start:end], Range: p.lines.Range(p.file, start, end)}
}

// skipGroup consumes a balanced (), [] or {} group starting at the current
// opener and returns the index of its closing token.
func (p *balParser) skipGroup() (int, error) {
	open := p.peek()
	var stack []string
	for !p.atEOF() {
		t := p.peek()
		switch {
		case isOpener(t):
			stack = append(stack, closerFor[t.text])
		case isCloser(t):
			if len(stack) == 0 || stack[len(stack)-1] != t.text {
				return 0, p.errorf(t, "unexpected %q", t.text)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				p.pos++
				return p.pos - 1, nil
			}
		}
		p.pos++
	}
	return 0, p.errorf(open, "unclosed %q", open.text)
}

// skipUntil advances over tokens and balanced groups until stop matches, an
// unmatched closer is reached, or input ends. The stopping token is not
// consumed.
func (p *balParser) skipUntil(stop func(token) bool) error {
	for !p.atEOF() {
		t := p.peek()
		if stop(t) || isCloser(t) {
			return nil
		}
		if isOpener(t) {
			if _, err := p.skipGroup(); err != nil {
				return err
			}
			continue
		}
		p.pos++
	}
	return nil
}

// skipPastSemicolon consumes through the next top-level semicolon and
// returns the index of the last consumed token.
func (p *balParser) skipPastSemicolon(start int) (int, error) {
	if err := p.skipUntil(textIn(";")); err != nil {
		return 0, err
	}
	if p.at(";") {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf(p.peek(), "unexpected %q", p.peek().text)
	}
	return p.pos - 1, nil
}

func (p *balParser) skipAnnotations() error {
	for p.at("@") {
		p.pos++
		if p.peek().kind == tokIdent {
			p.pos++
		}
		if p.at(":") && p.peekAt(1).kind == tokIdent {
			p.pos += 2
		}
		if p.at("{") {
			if _, err := p.skipGroup(); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- members ---

func (p *balParser) parseMember(inService bool) (syntax.Member, error) {
	start := p.pos
	if err := p.skipAnnotations(); err != nil {
		return nil, err
	}
	var quals []string
	for p.peek().kind == tokIdent && memberQualifiers[p.peek().text] {
		quals = append(quals, p.peek().text)
		p.pos++
	}

	kw := p.peek()
	if kw.kind != tokIdent {
		return p.parseOther(start)
	}
	switch kw.text {
	case "function":
		if matches(p.peekAt(1), "(") {
			return p.parseOther(start)
		}
		return p.parseFunction(start, quals)
	case "listener":
		if inService {
			return p.parseOther(start)
		}
		return p.parseListener(start)
	case "service":
		next := p.peekAt(1)
		switch {
		case matches(next, "class"):
			p.pos++
			return p.parseBracedOther(start)
		case matches(next, "object") || inService:
			return p.parseOther(start)
		}
		return p.parseService(start)
	case "type":
		return p.parseTypeDef(start)
	case "class", "enum":
		return p.parseBracedOther(start)
	}
	return p.parseOther(start)
}

func (p *balParser) parseOther(start int) (syntax.Member, error) {
	kw := p.peek().text
	last, err := p.skipPastSemicolon(start)
	if err != nil {
		return nil, err
	}
	return &syntax.Other{Node: p.node(start, last), Keyword: kw}, nil
}

func (p *balParser) parseBracedOther(start int) (syntax.Member, error) {
	kw := p.peek().text
	if err := p.skipUntil(textIn("{")); err != nil {
		return nil, err
	}
	if !p.at("{") {
		return nil, p.errorf(p.peek(), "expected '{' in %s declaration", kw)
	}
	last, err := p.skipGroup()
	if err != nil {
		return nil, err
	}
	return &syntax.Other{Node: p.node(start, last), Keyword: kw}, nil
}

func (p *balParser) parseListener(start int) (syntax.Member, error) {
	p.pos++ // listener
	declStart := p.pos
	if err := p.skipUntil(textIn("=")); err != nil {
		return nil, err
	}
	if !p.at("=") || p.pos == declStart {
		return nil, p.errorf(p.peek(), "expected '=' in listener declaration")
	}
	nameTok := p.toks[p.pos-1]
	if nameTok.kind != tokIdent {
		return nil, p.errorf(nameTok, "expected listener name")
	}
	l := &syntax.Listener{Name: strings.TrimSpace(nameTok.text)}
	if p.pos-2 >= declStart {
		l.TypeDesc = p.text(declStart, p.pos-2)
	}
	p.pos++ // =
	initStart := p.pos
	if err := p.skipUntil(textIn(";")); err != nil {
		return nil, err
	}
	if p.pos == initStart {
		return nil, p.errorf(p.peek(), "expected listener initializer")
	}
	l.Initializer = p.text(initStart, p.pos-1)
	last, err := p.skipPastSemicolon(start)
	if err != nil {
		return nil, err
	}
	l.Node = p.node(start, last)
	return l, nil
}

func (p *balParser) parseTypeDef(start int) (syntax.Member, error) {
	p.pos++ // type
	nameTok := p.peek()
	if nameTok.kind != tokIdent {
		return nil, p.errorf(nameTok, "expected type name")
	}
	p.pos++
	last, err := p.skipPastSemicolon(start)
	if err != nil {
		return nil, err
	}
	return &syntax.TypeDef{Node: p.node(start, last), Name: strings.TrimSpace(nameTok.text)}, nil
}

func (p *balParser) parseService(start int) (syntax.Member, error) {
	p.pos++ // service
	svc := &syntax.Service{}

	// Optional type descriptor, e.g. `service http:Service /api on ep`.
	tdStart := p.pos
	for !p.atEOF() && !p.at("/") && p.peek().kind != tokString && !p.at("on") && !p.at("{") {
		if isCloser(p.peek()) {
			return nil, p.errorf(p.peek(), "unexpected %q in service declaration", p.peek().text)
		}
		if isOpener(p.peek()) {
			if _, err := p.skipGroup(); err != nil {
				return nil, err
			}
			continue
		}
		p.pos++
	}
	if p.pos > tdStart {
		svc.TypeDesc = p.text(tdStart, p.pos-1)
	}

	for !p.atEOF() && !p.at("on") && !p.at("{") {
		if isOpener(p.peek()) || isCloser(p.peek()) {
			return nil, p.errorf(p.peek(), "unexpected %q in service path", p.peek().text)
		}
		svc.AbsolutePath = append(svc.AbsolutePath, strings.TrimSpace(p.peek().text))
		p.pos++
	}

	if p.at("on") {
		p.pos++
		for {
			exprStart := p.pos
			if err := p.skipUntil(textIn(",", "{")); err != nil {
				return nil, err
			}
			if p.pos == exprStart {
				return nil, p.errorf(p.peek(), "expected listener expression")
			}
			svc.Expressions = append(svc.Expressions, strings.TrimSpace(p.text(exprStart, p.pos-1)))
			if !p.at(",") {
				break
			}
			p.pos++
		}
	}

	if !p.at("{") {
		return nil, p.errorf(p.peek(), "expected '{' to open service body")
	}
	open := p.peek()
	p.pos++
	for {
		if p.atEOF() {
			return nil, p.errorf(open, "unclosed service body")
		}
		if p.at("}") {
			svc.Node = p.node(start, p.pos)
			p.pos++
			break
		}
		if p.at(";") {
			p.pos++
			continue
		}
		m, err := p.parseMember(true)
		if err != nil {
			return nil, err
		}
		svc.Members = append(svc.Members, m)
	}
	return svc, nil
}

func (p *balParser) parseFunction(start int, quals []string) (syntax.Member, error) {
	p.pos++ // function
	nameTok := p.peek()
	if nameTok.kind != tokIdent {
		return nil, p.errorf(nameTok, "expected function name")
	}
	p.pos++
	fn := &syntax.Function{Qualifiers: quals, Name: strings.TrimSpace(nameTok.text)}

	// Resource methods carry a relative path between accessor and parameters.
	for !p.atEOF() && !p.at("(") {
		t := p.peek()
		switch {
		case matches(t, "["):
			first := p.pos
			last, err := p.skipGroup()
			if err != nil {
				return nil, err
			}
			fn.RelativePath = append(fn.RelativePath, strings.TrimSpace(p.text(first, last)))
		case isOpener(t) || isCloser(t) || matches(t, ";"):
			return nil, p.errorf(t, "expected '(' after function name")
		default:
			fn.RelativePath = append(fn.RelativePath, strings.TrimSpace(t.text))
			p.pos++
		}
	}
	if !p.at("(") {
		return nil, p.errorf(p.peek(), "expected parameter list")
	}
	if _, err := p.skipGroup(); err != nil {
		return nil, err
	}

	body, last, err := p.parseFunctionBody()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.Node = p.node(start, last)
	return fn, nil
}

// parseFunctionBody skips the optional return type and parses the body that
// follows it. It returns the body and the index of its last token.
func (p *balParser) parseFunctionBody() (syntax.Body, int, error) {
	for {
		t := p.peek()
		switch {
		case p.atEOF():
			return nil, 0, p.errorf(t, "expected function body")
		case matches(t, "{"):
			prev := p.toks[p.pos-1]
			if matches(prev, "record") || matches(prev, "object") {
				if _, err := p.skipGroup(); err != nil {
					return nil, 0, err
				}
				continue
			}
			return p.parseBlockBody()
		case matches(t, "=>"):
			return p.parseExprBody()
		case matches(t, "="):
			return p.parseExternalBody()
		case matches(t, "(") || matches(t, "["):
			if _, err := p.skipGroup(); err != nil {
				return nil, 0, err
			}
		case matches(t, ";") || isCloser(t):
			return nil, 0, p.errorf(t, "expected function body")
		default:
			p.pos++
		}
	}
}

func (p *balParser) parseBlockBody() (syntax.Body, int, error) {
	open := p.pos
	p.pos++
	body := &syntax.BlockBody{}
	for {
		if p.atEOF() {
			return nil, 0, p.errorf(p.toks[open], "unclosed function body")
		}
		if p.at("}") {
			body.Node = p.node(open, p.pos)
			p.pos++
			return body, p.pos - 1, nil
		}
		if p.at(";") {
			p.pos++
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, 0, err
		}
		body.Statements = append(body.Statements, stmt)
	}
}

func (p *balParser) parseExprBody() (syntax.Body, int, error) {
	first := p.pos
	p.pos++ // =>
	exprStart := p.pos
	if err := p.skipUntil(textIn(";")); err != nil {
		return nil, 0, err
	}
	if p.pos == exprStart {
		return nil, 0, p.errorf(p.peek(), "expected expression after '=>'")
	}
	expr := p.text(exprStart, p.pos-1)
	if p.at(";") {
		p.pos++
	}
	last := p.pos - 1
	return &syntax.ExprBody{Node: p.node(first, last), Expr: expr}, last, nil
}

func (p *balParser) parseExternalBody() (syntax.Body, int, error) {
	first := p.pos
	last, err := p.skipPastSemicolon(first)
	if err != nil {
		return nil, 0, err
	}
	return &syntax.ExternalBody{Node: p.node(first, last)}, last, nil
}

// --- statements ---

func (p *balParser) parseStatement() (syntax.Statement, error) {
	start := p.pos
	if err := p.skipAnnotations(); err != nil {
		return syntax.Statement{}, err
	}

	kw := p.peek()
	switch {
	case matches(kw, "{"):
		last, err := p.skipGroup()
		if err != nil {
			return syntax.Statement{}, err
		}
		return syntax.Statement{Node: p.node(start, last)}, nil
	case kw.kind == tokIdent && compoundStatements[kw.text]:
		last, err := p.skipCompound(kw.text)
		if err != nil {
			return syntax.Statement{}, err
		}
		return syntax.Statement{Node: p.node(start, last)}, nil
	}

	last, err := p.skipPastSemicolon(start)
	if err != nil {
		return syntax.Statement{}, err
	}
	return syntax.Statement{Node: p.node(start, last)}, nil
}

// skipCompound consumes a compound statement including any `else` and
// `on fail` continuations, returning the index of its final closing brace.
func (p *balParser) skipCompound(kw string) (int, error) {
	p.pos++
	if kw == "foreach" {
		// Binding patterns may contain braces, so jump to the iterable first.
		if err := p.skipUntil(textIn("in")); err != nil {
			return 0, err
		}
	}
	for {
		if err := p.skipUntil(textIn("{")); err != nil {
			return 0, err
		}
		if !p.at("{") {
			return 0, p.errorf(p.peek(), "expected '{' in %s statement", kw)
		}
		last, err := p.skipGroup()
		if err != nil {
			return 0, err
		}
		switch {
		case p.at("else"):
			p.pos++
		case p.at("on") && matches(p.peekAt(1), "fail"):
			p.pos += 2
		default:
			return last, nil
		}
	}
}
