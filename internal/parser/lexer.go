package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/jward/semdiff/internal/syntax"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokTemplate
	tokPunct
	tokEOF
)

// token is one lexical unit; start and end are byte offsets into the source.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

// multiPunct lists operators that must not be split, longest first.
var multiPunct = []string{
	"===", "!==", "...", "..<",
	"=>", "==", "!=", "<=", ">=", "->", "<-", "&&", "||", "+=", "-=", "*=", "/=", "?.", "?:",
}

type lexer struct {
	file string
	src  string
	pos  int
	toks []token
}

// lex splits src into tokens. Whitespace, `//` comments and `#`
// documentation lines are dropped.
func lex(file, src string) ([]token, error) {
	l := &lexer{file: file, src: src}
	for {
		l.skipTrivia()
		if l.pos >= len(l.src) {
			break
		}
		if err := l.scan(); err != nil {
			return nil, err
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF, start: len(src), end: len(src)})
	return l.toks, nil
}

func (l *lexer) errorf(offset int, format string, args ...any) error {
	pos := syntax.NewLineMap(l.src).Position(offset)
	return &SyntaxError{
		File:   l.file,
		Line:   pos.Line,
		Offset: pos.Offset,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			l.skipLine()
		case c == '#':
			l.skipLine()
		default:
			return
		}
	}
}

func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) emit(kind tokenKind, start int) {
	l.toks = append(l.toks, token{kind: kind, text: l.src[start:l.pos], start: start, end: l.pos})
}

func (l *lexer) scan() error {
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '"':
		end, err := l.scanString(l.pos + 1)
		if err != nil {
			return err
		}
		l.pos = end
		l.emit(tokString, start)
	case c == '`':
		end, err := l.scanTemplate(l.pos + 1)
		if err != nil {
			return err
		}
		l.pos = end
		l.emit(tokTemplate, start)
	case c >= '0' && c <= '9':
		l.scanNumber()
		l.emit(tokNumber, start)
	case c == '\'' || c == '_' || c == '\\' || isLetterAt(l.src, l.pos):
		l.pos++
		if c == '\\' && l.pos < len(l.src) {
			l.pos++
		}
		l.scanIdentRest()
		l.emit(tokIdent, start)
	default:
		for _, op := range multiPunct {
			if len(l.src)-l.pos >= len(op) && l.src[l.pos:l.pos+len(op)] == op {
				l.pos += len(op)
				l.emit(tokPunct, start)
				return nil
			}
		}
		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
		l.emit(tokPunct, start)
	}
	return nil
}

func isLetterAt(src string, pos int) bool {
	r, _ := utf8.DecodeRuneInString(src[pos:])
	return unicode.IsLetter(r)
}

func (l *lexer) scanIdentRest() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			l.pos += 2
		case c == '_' || (c >= '0' && c <= '9'):
			l.pos++
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return
			}
			l.pos += size
		}
	}
}

func (l *lexer) scanNumber() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			l.pos++
		case c == '.' && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9':
			l.pos++
		default:
			return
		}
	}
}

// scanString returns the offset just past the closing quote of a string
// literal whose body starts at i.
func (l *lexer) scanString(i int) (int, error) {
	for i < len(l.src) {
		switch l.src[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1, nil
		case '\n':
			return 0, l.errorf(i, "unterminated string literal")
		default:
			i++
		}
	}
	return 0, l.errorf(len(l.src), "unterminated string literal")
}

// scanTemplate returns the offset just past the closing backtick of a
// template whose body starts at i. Interpolations may nest templates.
func (l *lexer) scanTemplate(i int) (int, error) {
	for i < len(l.src) {
		switch {
		case l.src[i] == '`':
			return i + 1, nil
		case l.src[i] == '$' && i+1 < len(l.src) && l.src[i+1] == '{':
			end, err := l.scanInterpolation(i + 2)
			if err != nil {
				return 0, err
			}
			i = end
		default:
			i++
		}
	}
	return 0, l.errorf(len(l.src), "unterminated template literal")
}

func (l *lexer) scanInterpolation(i int) (int, error) {
	depth := 1
	for i < len(l.src) {
		switch l.src[i] {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		case '"':
			end, err := l.scanString(i + 1)
			if err != nil {
				return 0, err
			}
			i = end
		case '`':
			end, err := l.scanTemplate(i + 1)
			if err != nil {
				return 0, err
			}
			i = end
		default:
			i++
		}
	}
	return 0, l.errorf(len(l.src), "unterminated template interpolation")
}
