package parser

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLanguage is returned when no front end handles a file.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// SyntaxError reports malformed input at a zero-based position.
type SyntaxError struct {
	File   string
	Line   int
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line+1, e.Offset+1, e.Msg)
}
