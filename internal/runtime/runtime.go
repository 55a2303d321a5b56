// Package runtime evaluates Risor filter expressions against diff records.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Record is the view of one diff record exposed to a filter. Deletions have
// an empty URI and file and line numbers of -1.
type Record struct {
	ChangeType string
	Kind       string
	URI        string
	File       string
	StartLine  int
	EndLine    int
}

// Filter is a compiled-once, evaluated-per-record Risor expression.
type Filter struct {
	source string
	label  string
	globs  *globCache
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithLabel names the filter in error messages.
func WithLabel(label string) FilterOption {
	return func(f *Filter) {
		f.label = label
	}
}

// NewFilter checks source by evaluating it once against an empty deletion
// record and returns the Filter.
func NewFilter(ctx context.Context, source string, opts ...FilterOption) (*Filter, error) {
	f := &Filter{
		source: source,
		label:  "<inline>",
		globs:  newGlobCache(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("runtime: filter %s: empty expression", f.label)
	}
	if _, err := f.Match(ctx, Record{StartLine: -1, EndLine: -1}); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFilter reads a filter from a .risor file. When fsys is non-nil the
// path is resolved inside it.
func LoadFilter(ctx context.Context, fsys fs.FS, path string) (*Filter, error) {
	src, err := loadScript(fsys, path)
	if err != nil {
		return nil, err
	}
	return NewFilter(ctx, src, WithLabel(path))
}

// Source returns the filter expression.
func (f *Filter) Source() string {
	return f.source
}

// Match evaluates the filter for rec and reports whether the result is
// truthy.
func (f *Filter) Match(ctx context.Context, rec Record) (bool, error) {
	var opts []risor.Option
	for name, val := range f.buildGlobals(rec) {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, f.source, opts...)
	if err != nil {
		return false, fmt.Errorf("runtime: filter %s: %w", f.label, err)
	}
	if errObj, ok := result.(*object.Error); ok {
		return false, fmt.Errorf("runtime: filter %s: %s", f.label, errObj.Inspect())
	}
	return result.IsTruthy(), nil
}

func (f *Filter) buildGlobals(rec Record) map[string]any {
	return map[string]any{
		"change_type": rec.ChangeType,
		"kind":        rec.Kind,
		"uri":         rec.URI,
		"file":        rec.File,
		"start_line":  int64(rec.StartLine),
		"end_line":    int64(rec.EndLine),
		"glob":        makeGlobFn(f.globs),
		"basename":    makeBasenameFn(),
	}
}

// loadScript reads a .risor file. With an fs.FS any leading separator is
// stripped so the path is relative within the FS.
func loadScript(fsys fs.FS, path string) (string, error) {
	if fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading filter %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("runtime: loading filter %s: %w", path, err)
	}
	return string(data), nil
}
