package runtime

import (
	"context"
	"path"
	"sync"

	"github.com/gobwas/glob"
	"github.com/risor-io/risor/object"
)

// globCache keeps compiled patterns across records of one filter.
type globCache struct {
	mu       sync.Mutex
	compiled map[string]glob.Glob
}

func newGlobCache() *globCache {
	return &globCache{compiled: make(map[string]glob.Glob)}
}

func (c *globCache) get(pattern string) (glob.Glob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.compiled[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	c.compiled[pattern] = g
	return g, nil
}

// makeGlobFn creates the "glob" host function.
//
// glob(pattern, s) → bool, with "/" as the separator so "*" stays within one
// path segment and "**" crosses segments.
func makeGlobFn(cache *globCache) *object.Builtin {
	return object.NewBuiltin("glob", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("glob", 2, len(args))
		}
		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("glob: pattern must be a string, got %s", args[0].Type())
		}
		s, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("glob: value must be a string, got %s", args[1].Type())
		}
		g, err := cache.get(patternStr.Value())
		if err != nil {
			return object.Errorf("glob: invalid pattern %q: %v", patternStr.Value(), err)
		}
		return object.NewBool(g.Match(s.Value()))
	})
}

// makeBasenameFn creates the "basename" host function.
//
// basename(s) → last slash-separated element of s, "" for "".
func makeBasenameFn() *object.Builtin {
	return object.NewBuiltin("basename", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("basename", 1, len(args))
		}
		s, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("basename: argument must be a string, got %s", args[0].Type())
		}
		if s.Value() == "" {
			return object.NewString("")
		}
		return object.NewString(path.Base(s.Value()))
	})
}
