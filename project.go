package semdiff

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/gobwas/glob"

	"github.com/jward/semdiff/internal/parser"
	"github.com/jward/semdiff/internal/store"
)

// DefaultIgnore lists the glob patterns LoadProject skips unless overridden.
var DefaultIgnore = []string{".git/**", "target/**", ".semdiff/**"}

// Project is an immutable snapshot of a source project: an absolute root
// directory and its parsed documents keyed by slash-separated relative name.
type Project struct {
	Root string

	docs  map[string]*Document
	names []string

	hashOnce sync.Once
	hash     string
}

// NewProject builds a Project from already parsed documents. A later
// document with the same name replaces an earlier one.
func NewProject(root string, docs ...*Document) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("semdiff: project root %s: %w", root, err)
	}
	p := &Project{Root: abs, docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		if d == nil {
			continue
		}
		p.docs[d.Name] = d
	}
	p.names = make([]string, 0, len(p.docs))
	for name := range p.docs {
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)
	return p, nil
}

// ParseProject parses in-memory sources keyed by relative name and builds a
// Project rooted at root. Files without a front end are skipped.
func ParseProject(ctx context.Context, root string, sources map[string]string) (*Project, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var docs []*Document
	for _, name := range names {
		if _, ok := parser.LanguageForFile(name); !ok {
			continue
		}
		doc, err := parser.Parse(ctx, filepath.ToSlash(name), sources[name])
		if err != nil {
			return nil, fmt.Errorf("semdiff: parse %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return NewProject(root, docs...)
}

// Documents returns the documents sorted by name.
func (p *Project) Documents() []*Document {
	out := make([]*Document, len(p.names))
	for i, name := range p.names {
		out[i] = p.docs[name]
	}
	return out
}

// Document looks up a document by relative name.
func (p *Project) Document(name string) (*Document, bool) {
	d, ok := p.docs[name]
	return d, ok
}

// Len returns the number of documents.
func (p *Project) Len() int {
	return len(p.names)
}

// Hash returns the content hash of the snapshot. Two projects with the same
// document names and sources hash equal regardless of root.
func (p *Project) Hash() string {
	p.hashOnce.Do(func() {
		files := make([]store.SnapshotFile, 0, len(p.names))
		for _, name := range p.names {
			files = append(files, store.SnapshotFile{Name: name, Source: p.docs[name].Source})
		}
		p.hash = store.ComputeSnapshotHash(files)
	})
	return p.hash
}

// LoadOption configures LoadProject.
type LoadOption func(*loadConfig)

type loadConfig struct {
	ignore  []string
	workers int
	logger  *slog.Logger
}

// WithIgnore replaces the default ignore globs. Patterns match
// slash-separated paths relative to the root; a directory is skipped when
// "dir/**" matches.
func WithIgnore(patterns ...string) LoadOption {
	return func(c *loadConfig) {
		c.ignore = patterns
	}
}

// WithWorkers sets the number of parse workers. Values below one mean
// runtime.NumCPU().
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) {
		c.workers = n
	}
}

// WithLoadLogger sets the logger used while loading.
func WithLoadLogger(logger *slog.Logger) LoadOption {
	return func(c *loadConfig) {
		c.logger = logger
	}
}

// LoadProject walks root, parses every file with a known front end and
// returns the snapshot. Parsing runs on a worker pool; the first parse error
// fails the load.
func LoadProject(ctx context.Context, root string, opts ...LoadOption) (*Project, error) {
	cfg := loadConfig{ignore: DefaultIgnore}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("semdiff: project root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("semdiff: project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("semdiff: project root %s is not a directory", abs)
	}

	matchers, err := compileIgnore(cfg.ignore)
	if err != nil {
		return nil, err
	}
	names, err := listSources(abs, matchers)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("loading project", "root", abs, "files", len(names))

	docs, err := parseParallel(ctx, abs, names, cfg.workers)
	if err != nil {
		return nil, err
	}
	return NewProject(abs, docs...)
}

func compileIgnore(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("semdiff: ignore pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func ignored(matchers []glob.Glob, rel string, dir bool) bool {
	for _, g := range matchers {
		if g.Match(rel) {
			return true
		}
		if dir && g.Match(rel+"/**") {
			return true
		}
	}
	return false
}

// SkipDirFunc returns a predicate that reports whether an absolute
// directory path under root is excluded by patterns. It matches directories
// the same way LoadProject does.
func SkipDirFunc(root string, patterns []string) (func(path string) bool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("semdiff: project root %s: %w", root, err)
	}
	matchers, err := compileIgnore(patterns)
	if err != nil {
		return nil, err
	}
	return func(path string) bool {
		rel, err := filepath.Rel(abs, path)
		if err != nil || rel == "." {
			return false
		}
		return ignored(matchers, filepath.ToSlash(rel), true)
	}, nil
}

// listSources returns the sorted slash-separated names of supported files
// under root.
func listSources(root string, matchers []glob.Glob) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if ignored(matchers, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored(matchers, rel, false) {
			return nil
		}
		if _, ok := parser.LanguageForFile(rel); ok {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("semdiff: walk directory: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// parseParallel reads and parses names on a pool of workers. Results are
// returned in input order.
func parseParallel(ctx context.Context, root string, names []string, workers int) ([]*Document, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(names))

	type job struct {
		i    int
		name string
	}
	jobCh := make(chan job, len(names))
	for i, name := range names {
		jobCh <- job{i: i, name: name}
	}
	close(jobCh)

	type result struct {
		job job
		doc *Document
		err error
	}
	resultCh := make(chan result, len(names))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{job: j, err: err}
					continue
				}
				doc, err := parseFile(ctx, root, j.name)
				resultCh <- result{job: j, doc: doc, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	docs := make([]*Document, len(names))
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.job.name, res.err))
			continue
		}
		docs[res.job.i] = res.doc
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, fmt.Errorf("semdiff: load had %d error(s): %w", len(errs), errs[0])
	}
	return docs, nil
}

func parseFile(ctx context.Context, root, name string) (*Document, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parser.Parse(ctx, name, string(src))
}

