package semdiff

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/jward/semdiff/internal/runtime"
	"github.com/jward/semdiff/internal/store"
)

// Engine computes semantic diffs between project snapshots. An Engine is
// safe for concurrent use; each computation has its own state.
type Engine struct {
	scheme  string
	logger  *slog.Logger
	dbPath  string
	store   *store.Store
	filter  *runtime.Filter
	noCache bool

	ownsStore    bool
	filterSource string
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheme sets the scheme that replaces "file" in reported URIs. The
// default is "ai".
func WithScheme(scheme string) Option {
	return func(e *Engine) {
		e.scheme = scheme
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDatabase records runs in a SQLite database at dbPath and replays
// cached results for repeated comparisons.
func WithDatabase(dbPath string) Option {
	return func(e *Engine) {
		e.dbPath = dbPath
	}
}

// WithStore uses an already opened and migrated store. The Engine does not
// take ownership; Close leaves it open.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithFilter drops records for which the Risor expression is falsy.
func WithFilter(expr string) Option {
	return func(e *Engine) {
		e.filterSource = expr
	}
}

// WithCache controls replay of stored runs. Runs are still recorded when
// the cache is disabled.
func WithCache(enabled bool) Option {
	return func(e *Engine) {
		e.noCache = !enabled
	}
}

// New creates an Engine. With WithDatabase the database is opened and
// migrated here.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{scheme: DefaultScheme}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	if e.filterSource != "" {
		f, err := runtime.NewFilter(context.Background(), e.filterSource)
		if err != nil {
			return nil, fmt.Errorf("semdiff: filter: %w", err)
		}
		e.filter = f
	}

	if e.store == nil && e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("semdiff: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("semdiff: migrate: %w", err)
		}
		e.store, e.ownsStore = s, true
	}
	return e, nil
}

// Close releases the database opened by WithDatabase.
func (e *Engine) Close() error {
	if !e.ownsStore {
		return nil
	}
	return e.store.Close()
}

// Store returns the run store, or nil when history is disabled.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Scheme returns the URI scheme tag.
func (e *Engine) Scheme() string {
	return e.scheme
}

// Diffs compares two snapshots and returns the ordered records. It does not
// consult the store or the filter. A panic during computation is returned as
// an error and no records are returned.
func (e *Engine) Diffs(original, modified *Project) (diffs []SemanticDiff, err error) {
	if original == nil || modified == nil {
		return nil, fmt.Errorf("semdiff: compute: nil project")
	}
	defer func() {
		if r := recover(); r != nil {
			diffs = nil
			err = fmt.Errorf("semdiff: compute: %v", r)
		}
	}()
	c := newComputer(original, modified, e.scheme, e.logger)
	return c.run(), nil
}

// Compute compares two snapshots. With a store, an identical earlier
// comparison is replayed and new comparisons are recorded. The filter, if
// any, is applied last.
func (e *Engine) Compute(ctx context.Context, original, modified *Project) (*Result, error) {
	if original == nil || modified == nil {
		return nil, fmt.Errorf("semdiff: compute: nil project")
	}

	var (
		diffs  []SemanticDiff
		runID  string
		cached bool
	)
	if e.store != nil && !e.noCache {
		run, err := e.store.LatestRun(e.cacheKey(original, modified))
		if err != nil {
			return nil, fmt.Errorf("semdiff: cache lookup: %w", err)
		}
		if run != nil {
			stored, err := e.store.DiffsByRun(run.ID)
			if err != nil {
				return nil, fmt.Errorf("semdiff: replay run %s: %w", run.ID, err)
			}
			diffs = fromStoreDiffs(stored)
			runID, cached = run.ID, true
			e.logger.Debug("replayed run", "run", run.ID, "diffs", len(diffs))
		}
	}

	if !cached {
		var err error
		diffs, err = e.Diffs(original, modified)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.store != nil {
			runID, err = e.saveRun(original, modified, diffs)
			if err != nil {
				return nil, err
			}
		}
	}

	filtered, err := e.applyFilter(ctx, diffs)
	if err != nil {
		return nil, err
	}
	res := NewResult(filtered)
	res.RunID = runID
	res.Cached = cached
	return res, nil
}

// Run loads a stored run by ID. The filter is not applied.
func (e *Engine) Run(id string) (*store.Run, *Result, error) {
	if e.store == nil {
		return nil, nil, fmt.Errorf("semdiff: run %s: no history store", id)
	}
	run, err := e.store.RunByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("semdiff: run %s: %w", id, err)
	}
	if run == nil {
		return nil, nil, fmt.Errorf("semdiff: run %s: not found", id)
	}
	stored, err := e.store.DiffsByRun(id)
	if err != nil {
		return nil, nil, fmt.Errorf("semdiff: run %s: %w", id, err)
	}
	res := NewResult(fromStoreDiffs(stored))
	res.RunID = run.ID
	res.Cached = true
	return run, res, nil
}

func (e *Engine) cacheKey(original, modified *Project) store.CacheKey {
	return store.CacheKey{
		OriginalRoot: original.Root,
		OriginalHash: original.Hash(),
		ModifiedHash: modified.Hash(),
		Scheme:       e.scheme,
	}
}

func (e *Engine) saveRun(original, modified *Project, diffs []SemanticDiff) (string, error) {
	key := e.cacheKey(original, modified)
	run := &store.Run{
		OriginalRoot:       key.OriginalRoot,
		ModifiedRoot:       modified.Root,
		OriginalHash:       key.OriginalHash,
		ModifiedHash:       key.ModifiedHash,
		Scheme:             key.Scheme,
		LoadDesignDiagrams: NewResult(diffs).LoadDesignDiagrams,
	}
	if err := e.store.InsertRun(run, toStoreDiffs(diffs)); err != nil {
		return "", fmt.Errorf("semdiff: record run: %w", err)
	}
	e.logger.Debug("recorded run", "run", run.ID, "diffs", run.DiffCount)
	return run.ID, nil
}

func (e *Engine) applyFilter(ctx context.Context, diffs []SemanticDiff) ([]SemanticDiff, error) {
	if e.filter == nil {
		return diffs, nil
	}
	out := make([]SemanticDiff, 0, len(diffs))
	for _, d := range diffs {
		ok, err := e.filter.Match(ctx, filterRecord(d))
		if err != nil {
			return nil, fmt.Errorf("semdiff: %w", err)
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func filterRecord(d SemanticDiff) runtime.Record {
	rec := runtime.Record{
		ChangeType: string(d.ChangeType),
		Kind:       string(d.Kind),
		URI:        d.URI,
		StartLine:  -1,
		EndLine:    -1,
	}
	if d.LineRange != nil {
		rec.File = path.Clean(d.LineRange.FileName)
		rec.StartLine = d.LineRange.StartLine.Line
		rec.EndLine = d.LineRange.EndLine.Line
	}
	return rec
}

func toStoreDiffs(diffs []SemanticDiff) []*store.Diff {
	out := make([]*store.Diff, len(diffs))
	for i, d := range diffs {
		sd := &store.Diff{
			ChangeType: string(d.ChangeType),
			Kind:       string(d.Kind),
			URI:        d.URI,
		}
		if r := d.LineRange; r != nil {
			sd.Range = &store.Range{
				FileName:    r.FileName,
				StartLine:   r.StartLine.Line,
				StartOffset: r.StartLine.Offset,
				EndLine:     r.EndLine.Line,
				EndOffset:   r.EndLine.Offset,
			}
		}
		out[i] = sd
	}
	return out
}

func fromStoreDiffs(stored []*store.Diff) []SemanticDiff {
	out := make([]SemanticDiff, len(stored))
	for i, sd := range stored {
		d := SemanticDiff{
			ChangeType: ChangeType(sd.ChangeType),
			Kind:       DeclarationKind(sd.Kind),
			URI:        sd.URI,
		}
		if r := sd.Range; r != nil {
			d.LineRange = &LineRange{
				FileName:  r.FileName,
				StartLine: LinePosition{Line: r.StartLine, Offset: r.StartOffset},
				EndLine:   LinePosition{Line: r.EndLine, Offset: r.EndOffset},
			}
		}
		out[i] = d
	}
	return out
}
