package semdiff

import (
	"log/slog"
	"sort"

	"github.com/jward/semdiff/internal/index"
	"github.com/jward/semdiff/internal/syntax"
)

// computer holds the state of one diff invocation. It is never shared.
type computer struct {
	original *Project
	modified *Project
	scheme   string
	logger   *slog.Logger

	origIdx *index.Index
	modIdx  *index.Index

	diffs []SemanticDiff
	seen  map[syntax.LineRange]bool
}

func newComputer(original, modified *Project, scheme string, logger *slog.Logger) *computer {
	return &computer{
		original: original,
		modified: modified,
		scheme:   scheme,
		logger:   logger,
		origIdx:  index.New(logger),
		modIdx:   index.New(logger),
		seen:     make(map[syntax.LineRange]bool),
	}
}

// categoryPasses lists the keyed categories in reporting order. Services run
// last and have their own matcher.
var categoryPasses = []struct {
	category index.Category
	kind     DeclarationKind
}{
	{index.CategoryListener, ListenerDeclaration},
	{index.CategoryFunction, ModuleFunction},
	{index.CategoryType, TypeDefinition},
}

func (c *computer) run() []SemanticDiff {
	c.pairDocuments()
	for _, p := range categoryPasses {
		c.matchCategory(p.category, p.kind)
	}
	c.matchServices()
	if c.diffs == nil {
		return []SemanticDiff{}
	}
	return c.diffs
}

// pairDocuments fills both indexes. Byte-identical documents are skipped;
// documents only present in the original are never analyzed.
func (c *computer) pairDocuments() {
	for _, orig := range c.original.Documents() {
		mod, ok := c.modified.Document(orig.Name)
		if !ok {
			continue
		}
		if orig.Source == mod.Source {
			continue
		}
		c.logger.Debug("document changed", "document", orig.Name)
		c.origIdx.AddDocument(orig)
		c.modIdx.AddDocument(mod)
	}
	for _, mod := range c.modified.Documents() {
		if _, ok := c.original.Document(mod.Name); ok {
			continue
		}
		c.logger.Debug("document added", "document", mod.Name)
		c.modIdx.AddDocument(mod)
	}
}

// matchCategory reports deletions (original-only keys), compares shared
// functions and reports additions (modified-only keys).
func (c *computer) matchCategory(cat index.Category, kind DeclarationKind) {
	orig := c.origIdx.Category(cat)
	mod := c.modIdx.Category(cat)

	for _, key := range sortedKeys(orig) {
		m, ok := mod[key]
		if !ok {
			c.emitDeletion(kind)
			continue
		}
		if cat == index.CategoryFunction {
			c.compareFunctions(orig[key].Function, m.Function, ModuleFunction)
		}
	}
	for _, key := range difference(mod, orig) {
		c.emit(Addition, kind, mod[key].Range)
	}
}

// matchServices pairs services by full key, then by base path, and reports
// whatever is left on either side.
func (c *computer) matchServices() {
	orig := c.origIdx.Services
	mod := c.modIdx.Services

	for _, key := range intersection(orig, mod) {
		if orig[key].Text == mod[key].Text {
			continue
		}
		c.compareServices(orig[key].Service, mod[key].Service)
	}

	remOrig := difference(orig, mod)
	remMod := difference(mod, orig)

	// Attaching a service to another listener changes its key but not its
	// base path.
	origBase := byBasePath(remOrig)
	modBase := byBasePath(remMod)
	pairedOrig := make(map[string]bool)
	pairedMod := make(map[string]bool)
	for _, base := range sortedKeys(origBase) {
		mk, ok := modBase[base]
		if !ok {
			continue
		}
		origKey := origBase[base]
		c.logger.Debug("service matched by base path", "base", base, "original", origKey, "modified", mk)
		c.compareServices(orig[origKey].Service, mod[mk].Service)
		pairedOrig[origKey] = true
		pairedMod[mk] = true
	}

	for _, key := range remOrig {
		if pairedOrig[key] {
			continue
		}
		c.emitDeletion(ObjectFunction)
	}
	for _, key := range remMod {
		if pairedMod[key] {
			continue
		}
		members := index.IndexService(mod[key].Service)
		for _, bucket := range members.Buckets() {
			for _, mk := range sortedKeys(bucket) {
				c.emit(Addition, ObjectFunction, bucket[mk].Function.LineRange())
			}
		}
	}
}

// compareServices compares the members of two matched services bucket by
// bucket. Members removed from a service are not reported.
func (c *computer) compareServices(old, new *syntax.Service) {
	oldMembers := index.IndexService(old).Buckets()
	newMembers := index.IndexService(new).Buckets()
	for i := range newMembers {
		ob, nb := oldMembers[i], newMembers[i]
		for _, key := range sortedKeys(nb) {
			prev, ok := ob[key]
			if !ok {
				c.emit(Addition, ObjectFunction, nb[key].Function.LineRange())
				continue
			}
			c.compareFunctions(prev.Function, nb[key].Function, ObjectFunction)
		}
	}
}

func (c *computer) compareFunctions(old, new *syntax.Function, blockKind DeclarationKind) {
	kind, changed := compareBodies(old.Body, new.Body, blockKind)
	if !changed {
		return
	}
	c.emit(Modification, kind, new.LineRange())
}

// emit appends an addition or modification record located at r. A second
// record for the same location is dropped.
func (c *computer) emit(ct ChangeType, kind DeclarationKind, r syntax.LineRange) {
	if c.seen[r] {
		return
	}
	c.seen[r] = true
	rng := r
	c.diffs = append(c.diffs, SemanticDiff{
		ChangeType: ct,
		Kind:       kind,
		URI:        c.documentURI(r.FileName),
		LineRange:  &rng,
	})
}

func (c *computer) emitDeletion(kind DeclarationKind) {
	c.diffs = append(c.diffs, SemanticDiff{ChangeType: Deletion, Kind: kind})
}

func (c *computer) documentURI(fileName string) string {
	uri, err := documentURI(c.original.Root, fileName, c.scheme)
	if err != nil {
		c.logger.Warn("cannot build document uri", "document", fileName, "error", err)
		return ""
	}
	return uri
}

// byBasePath maps the base path of each service key to the key. When two
// keys share a base path the later key in sorted order wins.
func byBasePath(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[index.BasePath(k)] = k
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// intersection returns the sorted keys present in both a and b.
func intersection[A, B any](a map[string]A, b map[string]B) []string {
	var out []string
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// difference returns the sorted keys of a that are absent from b.
func difference[A, B any](a map[string]A, b map[string]B) []string {
	var out []string
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
