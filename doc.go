// Package semdiff computes semantic differences between two snapshots of a
// source project. Rather than comparing lines, it compares declarations:
// listeners, module functions, type definitions, services and their member
// functions. Each change is reported as a [SemanticDiff] with a change type,
// a declaration kind, the URI of the affected document and the line range of
// the new declaration.
//
// # Pipeline
//
// A diff runs in three steps:
//
//  1. Load: [LoadProject] walks a directory, parses every supported file
//     (Ballerina via a hand-written front end, Go via tree-sitter) and
//     returns an immutable [Project].
//
//  2. Index: for every document that differs between the snapshots, top-level
//     declarations are classified into keyed maps (listeners, functions,
//     services, types).
//
//  3. Match: each category is compared by key. Keys only in the original are
//     deletions, keys only in the modified snapshot are additions, and shared
//     functions are compared statement by statement. Services fall back to
//     matching by base path and then compare their members.
//
// # Usage
//
//	e, err := semdiff.New(semdiff.WithScheme("ai"))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	orig, err := semdiff.LoadProject(ctx, "before/")
//	mod, err := semdiff.LoadProject(ctx, "after/")
//
//	res, err := e.Compute(ctx, orig, mod)
//	for _, d := range res.SemanticDiffs {
//		fmt.Println(d.ChangeType, d.Kind, d.URI)
//	}
//
// [Engine.ComputeAsync] runs the same computation in the background and
// returns a [Future].
//
// # History
//
// With [WithDatabase] the engine records every run in SQLite keyed by content
// hashes of both snapshots. Comparing the same two snapshots again replays the
// stored records instead of recomputing them.
//
// # Filtering
//
// [WithFilter] installs a Risor expression evaluated once per record, for
// example:
//
//	kind == "OBJECT_FUNCTION" && glob("**/service.bal", file)
//
// Records for which the expression is falsy are dropped from the result.
package semdiff
