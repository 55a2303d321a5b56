package semdiff

import "github.com/jward/semdiff/internal/syntax"

// compareBodies decides whether two matched function bodies differ and which
// kind to report. blockKind is the kind for statement-block functions at the
// call site: MODULE_FUNCTION for module functions, OBJECT_FUNCTION for
// service members. It never reports more than one change per pair.
func compareBodies(old, new syntax.Body, blockKind DeclarationKind) (DeclarationKind, bool) {
	if old == nil || new == nil {
		if old == nil && new == nil {
			return "", false
		}
		return blockKind, true
	}
	if old.SourceCode() == new.SourceCode() {
		return "", false
	}

	_, oldExpr := old.(*syntax.ExprBody)
	_, newExpr := new.(*syntax.ExprBody)
	if oldExpr || newExpr {
		return DataMappingFunction, true
	}

	oldBlock, ok := old.(*syntax.BlockBody)
	if !ok {
		return blockKind, true
	}
	newBlock, ok := new.(*syntax.BlockBody)
	if !ok {
		return blockKind, true
	}

	if len(oldBlock.Statements) != len(newBlock.Statements) {
		return blockKind, true
	}
	for i := range oldBlock.Statements {
		if oldBlock.Statements[i].SourceCode() != newBlock.Statements[i].SourceCode() {
			return blockKind, true
		}
	}
	// Only trivia between statements changed.
	return "", false
}
