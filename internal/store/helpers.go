package store

import "database/sql"

// rangeArgs flattens r into the five nullable range columns.
func rangeArgs(r *Range) []any {
	if r == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	return []any{r.FileName, r.StartLine, r.StartOffset, r.EndLine, r.EndOffset}
}

// nullableRange scans the five range columns; it is nil when file_name is
// NULL.
type nullableRange struct {
	fileName    sql.NullString
	startLine   sql.NullInt64
	startOffset sql.NullInt64
	endLine     sql.NullInt64
	endOffset   sql.NullInt64
}

func (n *nullableRange) dest() []any {
	return []any{&n.fileName, &n.startLine, &n.startOffset, &n.endLine, &n.endOffset}
}

func (n *nullableRange) toRange() *Range {
	if !n.fileName.Valid {
		return nil
	}
	return &Range{
		FileName:    n.fileName.String,
		StartLine:   int(n.startLine.Int64),
		StartOffset: int(n.startOffset.Int64),
		EndLine:     int(n.endLine.Int64),
		EndOffset:   int(n.endOffset.Int64),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
