package gateway

import (
	"fmt"
	"strings"
)

// Statement is parameterized SQL text plus its bound values. For
// BuildUpdate, Bind excludes the trailing key predicate; the executor
// appends the key value last.
type Statement struct {
	SQL  string
	Bind []any
}

// BuildInsert assembles an INSERT from a single ordered traversal of the
// record, so placeholder positions and bound values cannot drift apart.
// Raw-marked values are spliced into the text and excluded from Bind.
func BuildInsert(table string, rec *Record) (Statement, error) {
	tbl, err := SanitizeIdentifier(table)
	if err != nil {
		return Statement{}, err
	}
	keys := rec.Keys()
	if len(keys) == 0 {
		return Statement{}, ErrEmptyRecord
	}

	cols := make([]string, 0, len(keys))
	vals := make([]string, 0, len(keys))
	bind := make([]any, 0, len(keys))
	for _, k := range keys {
		col, err := SanitizeIdentifier(k)
		if err != nil {
			return Statement{}, err
		}
		cols = append(cols, quoteIdent(col))
		v, _ := rec.Get(k)
		if raw, ok := v.(RawSQL); ok {
			vals = append(vals, string(raw))
			continue
		}
		vals = append(vals, "?")
		bind = append(bind, v)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(tbl), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return Statement{SQL: sql, Bind: bind}, nil
}

// BuildUpdate assembles an UPDATE with an equality predicate on keyColumn.
// The key value is bound by the caller as the final parameter.
func BuildUpdate(table string, rec *Record, keyColumn string) (Statement, error) {
	tbl, err := SanitizeIdentifier(table)
	if err != nil {
		return Statement{}, err
	}
	key, err := SanitizeIdentifier(keyColumn)
	if err != nil {
		return Statement{}, err
	}
	keys := rec.Keys()
	if len(keys) == 0 {
		return Statement{}, ErrEmptyRecord
	}

	sets := make([]string, 0, len(keys))
	bind := make([]any, 0, len(keys))
	for _, k := range keys {
		col, err := SanitizeIdentifier(k)
		if err != nil {
			return Statement{}, err
		}
		v, _ := rec.Get(k)
		if raw, ok := v.(RawSQL); ok {
			sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(col), string(raw)))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = ?", quoteIdent(col)))
		bind = append(bind, v)
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(tbl), strings.Join(sets, ", "), quoteIdent(key))
	return Statement{SQL: sql, Bind: bind}, nil
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
