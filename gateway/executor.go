package gateway

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListQuery carries the supported list parameters. Filters are column
// equality predicates; unknown filter columns are silently dropped, the same
// leniency the engine applies to write payloads.
type ListQuery struct {
	Search  string
	Limit   int
	Offset  int
	Order   string
	Filters map[string]string
	From    string
	To      string
}

type ListResult struct {
	Rows  []map[string]any `json:"data"`
	Total int64            `json:"total"`
}

// TableColumns is the schema introspection dump. An empty schema means the
// table does not exist, which surfaces as a 404 at the REST boundary.
func TableColumns(ctx context.Context, table string) ([]Column, error) {
	db := config.GetDB()
	return tableColumns(ctx, db, table)
}

func tableColumns(ctx context.Context, db *gorm.DB, table string) ([]Column, error) {
	tbl, err := SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}
	cols, err := Columns(ctx, db, tbl)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tbl)
	}
	return cols, nil
}

func List(ctx context.Context, table string, q ListQuery) (*ListResult, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	pk := PrimaryKeyOf(cols)

	var where []string
	var bind []any

	if term := strings.TrimSpace(q.Search); term != "" {
		textCols := TextColumns(cols)
		// No text columns -> the search filter is a no-op, not an error.
		if len(textCols) > 0 {
			var likes []string
			for _, c := range textCols {
				likes = append(likes, fmt.Sprintf("LOWER(%s) LIKE ?", quoteIdent(c)))
				bind = append(bind, "%"+strings.ToLower(term)+"%")
			}
			where = append(where, "("+strings.Join(likes, " OR ")+")")
		}
	}

	for col, val := range q.Filters {
		name := FindColumn(cols, col)
		if name == "" || val == "" {
			continue
		}
		where = append(where, fmt.Sprintf("%s = ?", quoteIdent(name)))
		bind = append(bind, val)
	}
	if name := FindColumn(cols, "date"); name != "" {
		if q.From != "" {
			where = append(where, fmt.Sprintf("%s >= ?", quoteIdent(name)))
			bind = append(bind, q.From)
		}
		if q.To != "" {
			where = append(where, fmt.Sprintf("%s <= ?", quoteIdent(name)))
			bind = append(bind, q.To)
		}
	}

	base := fmt.Sprintf("SELECT * FROM %s", quoteIdent(table))
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	if len(where) > 0 {
		clause := " WHERE " + strings.Join(where, " AND ")
		base += clause
		countSQL += clause
	}

	var total int64
	if err := db.WithContext(ctx).Raw(countSQL, bind...).Scan(&total).Error; err != nil {
		return nil, err
	}

	orderExpr, err := resolveOrder(cols, pk, q.Order)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	base += fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", orderExpr, limit, offset)

	rows := make([]map[string]any, 0)
	if err := db.WithContext(ctx).Raw(base, bind...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return &ListResult{Rows: rows, Total: total}, nil
}

func GetOne(ctx context.Context, table string, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	return RowByKey(ctx, db, table, PrimaryKeyOf(cols), id)
}

func Create(ctx context.Context, table string, rec *Record) (map[string]any, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		row, txErr = createInTx(ctx, tx, table, cols, rec)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func BulkCreate(ctx context.Context, table string, recs []*Record) ([]map[string]any, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(recs))
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			row, txErr := createInTx(ctx, tx, table, cols, rec)
			if txErr != nil {
				return txErr
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func createInTx(ctx context.Context, tx *gorm.DB, table string, cols []Column, rec *Record) (map[string]any, error) {
	filtered := intersectColumns(rec, cols)
	// The key and the creation timestamp are never caller-settable.
	filtered.Delete(PrimaryKeyOf(cols))
	if name := FindColumn(cols, AuditCreateDate); name != "" {
		filtered.Delete(name)
	}
	EnrichOnCreate(ctx, cols, filtered)
	if filtered.Len() == 0 {
		return nil, ErrEmptyRecord
	}
	return InsertReturning(ctx, tx, table, cols, filtered)
}

func Update(ctx context.Context, table string, id string, rec *Record) (map[string]any, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	pk := PrimaryKeyOf(cols)

	filtered := intersectColumns(rec, cols)
	filtered.Delete(pk)
	// The create-audit pair is never touched on update.
	if name := FindColumn(cols, AuditCreateDate); name != "" {
		filtered.Delete(name)
	}
	if name := FindColumn(cols, AuditCreateBy); name != "" {
		filtered.Delete(name)
	}
	EnrichOnUpdate(ctx, cols, filtered)
	if filtered.Len() == 0 {
		return nil, ErrEmptyRecord
	}

	stmt, err := BuildUpdate(table, filtered, pk)
	if err != nil {
		return nil, err
	}

	var row map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.WithContext(ctx).Exec(stmt.SQL, append(stmt.Bind, id)...).Error; txErr != nil {
			return txErr
		}
		var txErr error
		row, txErr = RowByKey(ctx, tx, table, pk, id)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func Remove(ctx context.Context, table string, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	pk := PrimaryKeyOf(cols)

	var row map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		row, txErr = RowByKey(ctx, tx, table, pk, id)
		if txErr != nil {
			return txErr
		}
		return tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(pk)), id).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// InsertReturning executes the insert and fetches the stored row back inside
// the same transaction. MySQL has no RETURNING, so the key is resolved from
// the record when present, else LAST_INSERT_ID() on the transaction's
// connection.
func InsertReturning(ctx context.Context, tx *gorm.DB, table string, cols []Column, rec *Record) (map[string]any, error) {
	stmt, err := BuildInsert(table, rec)
	if err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Exec(stmt.SQL, stmt.Bind...).Error; err != nil {
		return nil, err
	}

	pk := PrimaryKeyOf(cols)
	keyVal, ok := rec.Get(pk)
	if !ok {
		var lastID int64
		if err := tx.WithContext(ctx).Raw("SELECT LAST_INSERT_ID()").Scan(&lastID).Error; err != nil {
			return nil, err
		}
		if lastID == 0 {
			return nil, utils.ErrorRecordNotFound
		}
		keyVal = lastID
	}
	return RowByKey(ctx, tx, table, pk, keyVal)
}

// RowByKey is the point lookup every write ends with. A concurrent delete
// between write and lookup reports as not-found, never as a crash.
func RowByKey(ctx context.Context, tx *gorm.DB, table string, key string, id any) (map[string]any, error) {
	tbl, err := SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}
	col, err := SanitizeIdentifier(key)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, 1)
	err = tx.WithContext(ctx).Raw(
		fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", quoteIdent(tbl), quoteIdent(col)), id).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return rows[0], nil
}

// intersectColumns keeps only keys present in the schema, rewritten to the
// schema's casing. Unknown keys drop silently.
func intersectColumns(rec *Record, cols []Column) *Record {
	out := NewRecord()
	for _, k := range rec.Keys() {
		name := FindColumn(cols, k)
		if name == "" {
			continue
		}
		v, _ := rec.Get(k)
		out.Set(name, v)
	}
	return out
}

func clampLimit(limit int) int {
	if limit == 0 {
		return DefaultListLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func resolveOrder(cols []Column, pk string, orderExpr string) (string, error) {
	expr := strings.TrimSpace(orderExpr)
	if expr == "" {
		// Newest-first default.
		return fmt.Sprintf("%s DESC", quoteIdent(pk)), nil
	}
	fields := strings.Fields(expr)
	if len(fields) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, orderExpr)
	}
	col, err := SanitizeIdentifier(fields[0])
	if err != nil {
		return "", err
	}
	name := FindColumn(cols, col)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, col)
	}
	dir := "ASC"
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "asc":
			dir = "ASC"
		case "desc":
			dir = "DESC"
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, fields[1])
		}
	}
	return fmt.Sprintf("%s %s", quoteIdent(name), dir), nil
}
