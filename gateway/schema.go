package gateway

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Column is one entry of a table's live schema.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

type columnRow struct {
	Name      string
	DataType  string
	ColumnKey string
}

// Columns reads the live schema from information_schema. The table name is a
// bound parameter here, but callers must still have sanitized it before it
// ever reaches statement text. An empty result means the table does not
// exist in the connected schema.
func Columns(ctx context.Context, db *gorm.DB, table string) ([]Column, error) {
	var rows []columnRow
	err := db.WithContext(ctx).Raw(`
		SELECT column_name AS name, data_type AS data_type, column_key AS column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, Column{
			Name:         r.Name,
			Type:         strings.ToLower(r.DataType),
			IsPrimaryKey: r.ColumnKey == "PRI",
		})
	}
	return cols, nil
}

// PrimaryKeyOf applies the three-tier key inference: declared primary key,
// then a column literally named "id", then the first declared column (MySQL
// exposes no rowid pseudo-column).
func PrimaryKeyOf(cols []Column) string {
	for _, c := range cols {
		if c.IsPrimaryKey {
			return c.Name
		}
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, "id") {
			return c.Name
		}
	}
	if len(cols) > 0 {
		return cols[0].Name
	}
	return ""
}

// FindColumn returns the schema-cased name for a case-insensitive match, or
// "" when the column is absent. Matching is case-insensitive because MySQL
// column identifiers are.
func FindColumn(cols []Column, name string) string {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return c.Name
		}
	}
	return ""
}

// TextColumns lists the columns search terms can match against.
func TextColumns(cols []Column) []string {
	var out []string
	for _, c := range cols {
		if strings.Contains(c.Type, "char") || strings.Contains(c.Type, "text") {
			out = append(out, c.Name)
		}
	}
	return out
}
