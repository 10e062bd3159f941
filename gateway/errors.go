package gateway

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrInvalidIdentifier rejects table/column names outside [A-Za-z0-9_].
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrEmptyRecord means a write payload had no usable fields left after
	// column intersection.
	ErrEmptyRecord = errors.New("empty record")

	// ErrUnknownTable means schema introspection returned no columns.
	ErrUnknownTable = errors.New("unknown table")
)

// IsDuplicateEntry reports whether err is a MySQL unique-key violation
// (ER_DUP_ENTRY). Document numbering retries on this.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
