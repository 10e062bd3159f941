package documents

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/gateway"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// DatePrefix formats the date-scoped part of a document number,
// e.g. Q20240305- for prefix "Q".
func DatePrefix(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%s-", prefix, t.Format("20060102"))
}

// NextDocumentNumber scans the day's numbers and returns max-suffix+1,
// zero-padded to width. Callers that intend to reserve the number must hold
// the table's advisory lock on tx and insert under the UNIQUE index before
// releasing it; on its own this is a preview, not a reservation.
func NextDocumentNumber(ctx context.Context, tx *gorm.DB, table, column, prefix string, t time.Time, width int) (string, error) {
	tbl, err := gateway.SanitizeIdentifier(table)
	if err != nil {
		return "", err
	}
	col, err := gateway.SanitizeIdentifier(column)
	if err != nil {
		return "", err
	}
	datePrefix := DatePrefix(prefix, t)

	var maxRun sql.NullInt64
	err = tx.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT MAX(CAST(SUBSTRING(%s, LENGTH(?) + 1) AS UNSIGNED))
		FROM %s
		WHERE %s LIKE CONCAT(?, '%%')`,
		quoteIdent(col), quoteIdent(tbl), quoteIdent(col)),
		datePrefix, datePrefix).Scan(&maxRun).Error
	if err != nil {
		return "", err
	}
	next := int64(1)
	if maxRun.Valid {
		next = maxRun.Int64 + 1
	}
	return fmt.Sprintf("%s%0*d", datePrefix, width, next), nil
}

func documentNumberExists(ctx context.Context, tx *gorm.DB, table, column, number string) (bool, error) {
	if strings.TrimSpace(number) == "" {
		return false, nil
	}
	tbl, err := gateway.SanitizeIdentifier(table)
	if err != nil {
		return false, err
	}
	col, err := gateway.SanitizeIdentifier(column)
	if err != nil {
		return false, err
	}
	var count int64
	err = tx.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s = ?", quoteIdent(tbl), quoteIdent(col)), number).
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// withNumberLock takes the redis lock when redis is configured. This lock is
// a best-effort optimization; reliability must not depend on redis, so lock
// failures fall through to the MySQL advisory lock and the UNIQUE index.
func withNumberLock(ctx context.Context, table string, fn func() error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return fn()
	}
	lock, err := locker.Obtain(ctx, "docnum:"+table, 10*time.Second, nil)
	if err != nil {
		if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "documents", "withNumberLock", "locker.Obtain", table, err)
		}
		return fn()
	}
	defer lock.Release(ctx)
	return fn()
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
