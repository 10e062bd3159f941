package gateway

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireTableLock serializes document-number generation per table across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB (transaction) that will do the write.
func AcquireTableLock(tx *gorm.DB, table string) error {
	lockName := fmt.Sprintf("docnum:%s", table)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 10)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire document number lock for table=%s", table)
	}
	return nil
}

func ReleaseTableLock(tx *gorm.DB, table string) {
	lockName := fmt.Sprintf("docnum:%s", table)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
