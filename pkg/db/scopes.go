package db

import "gorm.io/gorm"

// NotDeleted filters out soft-deleted rows. The predicate is applied
// explicitly by repositories instead of an ambient global query filter
// so tests and history inspection can read deleted rows on purpose.
func NotDeleted(tx *gorm.DB) *gorm.DB {
	return tx.Where("deleted_at IS NULL")
}
