package repository

import (
	"time"

	"gorm.io/gorm"
)

// Inclusive creation-date bounds; either end may be open
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (d DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if d.From != nil {
		q = q.Where(column+" >= ?", d.From.UTC())
	}
	if d.To != nil {
		q = q.Where(column+" <= ?", d.To.UTC())
	}
	return q
}

func latest(q *gorm.DB, table string) *gorm.DB {
	return q.Order(table + ".created_at DESC").Order(table + ".id DESC")
}

func like(query string) string {
	return "%" + query + "%"
}
