package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Table is a physical table in the dining room.
type Table struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID           int64     `bun:",pk,autoincrement"`
	Number       int       `bun:"number,notnull,unique"`
	Capacity     int       `bun:"capacity,notnull"`
	IsActive     bool      `bun:"is_active,notnull"`
	ModifiedByID *int64    `bun:"modified_by_id"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero"`

	// HasActiveOrder is computed by the repository on read.
	HasActiveOrder bool `bun:"has_active_order,scanonly"`
}
