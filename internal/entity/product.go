package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a sellable catalog entry.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID           int64           `bun:",pk,autoincrement"`
	Name         string          `bun:"name,notnull,unique"`
	Price        decimal.Decimal `bun:"price,type:decimal(10,3),notnull"`
	IsActive     bool            `bun:"is_active,notnull"`
	CreatedByID  *int64          `bun:"created_by_id"`
	ModifiedByID *int64          `bun:"modified_by_id"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero"`

	CreatedBy *User `bun:"rel:belongs-to,join:created_by_id=id"`
}
