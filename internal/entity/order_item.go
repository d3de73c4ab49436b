package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// MaxQuantity is the largest quantity a line can hold; the column is a
// 32-bit integer on every dialect.
const MaxQuantity = math.MaxInt32

// ValidQuantity reports whether q fits a line.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

// OrderItem is a line on an order. ProductName and UnitPrice are copied from
// the product when the line is created and never change afterwards.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID          int64           `bun:",pk,autoincrement"`
	OrderID     int64           `bun:"order_id,notnull,unique:order_items_order_product"`
	ProductID   *int64          `bun:"product_id,unique:order_items_order_product"`
	ProductName string          `bun:"product_name,notnull"`
	UnitPrice   decimal.Decimal `bun:"unit_price,type:decimal(10,3),notnull"`
	Quantity    int             `bun:"quantity,notnull"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero"`

	Order *Order `bun:"rel:belongs-to,join:order_id=id"`
}

// Subtotal is quantity times the snapshotted unit price.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums the subtotals of items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}
