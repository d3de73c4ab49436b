package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated       OrderStatus = "CREATED"
	OrderStatusInPreparation OrderStatus = "IN_PREPARATION"
	OrderStatusReady         OrderStatus = "READY"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

// validTransitions is the complete transition table. Statuses missing from a
// row's set are unreachable from that status.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:       {OrderStatusInPreparation, OrderStatusCancelled},
	OrderStatusInPreparation: {OrderStatusReady},
	OrderStatusReady:         {OrderStatusDelivered},
	OrderStatusDelivered:     {OrderStatusPaid},
	OrderStatusPaid:          {},
	OrderStatusCancelled:     {},
}

// OrderStatuses lists every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusCreated,
		OrderStatusInPreparation,
		OrderStatusReady,
		OrderStatusDelivered,
		OrderStatusPaid,
		OrderStatusCancelled,
	}
}

// TerminalStatuses are the statuses with no outgoing transitions.
func TerminalStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPaid, OrderStatusCancelled}
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether s is PAID or CANCELLED.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Order is a table's tab. Its status only moves through the transition table.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          int64       `bun:",pk,autoincrement"`
	TableID     int64       `bun:"table_id,notnull"`
	Status      OrderStatus `bun:"status,notnull"`
	CreatedByID int64       `bun:"created_by_id,notnull"`
	CreatedAt   time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time   `bun:"updated_at,nullzero"`

	Table     *Table      `bun:"rel:belongs-to,join:table_id=id"`
	CreatedBy *User       `bun:"rel:belongs-to,join:created_by_id=id"`
	Items     []OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// IsActive reports whether the order is still open.
func (o *Order) IsActive() bool {
	return !o.Status.Terminal()
}
