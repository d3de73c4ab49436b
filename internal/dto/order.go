package dto

import (
	"time"

	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

// OrderResponse is the public shape of an order. Items and Total are only
// filled on detail reads.
type OrderResponse struct {
	ID        int64               `json:"id"`
	Table     TableRef            `json:"table"`
	Status    entity.OrderStatus  `json:"status"`
	IsActive  bool                `json:"is_active"`
	CreatedBy string              `json:"created_by"`
	Items     []OrderItemResponse `json:"items,omitempty"`
	Total     string              `json:"total,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Table int64 `json:"table"`
}

// ChangeStatusRequest is the body of POST /orders/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// NewOrderResponse maps an order entity without its items.
func NewOrderResponse(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		Table:     TableRef{ID: o.TableID},
		Status:    o.Status,
		IsActive:  o.IsActive(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.Table != nil {
		resp.Table.Number = o.Table.Number
	}
	if o.CreatedBy != nil {
		resp.CreatedBy = o.CreatedBy.Username
	}
	return resp
}

// NewOrderDetail maps an order with its lines and total.
func NewOrderDetail(o *entity.Order, items []entity.OrderItem) OrderResponse {
	resp := NewOrderResponse(o)
	resp.Items = NewOrderItemResponses(items)
	resp.Total = entity.OrderTotal(items).StringFixed(3)
	return resp
}

// NewOrderResponses maps a slice of orders.
func NewOrderResponses(orders []entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}
