package dto

import (
	"time"

	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

// OrderItemResponse is the public shape of an order line.
type OrderItemResponse struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order"`
	ProductID   *int64    `json:"product"`
	ProductName string    `json:"product_name"`
	UnitPrice   string    `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	Subtotal    string    `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddOrderItemRequest is the body of POST /order-items.
type AddOrderItemRequest struct {
	Order    int64 `json:"order"`
	Product  int64 `json:"product"`
	Quantity *int  `json:"quantity"`
}

// UpdateOrderItemRequest is the body of PATCH /order-items/:id.
type UpdateOrderItemRequest struct {
	Quantity *int `json:"quantity"`
}

// NewOrderItemResponse maps an order line.
func NewOrderItemResponse(i *entity.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:          i.ID,
		OrderID:     i.OrderID,
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		UnitPrice:   i.UnitPrice.StringFixed(3),
		Quantity:    i.Quantity,
		Subtotal:    i.Subtotal().StringFixed(3),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// NewOrderItemResponses maps a slice of order lines.
func NewOrderItemResponses(items []entity.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewOrderItemResponse(&items[i]))
	}
	return out
}
