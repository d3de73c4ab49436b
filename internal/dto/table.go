package dto

import (
	"time"

	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

// TableResponse is the public shape of a table.
type TableResponse struct {
	ID             int64     `json:"id"`
	Number         int       `json:"number"`
	Capacity       int       `json:"capacity"`
	IsActive       bool      `json:"is_active"`
	HasActiveOrder bool      `json:"has_active_order"`
	ModifiedByID   *int64    `json:"modified_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableRef is the short form embedded in orders.
type TableRef struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
}

// CreateTableRequest is the body of POST /tables.
type CreateTableRequest struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

// UpdateTableRequest is the body of PATCH /tables/:id.
type UpdateTableRequest struct {
	Capacity *int `json:"capacity"`
}

// NewTableResponse maps a table entity.
func NewTableResponse(t *entity.Table) TableResponse {
	return TableResponse{
		ID:             t.ID,
		Number:         t.Number,
		Capacity:       t.Capacity,
		IsActive:       t.IsActive,
		HasActiveOrder: t.HasActiveOrder,
		ModifiedByID:   t.ModifiedByID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// NewTableResponses maps a slice of tables.
func NewTableResponses(tables []entity.Table) []TableResponse {
	out := make([]TableResponse, 0, len(tables))
	for i := range tables {
		out = append(out, NewTableResponse(&tables[i]))
	}
	return out
}
