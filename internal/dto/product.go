package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

// ProductResponse is the public shape of a product. Prices are rendered with
// three decimal places.
type ProductResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	IsActive     bool      `json:"is_active"`
	CreatedBy    string    `json:"created_by,omitempty"`
	ModifiedByID *int64    `json:"modified_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// UpdateProductRequest is the body of PATCH /products/:id.
type UpdateProductRequest struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// NewProductResponse maps a product entity.
func NewProductResponse(p *entity.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price.StringFixed(3),
		IsActive:     p.IsActive,
		ModifiedByID: p.ModifiedByID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.CreatedBy != nil {
		resp.CreatedBy = p.CreatedBy.Username
	}
	return resp
}

// NewProductResponses maps a slice of products.
func NewProductResponses(products []entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, NewProductResponse(&products[i]))
	}
	return out
}
