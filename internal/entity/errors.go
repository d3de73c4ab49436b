package entity

import "github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"

// Error codes for rejected preconditions. They are stable and rendered to
// clients in the error payload.
const (
	CodeTableInactive       = "table_inactive"
	CodeTableHasActiveOrder = "table_has_active_order"
	CodeInvalidTransition   = "invalid_transition"
	CodeOrderClosed         = "order_closed"
	CodeNotDelivered        = "not_delivered"
	CodeNotCancellable      = "not_cancellable"
	CodeQuantityInvalid     = "quantity_invalid"
	CodeProductInactive     = "product_inactive"
	CodeAlreadyActive       = "already_active"
	CodeAlreadyInactive     = "already_inactive"
	CodeHasActiveOrder      = "has_active_order"
)

// Sentinels for errors.Is. AppErrors match by code, so errors carrying a more
// specific message still compare equal to these.
var (
	ErrTableInactive       = errorbank.BadRequest("this table is not active", errorbank.WithCode(CodeTableInactive))
	ErrTableHasActiveOrder = errorbank.BadRequest("this table has an active order", errorbank.WithCode(CodeTableHasActiveOrder))
	ErrInvalidTransition   = errorbank.BadRequest("invalid status transition", errorbank.WithCode(CodeInvalidTransition))
	ErrOrderClosed         = errorbank.BadRequest("order is already closed", errorbank.WithCode(CodeOrderClosed))
	ErrNotDelivered        = errorbank.BadRequest("only delivered orders can be paid", errorbank.WithCode(CodeNotDelivered))
	ErrNotCancellable      = errorbank.BadRequest("only orders that have not started preparation can be cancelled", errorbank.WithCode(CodeNotCancellable))
	ErrQuantityInvalid     = errorbank.BadRequest("quantity must be between 1 and 2147483647", errorbank.WithCode(CodeQuantityInvalid))
	ErrProductInactive     = errorbank.BadRequest("cannot add an inactive product to an order", errorbank.WithCode(CodeProductInactive))
	ErrAlreadyActive       = errorbank.BadRequest("already active", errorbank.WithCode(CodeAlreadyActive))
	ErrAlreadyInactive     = errorbank.BadRequest("already inactive", errorbank.WithCode(CodeAlreadyInactive))
	ErrHasActiveOrder      = errorbank.BadRequest("cannot deactivate a table with active orders", errorbank.WithCode(CodeHasActiveOrder))
)

// InvalidTransition builds the error returned when from -> to is not in the
// transition table.
func InvalidTransition(from, to OrderStatus) error {
	return errorbank.BadRequest("cannot change status from "+string(from)+" to "+string(to),
		errorbank.WithCode(CodeInvalidTransition),
		errorbank.WithDetail("from", string(from)),
		errorbank.WithDetail("to", string(to)),
	)
}
