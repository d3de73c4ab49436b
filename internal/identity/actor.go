// Package identity holds the caller identity handed to every core operation.
package identity

import "github.com/Rockthor1106/restaurant-management-api/internal/entity"

// Actor is the authenticated caller.
type Actor struct {
	ID       int64
	Username string
	Admin    bool
}

// FromUser builds an Actor from a stored user.
func FromUser(u *entity.User) Actor {
	return Actor{ID: u.ID, Username: u.Username, Admin: u.IsAdmin}
}

// IsAdmin reports whether the actor has administrator rights.
func (a Actor) IsAdmin() bool {
	return a.Admin
}

// Created reports whether the actor created order.
func (a Actor) Created(order *entity.Order) bool {
	return order != nil && a.ID != 0 && order.CreatedByID == a.ID
}

// CanAccessOrder reports whether the actor may see and edit the items of order.
func (a Actor) CanAccessOrder(order *entity.Order) bool {
	return a.Admin || a.Created(order)
}

// Ref returns the actor id as a nullable reference, nil for anonymous actors.
func (a Actor) Ref() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}
