// Package request holds small helpers shared by the HTTP handlers.
package request

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

// ID parses the positive integer path parameter name.
func ID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithDetail("param", name))
	}
	return id, nil
}

// Bind decodes the request body into dst.
func Bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	return nil
}

// Actor returns the authenticated caller. Routes using it are always behind
// the authentication middleware.
func Actor(c echo.Context) (identity.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return identity.Actor{}, errorbank.Forbidden("authentication credentials were not provided", errorbank.WithCode("not_authenticated"))
	}
	return actor, nil
}
