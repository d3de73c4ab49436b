// Package response renders every HTTP reply in the same JSON envelope:
// {"success": true, "data": ..., "meta": ...} on success and
// {"success": false, "error": {...}, "meta": ...} on failure.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *errorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type errorBody struct {
	Kind    errorbank.Kind `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder accumulates one response for an echo context.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New starts a 200 response.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the success status. Error statuses are derived from
// the error kind unless status is already 4xx or 5xx.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta sets one meta entry; empty keys are ignored.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = map[string]any{}
	}
	b.meta[key] = value
	return b
}

// Build writes the response.
func (b *Builder) Build() error {
	if b.err == nil {
		return b.ctx.JSON(b.status, envelope{Success: true, Data: b.data, Meta: b.meta})
	}

	appErr := errorbank.From(b.err)
	status := b.status
	if status < http.StatusBadRequest {
		status = appErr.StatusCode()
	}

	body := &errorBody{
		Kind:    appErr.Kind(),
		Code:    appErr.Code(),
		Message: appErr.Message(),
		Details: appErr.Details(),
	}
	if status >= http.StatusInternalServerError {
		body.Message = http.StatusText(status)
		body.Details = nil
	}
	if id := b.ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		b.WithMeta("request_id", id)
	}

	return b.ctx.JSON(status, envelope{Error: body, Meta: b.meta})
}
