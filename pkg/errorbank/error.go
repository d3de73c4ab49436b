// Package errorbank defines the application error type shared by the HTTP
// and gRPC transports. Errors carry a kind, which decides the transport
// status, and a stable code that clients switch on.
package errorbank

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind enumerates supported application error categories.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindInternal            Kind = "internal"
)

type statusPair struct {
	http int
	grpc codes.Code
}

var statuses = map[Kind]statusPair{
	KindBadRequest:          {http.StatusBadRequest, codes.InvalidArgument},
	KindForbidden:           {http.StatusForbidden, codes.PermissionDenied},
	KindConflict:            {http.StatusConflict, codes.AlreadyExists},
	KindNotFound:            {http.StatusNotFound, codes.NotFound},
	KindUnprocessableEntity: {http.StatusUnprocessableEntity, codes.FailedPrecondition},
	KindInternal:            {http.StatusInternalServerError, codes.Internal},
}

// AppError is an error with a kind, a code and optional details.
type AppError struct {
	kind    Kind
	code    string
	message string
	details map[string]any
	cause   error
}

// Option customises an AppError at construction.
type Option func(*AppError)

// WithCause wraps err so errors.Is and errors.As see through the AppError.
func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

// WithCode overrides the default code, which is the kind itself.
func WithCode(code string) Option {
	return func(e *AppError) { e.code = code }
}

func WithDetail(key string, value any) Option {
	return WithDetails(map[string]any{key: value})
}

func WithDetails(details map[string]any) Option {
	return func(e *AppError) {
		if len(details) == 0 {
			return
		}
		if e.details == nil {
			e.details = make(map[string]any, len(details))
		}
		maps.Copy(e.details, details)
	}
}

// New builds an AppError. An empty message defaults to the kind.
func New(kind Kind, message string, opts ...Option) *AppError {
	e := &AppError{kind: kind, code: string(kind), message: message}
	if e.message == "" {
		e.message = string(kind)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

func Forbidden(message string, opts ...Option) *AppError {
	return New(KindForbidden, message, opts...)
}

func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

func Unprocessable(message string, opts ...Option) *AppError {
	return New(KindUnprocessableEntity, message, opts...)
}

func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From converts any error into an AppError. Errors that are not AppErrors
// become internal errors wrapping the original.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any AppError with the same code, so errors built with other
// messages or details still match a sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e != nil && t != nil && e.code == t.code
}

func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *AppError) Code() string {
	if e == nil {
		return string(KindInternal)
	}
	return e.code
}

func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// StatusCode is the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	return e.statuses().http
}

// GRPCCode is the gRPC status code for the error kind.
func (e *AppError) GRPCCode() codes.Code {
	return e.statuses().grpc
}

func (e *AppError) statuses() statusPair {
	if s, ok := statuses[e.Kind()]; ok {
		return s
	}
	return statuses[KindInternal]
}
