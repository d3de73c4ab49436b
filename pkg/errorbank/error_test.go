package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestAppErrorMatchesByCode(t *testing.T) {
	sentinel := BadRequest("order is closed", WithCode("order_closed"))
	err := BadRequest("cannot deliver, the order is already closed", WithCode("order_closed"), WithDetail("order_id", 7))

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), sentinel)
	assert.NotErrorIs(t, err, BadRequest("other", WithCode("quantity_invalid")))
}

func TestDefaultCodeFollowsKind(t *testing.T) {
	err := NotFound("order not found")

	assert.Equal(t, "not_found", err.Code())
	assert.Equal(t, http.StatusNotFound, err.StatusCode())
	assert.Equal(t, codes.NotFound, err.GRPCCode())
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		grpc   codes.Code
	}{
		{BadRequest("x"), http.StatusBadRequest, codes.InvalidArgument},
		{Forbidden("x"), http.StatusForbidden, codes.PermissionDenied},
		{Conflict("x"), http.StatusConflict, codes.AlreadyExists},
		{Unprocessable("x"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("x"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Kind())
		assert.Equal(t, tc.grpc, tc.err.GRPCCode(), tc.err.Kind())
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := From(cause)

	assert.Equal(t, KindInternal, appErr.Kind())
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, From(nil))

	known := Conflict("duplicate")
	assert.Same(t, known, From(fmt.Errorf("ctx: %w", known)))
}

func TestUnknownKindFallsBackToInternal(t *testing.T) {
	err := New(Kind("teapot"), "")

	assert.Equal(t, "teapot", err.Message())
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
	assert.Equal(t, codes.Internal, err.GRPCCode())
}

func TestDetailsMerge(t *testing.T) {
	err := Conflict("taken", WithDetail("field", "username"), WithDetails(map[string]any{"value": "ana"}))

	assert.Equal(t, map[string]any{"field": "username", "value": "ana"}, err.Details())
	var nilErr *AppError
	assert.Nil(t, nilErr.Details())
	assert.Equal(t, KindInternal, nilErr.Kind())
}
