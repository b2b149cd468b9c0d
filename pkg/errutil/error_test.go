package errutil

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsKeepCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Internal("failed to update lead and targets", cause)

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusInternal, be.Status())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "[internal] failed to update lead and targets: deadlock detected", err.Error())
}

func TestBadRequestWithDetails(t *testing.T) {
	err := BadRequest("invalid lead", nil, WithDetails(
		Detail{Field: "salePrice", Message: "Sale price must be greater than 0 for sold leads"},
	))

	be := FromError(err)
	require.Equal(t, http.StatusBadRequest, be.Code.HTTPStatus())
	require.Len(t, be.Details, 1)
	require.Nil(t, be.Err)
}

func TestFromErrorFallbacks(t *testing.T) {
	require.Equal(t, StatusInternal, FromError(errors.New("boom")).Code)
	require.Equal(t, StatusGatewayTimeout, FromError(context.DeadlineExceeded).Code)
	require.Equal(t, StatusClientClosedRequest, FromError(context.Canceled).Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusNotFound:     http.StatusNotFound,
		StatusConflict:     http.StatusConflict,
		StatusForbidden:    http.StatusForbidden,
		StatusUnauthorized: http.StatusUnauthorized,
		StatusUnknown:      http.StatusInternalServerError,
	}
	for status, want := range cases {
		require.Equal(t, want, status.HTTPStatus(), string(status))
	}
}
