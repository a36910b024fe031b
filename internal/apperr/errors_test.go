package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindAndCodeTravelThroughWrapping(t *testing.T) {
	inner := Coded(KindConflict, CodeShiftActive, "employee already on shift")
	outer := fmt.Errorf("start shift: %w", inner)

	require.Equal(t, KindConflict, KindOf(outer))
	require.Equal(t, CodeShiftActive, CodeOf(outer))
	require.True(t, IsKind(outer, KindConflict))
}

func TestNewDefaultsCodeToKind(t *testing.T) {
	err := New(KindValidation, "name is required")
	require.Equal(t, string(KindValidation), CodeOf(err))
	require.Equal(t, "name is required", MessageOf(err))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("pq: connection reset")
	require.Equal(t, KindInternal, KindOf(err))
	require.Equal(t, string(KindInternal), CodeOf(err))
}

func TestInternalMessageNeverLeaks(t *testing.T) {
	err := Wrap(KindInternal, errors.New("dial tcp 10.0.0.5:5432: timeout"), "query transactions")
	require.Equal(t, "internal server error", MessageOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(KindNotFound, cause, "creditor not found")
	require.ErrorIs(t, err, cause)
	require.Equal(t, "creditor not found", MessageOf(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:       http.StatusBadRequest,
		KindUnauthenticated:  http.StatusUnauthorized,
		KindForbidden:        http.StatusForbidden,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindNoPrice:          http.StatusConflict,
		KindTankInsufficient: http.StatusConflict,
		KindQuotaExceeded:    http.StatusTooManyRequests,
		KindExternal:         http.StatusBadGateway,
		KindInternal:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, HTTPStatus(kind), "kind %s", kind)
	}
}
