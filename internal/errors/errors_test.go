package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"wastedash/domain/core"
)

func TestGetCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"app error", InvalidInput("bad year"), CodeInvalidInput, http.StatusBadRequest},
		{"wrapped app error keeps code", Wrap(NotFound("view x"), "lookup"), CodeNotFound, http.StatusNotFound},
		{"data source", core.NewDataSourceError("a.csv", []string{"cp949"}, stderrors.New("eof")), CodeDataSource, http.StatusServiceUnavailable},
		{"unsupported chart", fmt.Errorf("%w: radar", core.ErrUnsupportedChart), CodeInvalidInput, http.StatusBadRequest},
		{"canceled", fmt.Errorf("read: %w", context.Canceled), CodeCanceled, StatusClientClosedRequest},
		{"deadline", context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{"wrapped canceled", Wrap(context.Canceled, "load view"), CodeCanceled, StatusClientClosedRequest},
		{"unknown", stderrors.New("boom"), "UNKNOWN", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, GetCode(tc.err))
			assert.Equal(t, tc.status, HTTPStatus(GetCode(tc.err)))
		})
	}
	assert.Equal(t, "", GetCode(nil))
}
