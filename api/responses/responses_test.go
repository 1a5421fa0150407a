package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"status": "archived"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"status":"archived"}}`, rec.Body.String())
}

func TestWriteErrorStatusAndMessage(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		details bool
	}{
		{
			name:    "validation keeps message and details",
			err:     pkgerrors.Field("quantity", "quantity must be positive"),
			status:  http.StatusBadRequest,
			message: "quantity must be positive",
			details: true,
		},
		{
			name:    "state conflict through wrapping",
			err:     fmt.Errorf("cancel: %w", pkgerrors.New(pkgerrors.CodeStateConflict, "order already cancelled")),
			status:  http.StatusUnprocessableEntity,
			message: "order already cancelled",
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"id": "x"}),
			status:  http.StatusNotFound,
			message: "product not found",
		},
		{
			name:    "internal replaces message",
			err:     pkgerrors.New(pkgerrors.CodeInternal, "sql: connection reset"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			require.Equal(t, tc.status, rec.Code)
			got := decodeError(t, rec)
			require.Equal(t, string(pkgerrors.CodeOf(tc.err)), got.Code)
			require.Equal(t, tc.message, got.Message)
			require.Equal(t, tc.details, got.Details != nil)
		})
	}
}

func TestWriteErrorLogsByStatusClass(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "api-test", Level: "debug", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeConflict, "already compared"))
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"status":409`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("db down"))
	require.Contains(t, buf.String(), `"level":"error"`)
	require.Contains(t, buf.String(), `"error_code":"INTERNAL_ERROR"`)
}
