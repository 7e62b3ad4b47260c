package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteText(w, http.StatusOK, "Drink plenty of fluids.")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "Drink plenty of fluids.", w.Body.String())
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"answer": "rest"}

	err := WriteOK(w, data)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "rest", dataMap["answer"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"message": "message is required"}

	err := WriteBadRequest(w, "Invalid input", details)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err = json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "Invalid input", response.Message)
	assert.Equal(t, "message is required", response.Details["message"])
}

func TestWriteDefaultMessages(t *testing.T) {
	tests := []struct {
		name    string
		write   func(http.ResponseWriter) error
		status  int
		code    string
		message string
	}{
		{
			name:    "unauthorized",
			write:   func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			status:  http.StatusUnauthorized,
			code:    "unauthorized",
			message: "Authentication required",
		},
		{
			name:    "not found",
			write:   func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			status:  http.StatusNotFound,
			code:    "not_found",
			message: "Resource not found",
		},
		{
			name:    "internal",
			write:   func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.status, w.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.code, response.Error)
			assert.Equal(t, tt.message, response.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError string
	}{
		{"bad request", http.StatusBadRequest, "bad_request"},
		{"not found", http.StatusNotFound, "not_found"},
		{"bad gateway", http.StatusBadGateway, "upstream_error"},
		{"service unavailable", http.StatusServiceUnavailable, "service_unavailable"},
		{"gateway timeout", http.StatusGatewayTimeout, "upstream_timeout"},
		{"too many requests", http.StatusTooManyRequests, "rate_limited"},
		{"unknown", http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := WriteError(w, tt.status, "something happened", nil)
			require.NoError(t, err)

			assert.Equal(t, tt.status, w.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, "something happened", response.Message)
		})
	}
}
