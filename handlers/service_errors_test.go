package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msenthi7/medical-chatbot/services"
	"github.com/msenthi7/medical-chatbot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrSessionNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "chat session not found",
		},
		{
			name:            "validation error",
			err:             services.ErrEmptyMessage,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "message cannot be empty",
		},
		{
			name:            "unauthorized error",
			err:             services.ErrInvalidSession,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "invalid session",
		},
		{
			name:            "unavailable error",
			err:             services.ErrProviderUnavailable,
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "service_unavailable",
			expectedMessage: "LLM provider unavailable",
		},
		{
			name:            "external error",
			err:             services.NewDomainError(services.ErrorTypeExternal, "the model did not answer", errors.New("502 from upstream")),
			expectedStatus:  http.StatusBadGateway,
			expectedError:   "upstream_error",
			expectedMessage: "the model did not answer",
		},
		{
			name:            "external timeout",
			err:             services.NewDomainError(services.ErrorTypeExternal, "the model timed out", nil).WithDetail("timeout", true),
			expectedStatus:  http.StatusGatewayTimeout,
			expectedError:   "upstream_timeout",
			expectedMessage: "the model timed out",
		},
		{
			name:            "internal error hides cause",
			err:             services.WrapInternal("memory exploded", errors.New("pq: connection refused")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "unknown error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response utils.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeValidation, "message is too long", nil).
		WithDetail("max_length", 10)

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(10), response.Details["max_length"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	HandleServiceErrorText(w, nil, zap.NewNop())
	assert.Empty(t, w.Body.String())
}

func TestHandleServiceErrorText(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"validation", services.ErrEmptyMessage, http.StatusBadRequest, "message cannot be empty"},
		{"unavailable", services.ErrRetrieverUnavailable, http.StatusServiceUnavailable, "document retriever unavailable"},
		{"external", services.WrapExternal("the model did not answer", errors.New("secret upstream detail")), http.StatusBadGateway, "the model did not answer"},
		{"internal", services.WrapInternal("db down", errors.New("dsn=postgres://u:p@h")), http.StatusInternalServerError, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceErrorText(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	type payload struct {
		Message string `json:"message" validate:"required"`
	}

	t.Run("struct validation", func(t *testing.T) {
		err := utils.ValidateStruct(&payload{})
		require.Error(t, err)

		w := httptest.NewRecorder()
		HandleValidationError(w, err, zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "message is required", response.Details["message"])
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("bad json"), zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "bad json", response.Message)
	})
}
