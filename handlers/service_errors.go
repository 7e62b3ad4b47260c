package handlers

import (
	"errors"
	"net/http"

	"github.com/msenthi7/medical-chatbot/services"
	"github.com/msenthi7/medical-chatbot/utils"
	"go.uber.org/zap"
)

// StatusForError maps a domain error to an HTTP status code
func StatusForError(err error) int {
	switch services.GetErrorType(err) {
	case services.ErrorTypeValidation:
		return http.StatusBadRequest
	case services.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorTypeNotFound:
		return http.StatusNotFound
	case services.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case services.ErrorTypeExternal:
		if timeout, _ := services.GetErrorDetails(err)["timeout"].(bool); timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text of err. Internal failures never
// leak their cause.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "An internal error occurred"
	}
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return http.StatusText(status)
}

func logServiceError(logger *zap.Logger, err error, status int) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.Int("status", status),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		return
	}
	logger.Debug("request rejected",
		zap.Int("status", status),
		zap.String("error_type", string(services.GetErrorType(err))),
		zap.Error(err))
}

// HandleServiceError maps domain errors to JSON responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := StatusForError(err)
	logServiceError(logger, err, status)

	var details map[string]interface{}
	if status != http.StatusInternalServerError {
		details = services.GetErrorDetails(err)
		if len(details) == 0 {
			details = nil
		}
	}

	if err := utils.WriteError(w, status, publicMessage(err, status), details); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleServiceErrorText maps domain errors to plain-text responses for the
// browser chat route
func HandleServiceErrorText(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := StatusForError(err)
	logServiceError(logger, err, status)

	if err := utils.WriteText(w, status, publicMessage(err, status)); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
