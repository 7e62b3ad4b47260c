package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/msenthi7/medical-chatbot/internal/observability"
	"github.com/msenthi7/medical-chatbot/middleware"
	"github.com/msenthi7/medical-chatbot/services/chat"
	"github.com/msenthi7/medical-chatbot/utils"
	"go.uber.org/zap"
)

// maxBodyBytes bounds chat request bodies
const maxBodyBytes = 64 << 10

// ChatService defines the chat operations the handlers need
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) (*chat.Answer, error)
	History(ctx context.Context, sessionID string) (*chat.History, error)
	Reset(ctx context.Context, sessionID string) error
}

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	Message string `json:"message" validate:"notblank"`
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGet handles GET|POST /get, the browser chat route. The question is
// the form field msg and the answer is returned as plain text.
func (h *ChatHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observability.Logger(ctx, h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", zap.Error(err))
		_ = utils.WriteText(w, http.StatusBadRequest, "invalid form data")
		return
	}

	msg, ok := r.Form["msg"]
	if !ok || len(msg) == 0 {
		_ = utils.WriteText(w, http.StatusBadRequest, "msg is required")
		return
	}

	answer, err := h.service.Ask(ctx, h.chatRequest(r, msg[0]))
	if err != nil {
		HandleServiceErrorText(w, err, log)
		return
	}

	if err := utils.WriteText(w, http.StatusOK, answer.Text); err != nil {
		log.Error("failed to write response", zap.Error(err))
	}
}

// HandleChat handles POST /api/v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observability.Logger(ctx, h.logger)

	var body ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		log.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&body); err != nil {
		log.Debug("request validation failed", zap.Error(err))
		HandleValidationError(w, err, log)
		return
	}

	answer, err := h.service.Ask(ctx, h.chatRequest(r, body.Message))
	if err != nil {
		HandleServiceError(w, err, log)
		return
	}

	if err := utils.WriteOK(w, answer); err != nil {
		log.Error("failed to write response", zap.Error(err))
	}
}

// HandleHistory handles GET /api/v1/chat/history
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observability.Logger(ctx, h.logger)

	history, err := h.service.History(ctx, middleware.GetSessionIDFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, log)
		return
	}

	if err := utils.WriteOK(w, history); err != nil {
		log.Error("failed to write response", zap.Error(err))
	}
}

// HandleReset handles DELETE /api/v1/chat/history
func (h *ChatHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Reset(ctx, middleware.GetSessionIDFromContext(ctx)); err != nil {
		HandleServiceError(w, err, observability.Logger(ctx, h.logger))
		return
	}

	utils.WriteNoContent(w)
}

func (h *ChatHandler) chatRequest(r *http.Request, message string) chat.Request {
	ctx := r.Context()
	return chat.Request{
		SessionID: middleware.GetSessionIDFromContext(ctx),
		Message:   message,
		RequestID: middleware.GetRequestIDFromContext(ctx),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP strips the port RemoteAddr usually carries
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
