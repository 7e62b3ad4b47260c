package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/msenthi7/medical-chatbot/middleware"
	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/services"
	"github.com/msenthi7/medical-chatbot/services/chat"
	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/msenthi7/medical-chatbot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockChatService is a mock implementation of ChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Ask(ctx context.Context, req chat.Request) (*chat.Answer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Answer), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, sessionID string) (*chat.History, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.History), args.Error(1)
}

func (m *MockChatService) Reset(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

const testSession = "8d0d7c5e-2f0c-4f7e-9d8e-1b2c3d4e5f60"

func withSession(req *http.Request) *http.Request {
	ctx := middleware.WithRequestID(req.Context(), "req-1")
	return req.WithContext(middleware.WithSessionID(ctx, testSession))
}

func sampleAnswer() *chat.Answer {
	return &chat.Answer{
		ExchangeID:   uuid.New(),
		Text:         "Acne is a skin condition.",
		Sources:      []string{"gale-encyclopedia.pdf"},
		Model:        "gpt-4o",
		Provider:     "openai",
		FinishReason: "stop",
		Usage:        providers.Usage{PromptTokens: 120, CompletionTokens: 8, TotalTokens: 128},
		LatencyMs:    420,
	}
}

func TestHandleGet(t *testing.T) {
	logger := zap.NewNop()

	t.Run("post form", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		svc.On("Ask", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
			return req.SessionID == testSession &&
				req.Message == "What is acne?" &&
				req.RequestID == "req-1" &&
				req.IPAddress == "192.0.2.1" &&
				req.UserAgent == "browser"
		})).Return(sampleAnswer(), nil)

		form := url.Values{"msg": {"What is acne?"}}
		req := httptest.NewRequest(http.MethodPost, "/get", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", "browser")
		w := httptest.NewRecorder()

		handler.HandleGet(w, withSession(req))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "Acne is a skin condition.", w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("get query", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		svc.On("Ask", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
			return req.Message == "fever?"
		})).Return(sampleAnswer(), nil)

		req := httptest.NewRequest(http.MethodGet, "/get?msg=fever%3F", nil)
		w := httptest.NewRecorder()

		handler.HandleGet(w, withSession(req))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing msg", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		req := httptest.NewRequest(http.MethodGet, "/get", nil)
		w := httptest.NewRecorder()

		handler.HandleGet(w, withSession(req))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "msg is required", w.Body.String())
		svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
	})

	t.Run("empty msg reaches the service", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		svc.On("Ask", mock.Anything, mock.Anything).Return(nil, services.ErrEmptyMessage)

		req := httptest.NewRequest(http.MethodGet, "/get?msg=", nil)
		w := httptest.NewRecorder()

		handler.HandleGet(w, withSession(req))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "message cannot be empty", w.Body.String())
	})

	t.Run("provider unavailable", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		svc.On("Ask", mock.Anything, mock.Anything).Return(nil, services.ErrProviderUnavailable)

		req := httptest.NewRequest(http.MethodGet, "/get?msg=hi", nil)
		w := httptest.NewRecorder()

		handler.HandleGet(w, withSession(req))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "LLM provider unavailable", w.Body.String())
	})
}

func TestHandleChat(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful answer", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		answer := sampleAnswer()
		svc.On("Ask", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
			return req.SessionID == testSession && req.Message == "What is acne?"
		})).Return(answer, nil)

		body, _ := json.Marshal(ChatRequest{Message: "What is acne?"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		handler.HandleChat(w, withSession(req))

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data chat.Answer `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, answer.Text, response.Data.Text)
		assert.Equal(t, []string{"gale-encyclopedia.pdf"}, response.Data.Sources)
		assert.Equal(t, "gpt-4o", response.Data.Model)
		assert.Equal(t, 128, response.Data.Usage.TotalTokens)
		assert.Equal(t, 420, response.Data.LatencyMs)
		svc.AssertExpectations(t)
	})

	t.Run("invalid json", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
		w := httptest.NewRecorder()

		handler.HandleChat(w, withSession(req))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
	})

	t.Run("blank message", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"   "}`))
		w := httptest.NewRecorder()

		handler.HandleChat(w, withSession(req))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "message is required", response.Details["message"])
		svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, logger)

		svc.On("Ask", mock.Anything, mock.Anything).
			Return(nil, services.NewDomainError(services.ErrorTypeExternal, "could not search the medical knowledge base", nil))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
		w := httptest.NewRecorder()

		handler.HandleChat(w, withSession(req))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "could not search the medical knowledge base", response.Message)
	})
}

func TestHandleHistory(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, zap.NewNop())

	history := &chat.History{
		SessionID: testSession,
		Messages: []models.Message{
			models.UserMessage(testSession, "What is acne?"),
			models.AssistantMessage(testSession, "A skin condition."),
		},
	}
	svc.On("History", mock.Anything, testSession).Return(history, nil)

	w := httptest.NewRecorder()
	handler.HandleHistory(w, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data chat.History `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, testSession, response.Data.SessionID)
	require.Len(t, response.Data.Messages, 2)
	assert.Equal(t, "What is acne?", response.Data.Messages[0].Content)
	svc.AssertExpectations(t)
}

func TestHandleReset(t *testing.T) {
	t.Run("clears the session", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, zap.NewNop())
		svc.On("Reset", mock.Anything, testSession).Return(nil)

		w := httptest.NewRecorder()
		handler.HandleReset(w, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/chat/history", nil)))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := new(MockChatService)
		handler := NewChatHandler(svc, zap.NewNop())
		svc.On("Reset", mock.Anything, testSession).Return(services.WrapInternal("could not clear the conversation", assert.AnError))

		w := httptest.NewRecorder()
		handler.HandleReset(w, withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/chat/history", nil)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
