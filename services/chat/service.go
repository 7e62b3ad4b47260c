// Package chat runs the retrieval-augmented question answering pipeline.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/msenthi7/medical-chatbot/internal/observability"
	"github.com/msenthi7/medical-chatbot/internal/rag"
	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/services"
	"github.com/msenthi7/medical-chatbot/services/exchangelog"
	"github.com/msenthi7/medical-chatbot/services/memory"
	"github.com/msenthi7/medical-chatbot/services/prompt"
	"github.com/msenthi7/medical-chatbot/services/providers"
	"go.uber.org/zap"
)

// Service orchestrates retrieval, prompting, completion and memory
type Service struct {
	registry  *providers.Registry
	retriever rag.Retriever
	prompt    *prompt.Template
	store     memory.Store
	window    memory.Window
	recorder  exchangelog.Recorder
	config    Config
	logger    *zap.Logger
}

// NewService creates a chat service. retriever may be nil when the vector
// store is not configured; questions then fail as unavailable.
func NewService(
	registry *providers.Registry,
	retriever rag.Retriever,
	tmpl *prompt.Template,
	store memory.Store,
	window memory.Window,
	recorder exchangelog.Recorder,
	config Config,
	logger *zap.Logger,
) *Service {
	if tmpl == nil {
		tmpl = prompt.Default()
	}
	if recorder == nil {
		recorder = exchangelog.Noop{}
	}
	return &Service{
		registry:  registry,
		retriever: retriever,
		prompt:    tmpl,
		store:     store,
		window:    window,
		recorder:  recorder,
		config:    config,
		logger:    logger,
	}
}

// Ask answers one user message within its session
func (s *Service) Ask(ctx context.Context, req Request) (*Answer, error) {
	start := time.Now()
	ctx = withSession(ctx, req.SessionID)
	log := observability.Logger(ctx, s.logger)

	question, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	provider, err := s.provider(ctx)
	if err != nil {
		return nil, err
	}

	exchange := models.NewChatExchange(req.SessionID, provider.Name(), s.config.Model, question)
	exchange.SetRequestMetadata(req.RequestID, req.IPAddress, req.UserAgent)
	fail := func(code string, err error) (*Answer, error) {
		exchange.MarkAsFailed(code, err.Error(), int(time.Since(start).Milliseconds()))
		s.record(log, exchange)
		log.Warn("Chat exchange failed", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	log.Debug("Loading conversation memory")
	history, err := s.store.Load(ctx, req.SessionID)
	if err != nil {
		return fail("MEMORY_ERROR", services.NewDomainError(services.ErrorTypeInternal, "could not load the conversation", err))
	}
	history = s.window.Apply(history)

	log.Debug("Retrieving documents", zap.Int("history_messages", len(history)))
	docs, err := s.retrieve(ctx, question)
	if err != nil {
		return fail("RETRIEVAL_ERROR", err)
	}
	sources := rag.Sources(docs)
	exchange.SetSources(documentIDs(docs))

	system, err := s.prompt.Render(rag.StuffDocuments(docs))
	if err != nil {
		return fail("PROMPT_ERROR", services.WrapInternal("could not build the prompt", err))
	}

	chatReq := &providers.ChatRequest{
		Model:       s.config.Model,
		Messages:    buildMessages(system, history, question),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		User:        req.SessionID,
	}

	log.Debug("Calling chat provider",
		zap.String("provider", provider.Name()),
		zap.Int("messages", len(chatReq.Messages)))
	resp, err := provider.ChatCompletion(ctx, chatReq)
	if err != nil {
		code := "PROVIDER_ERROR"
		var provErr *providers.ProviderError
		if errors.As(err, &provErr) {
			code = provErr.Code
		}
		return fail(code, classifyProviderError(err))
	}

	answerText := strings.TrimSpace(resp.Content)
	if err := s.store.Append(ctx, req.SessionID,
		models.UserMessage(req.SessionID, question),
		models.AssistantMessage(req.SessionID, answerText),
	); err != nil {
		log.Warn("Failed to save conversation turn", zap.Error(err))
	}

	latencyMs := int(time.Since(start).Milliseconds())
	exchange.Model = resp.Model
	exchange.MarkAsCompleted(answerText, resp.FinishReason, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, latencyMs)
	s.record(log, exchange)

	log.Info("Chat exchange completed",
		zap.String("exchange_id", exchange.ID.String()),
		zap.String("provider", provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("documents", len(docs)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Int("latency_ms", latencyMs))

	return &Answer{
		ExchangeID:   exchange.ID,
		Text:         answerText,
		Sources:      sources,
		Model:        resp.Model,
		Provider:     provider.Name(),
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		LatencyMs:    latencyMs,
	}, nil
}

// History returns the session's full conversation buffer
func (s *Service) History(ctx context.Context, sessionID string) (*History, error) {
	if sessionID == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "session is required", nil)
	}
	msgs, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "could not load the conversation", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return &History{SessionID: sessionID, Messages: msgs}, nil
}

// Reset forgets the session's conversation
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return services.NewDomainError(services.ErrorTypeValidation, "session is required", nil)
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return services.NewDomainError(services.ErrorTypeInternal, "could not clear the conversation", err)
	}
	observability.Logger(withSession(ctx, sessionID), s.logger).Info("Conversation reset")
	return nil
}

// withSession tags ctx with sessionID unless the session middleware already did
func withSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" || observability.SessionID(ctx) != "" {
		return ctx
	}
	return observability.WithSessionID(ctx, sessionID)
}

// ProviderName returns the configured chat provider
func (s *Service) ProviderName() string {
	return s.config.Provider
}

// Model returns the configured chat model
func (s *Service) Model() string {
	return s.config.Model
}

func (s *Service) validate(req Request) (string, error) {
	if req.SessionID == "" {
		return "", services.NewDomainError(services.ErrorTypeValidation, "session is required", nil)
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return "", services.NewDomainError(services.ErrorTypeValidation, "message cannot be empty", nil)
	}
	if limit := s.config.MaxMessageLength; limit > 0 && utf8.RuneCountInString(question) > limit {
		return "", services.NewDomainError(services.ErrorTypeValidation, "message is too long", nil).
			WithDetail("max_length", limit)
	}
	return question, nil
}

func (s *Service) provider(ctx context.Context) (providers.Provider, error) {
	p, err := s.registry.GetProvider(s.config.Provider)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUnavailable, "the chat model is not configured", err).
			WithDetail("provider", s.config.Provider)
	}
	if !p.IsAvailable(ctx) {
		return nil, services.NewDomainError(services.ErrorTypeUnavailable, "the chat model is not configured", nil).
			WithDetail("provider", p.Name())
	}
	return p, nil
}

func (s *Service) retrieve(ctx context.Context, question string) ([]rag.Document, error) {
	if s.retriever == nil {
		return nil, services.NewDomainError(services.ErrorTypeUnavailable, "the medical knowledge base is not configured", nil)
	}
	docs, err := s.retriever.Retrieve(ctx, question, rag.RetrievalOptions{TopK: s.config.TopK})
	if err != nil {
		if errors.Is(err, rag.ErrMissingPineconeKey) {
			return nil, services.NewDomainError(services.ErrorTypeUnavailable, "the medical knowledge base is not configured", err)
		}
		return nil, services.NewDomainError(services.ErrorTypeExternal, "could not search the medical knowledge base", err)
	}
	return docs, nil
}

func (s *Service) record(log *zap.Logger, exchange *models.ChatExchange) {
	if err := s.recorder.Record(exchange); err != nil && !errors.Is(err, exchangelog.ErrNotStarted) {
		log.Warn("Chat exchange not recorded", zap.Error(err))
	}
}

// classifyProviderError maps provider failures to domain errors
func classifyProviderError(err error) error {
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.NewDomainError(services.ErrorTypeExternal, "the chat model timed out", err)
		}
		return services.NewDomainError(services.ErrorTypeExternal, "the chat model returned an error", err)
	}

	switch provErr.Code {
	case "MISSING_API_KEY", "AUTHENTICATION_ERROR":
		return services.NewDomainError(services.ErrorTypeUnavailable, "the chat model is not configured", err).
			WithDetail("provider", provErr.Provider)
	case "TIMEOUT":
		return services.NewDomainError(services.ErrorTypeExternal, "the chat model timed out", err).
			WithDetail("timeout", true)
	case "RATE_LIMIT":
		return services.NewDomainError(services.ErrorTypeExternal, "the chat model is busy, try again shortly", err).
			WithDetail("retryable", true)
	case "INVALID_MODEL":
		return services.NewDomainError(services.ErrorTypeInternal, "the configured chat model is not supported", err)
	default:
		return services.NewDomainError(services.ErrorTypeExternal, "the chat model returned an error", err).
			WithDetail("provider", provErr.Provider).
			WithDetail("retryable", provErr.Retryable)
	}
}

// buildMessages lays out system prompt, replayed history and the new question
func buildMessages(system string, history []models.Message, question string) []providers.Message {
	msgs := make([]providers.Message, 0, len(history)+2)
	msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: system})
	for _, m := range history {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		msgs = append(msgs, providers.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(msgs, providers.Message{Role: providers.RoleUser, Content: question})
}

func documentIDs(docs []rag.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
