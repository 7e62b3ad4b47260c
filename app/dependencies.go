package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msenthi7/medical-chatbot/config"
	"github.com/msenthi7/medical-chatbot/handlers"
	"github.com/msenthi7/medical-chatbot/internal/rag"
	"github.com/msenthi7/medical-chatbot/internal/tokens"
	"github.com/msenthi7/medical-chatbot/middleware"
	"github.com/msenthi7/medical-chatbot/repositories"
	"github.com/msenthi7/medical-chatbot/repositories/postgres"
	"github.com/msenthi7/medical-chatbot/services/chat"
	"github.com/msenthi7/medical-chatbot/services/exchangelog"
	"github.com/msenthi7/medical-chatbot/services/memory"
	"github.com/msenthi7/medical-chatbot/services/prompt"
	"github.com/msenthi7/medical-chatbot/services/providers"
	anthropicprovider "github.com/msenthi7/medical-chatbot/services/providers/anthropic"
	openaiprovider "github.com/msenthi7/medical-chatbot/services/providers/openai"
	"go.uber.org/zap"
)

// Version is the build version, set with -ldflags "-X ...app.Version=..."
var Version = "dev"

// Dependencies holds every wired component of the chatbot.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil unless postgres memory or the exchange log is enabled
	Logger *zap.Logger

	// Repositories
	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories
	TxManager    repositories.TransactionManager

	// Pipeline
	Providers   *providers.Registry
	Embedder    rag.Embedder
	Retriever   *rag.VectorRetriever // nil when the vector index is unavailable
	Prompt      *prompt.Template
	Memory      memory.Store
	ExchangeLog *exchangelog.Service // nil when disabled
	Chat        *chat.Service

	// HTTP
	Sessions *middleware.SessionManager
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	steps := []struct {
		name string
		init func(context.Context) error
	}{
		{"database", deps.initDatabase},
		{"providers", deps.initProviders},
		{"retriever", deps.initRetriever},
		{"prompt", deps.initPrompt},
		{"memory", deps.initMemory},
		{"exchange log", deps.initExchangeLog},
		{"sessions", deps.initSessions},
	}
	for _, step := range steps {
		if err := step.init(ctx); err != nil {
			_ = deps.Close(ctx)
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	deps.initChat()

	logger.Info("all dependencies initialized successfully",
		zap.String("provider", cfg.Chat.Provider),
		zap.String("model", cfg.Chat.Model),
		zap.String("memory_backend", cfg.Memory.Backend),
		zap.Bool("retriever", deps.Retriever != nil),
		zap.Bool("exchange_log", deps.ExchangeLog != nil))
	return deps, nil
}

// initDatabase opens PostgreSQL only when a component needs it
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if !d.Config.NeedsDatabase() {
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(d.Config, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()
	d.Repositories = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	if err := d.DB.InitSchema(ctx); err != nil {
		return err
	}

	d.Logger.Info("repositories initialized")
	return nil
}

// initProviders registers both chat providers. A provider without an API
// key stays registered but reports itself unavailable.
func (d *Dependencies) initProviders(ctx context.Context) error {
	registry := providers.NewRegistry()
	pc := d.Config.Providers

	openAI := openaiprovider.NewOpenAIAdapter(providers.ProviderConfig{
		APIKey:     pc.OpenAI.APIKey,
		BaseURL:    pc.OpenAI.BaseURL,
		Timeout:    pc.OpenAI.Timeout,
		MaxRetries: pc.OpenAI.MaxRetries,
	})
	anthropic := anthropicprovider.NewAnthropicAdapter(providers.ProviderConfig{
		APIKey:     pc.Anthropic.APIKey,
		BaseURL:    pc.Anthropic.BaseURL,
		Timeout:    pc.Anthropic.Timeout,
		MaxRetries: pc.Anthropic.MaxRetries,
	})

	for _, p := range []providers.Provider{openAI, anthropic} {
		if err := registry.RegisterProvider(p); err != nil {
			return err
		}
	}
	for _, prefix := range []string{"gpt-", "chatgpt-", "o1", "o3", "o4"} {
		_ = registry.RegisterModelPrefix(prefix, openaiprovider.ProviderName)
	}
	_ = registry.RegisterModelPrefix("claude-", anthropicprovider.ProviderName)

	selected, err := registry.GetProvider(d.Config.Chat.Provider)
	if err != nil {
		return fmt.Errorf("chat provider %q: %w", d.Config.Chat.Provider, err)
	}
	if err := selected.ValidateModel(d.Config.Chat.Model); err != nil {
		d.Logger.Warn("chat model not recognised by provider",
			zap.String("provider", selected.Name()),
			zap.String("model", d.Config.Chat.Model),
			zap.Error(err))
	}
	if !selected.IsAvailable(ctx) {
		d.Logger.Warn("API key for the chat provider is not set, questions will fail until it is configured",
			zap.String("provider", selected.Name()))
	}

	d.Providers = registry
	return nil
}

// initRetriever connects the embedder to the vector index. Outside
// production a missing or unreachable index leaves the retriever nil.
func (d *Dependencies) initRetriever(ctx context.Context) error {
	d.Embedder = d.newEmbedder()

	index, err := rag.NewPineconeIndex(ctx, rag.PineconeConfig{
		APIKey:    d.Config.Pinecone.APIKey,
		IndexName: d.Config.Pinecone.IndexName,
		IndexHost: d.Config.Pinecone.IndexHost,
		Namespace: d.Config.Pinecone.Namespace,
		TextKey:   d.Config.Pinecone.TextKey,
	})
	if err != nil {
		if d.Config.IsProduction() {
			return err
		}
		if errors.Is(err, rag.ErrMissingPineconeKey) {
			d.Logger.Warn("PINECONE_API_KEY is not set, document retrieval is disabled")
		} else {
			d.Logger.Error("vector index unavailable, document retrieval is disabled",
				zap.String("index", d.Config.Pinecone.IndexName),
				zap.Error(err))
		}
		return nil
	}

	d.Retriever = rag.NewVectorRetriever(d.Embedder, index,
		d.Config.Retriever.TopK, d.Config.Retriever.ScoreThreshold, d.Logger)

	if err := d.checkDimensions(ctx); err != nil {
		return err
	}

	d.Logger.Info("vector index connected",
		zap.String("index", index.Name()),
		zap.String("embedding_model", d.Embedder.ModelName()))
	return nil
}

// checkDimensions confirms the embedder's vectors fit the index. A mismatch
// is fatal in production and logged with both sizes elsewhere.
func (d *Dependencies) checkDimensions(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := d.Retriever.CheckDimensions(checkCtx)
	var mismatch *rag.DimensionMismatchError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &mismatch):
		if d.Config.IsProduction() {
			return err
		}
		d.Logger.Error("embedding dimensions do not match the index, retrieval will fail",
			zap.String("embedding_model", mismatch.Model),
			zap.Int("embedding_dimensions", mismatch.Embedding),
			zap.Int("index_dimensions", mismatch.Index))
	default:
		d.Logger.Warn("could not read the index dimensions", zap.Error(err))
	}
	return nil
}

func (d *Dependencies) newEmbedder() rag.Embedder {
	ec := d.Config.Embedding
	if ec.Provider == "openai" {
		oc := d.Config.Providers.OpenAI
		return rag.NewOpenAIEmbedder(providers.ProviderConfig{
			APIKey:     oc.APIKey,
			BaseURL:    oc.BaseURL,
			Timeout:    ec.Timeout,
			MaxRetries: oc.MaxRetries,
		}, ec.Model, ec.Dimensions)
	}

	if ec.HuggingFaceAPIKey == "" {
		d.Logger.Warn("HUGGINGFACE_API_KEY is not set, embedding requests may be rate limited")
	}
	return rag.NewHuggingFaceEmbedder(rag.HuggingFaceConfig{
		BaseURL:    ec.HuggingFaceURL,
		Model:      ec.Model,
		APIKey:     ec.HuggingFaceAPIKey,
		Dimensions: ec.Dimensions,
		Timeout:    ec.Timeout,
	})
}

func (d *Dependencies) initPrompt(ctx context.Context) error {
	if d.Config.Prompt.File == "" {
		d.Prompt = prompt.Default()
		return nil
	}

	tmpl, err := prompt.Load(d.Config.Prompt.File)
	if err != nil {
		return err
	}
	d.Prompt = tmpl
	d.Logger.Info("prompt loaded", zap.String("file", d.Config.Prompt.File))
	return nil
}

func (d *Dependencies) initMemory(ctx context.Context) error {
	switch d.Config.Memory.Backend {
	case config.MemoryBackendPostgres:
		d.Memory = memory.NewPostgresStore(d.Repositories.Conversations, d.TxManager,
			d.Config.Memory.MaxMessages, d.Logger)
	case config.MemoryBackendBolt:
		store, err := memory.NewBoltStore(d.Config.Memory.BoltPath)
		if err != nil {
			return err
		}
		d.Memory = store
	default:
		d.Memory = memory.NewInMemoryStore()
	}

	d.Logger.Info("conversation memory ready", zap.String("backend", d.Config.Memory.Backend))
	return nil
}

func (d *Dependencies) initExchangeLog(ctx context.Context) error {
	if !d.Config.ExchangeLog.Enabled {
		return nil
	}

	cfg := exchangelog.DefaultConfig()
	cfg.BufferSize = d.Config.ExchangeLog.BufferSize
	cfg.WorkerCount = d.Config.ExchangeLog.WorkerCount
	cfg.RedactPII = d.Config.ExchangeLog.RedactPII

	svc := exchangelog.NewService(d.Repositories.Exchanges, d.Logger, cfg)
	if err := svc.Start(); err != nil {
		return err
	}
	d.ExchangeLog = svc
	return nil
}

func (d *Dependencies) initSessions(ctx context.Context) error {
	sessions, err := middleware.NewSessionManager(middleware.SessionConfig{
		Secret:     d.Config.Session.Secret,
		CookieName: d.Config.Session.CookieName,
		TTL:        d.Config.Session.TTL,
		Secure:     d.Config.Server.TLS.Enabled,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.Sessions = sessions
	return nil
}

func (d *Dependencies) initChat() {
	window := memory.Window{
		MaxMessages: d.Config.Memory.MaxMessages,
		MaxTokens:   d.Config.Memory.MaxTokens,
	}
	if window.MaxTokens > 0 {
		window.Counter = tokens.NewCounter(d.Config.Chat.Model, d.Logger)
	}

	var retriever rag.Retriever
	if d.Retriever != nil {
		retriever = d.Retriever
	}

	var recorder exchangelog.Recorder = exchangelog.Noop{}
	if d.ExchangeLog != nil {
		recorder = d.ExchangeLog
	}

	d.Chat = chat.NewService(d.Providers, retriever, d.Prompt, d.Memory, window, recorder, chat.Config{
		Provider:         d.Config.Chat.Provider,
		Model:            d.Config.Chat.Model,
		Temperature:      d.Config.Chat.Temperature,
		MaxTokens:        d.Config.Chat.MaxTokens,
		MaxMessageLength: d.Config.Chat.MaxMessageLength,
		TopK:             d.Config.Retriever.TopK,
	}, d.Logger)
}

// HealthConfig describes the components probed by the health endpoints
func (d *Dependencies) HealthConfig() handlers.HealthConfig {
	hc := handlers.HealthConfig{
		Providers:   d.Providers,
		Provider:    d.Config.Chat.Provider,
		Model:       d.Config.Chat.Model,
		IndexName:   d.Config.Pinecone.IndexName,
		Version:     Version,
		Environment: d.Config.Environment,
	}
	if d.DB != nil {
		hc.DB = d.DB.DB
	}
	if d.Retriever != nil {
		hc.Index = d.Retriever
	}
	return hc
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.ExchangeLog != nil {
		timeout := 10 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.ExchangeLog.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop exchange log: %w", err))
		}
	}

	if d.Memory != nil {
		if err := d.Memory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close memory: %w", err))
		}
	}

	if d.Retriever != nil {
		if err := d.Retriever.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vector index: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
