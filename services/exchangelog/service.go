// Package exchangelog records chat exchanges asynchronously.
package exchangelog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msenthi7/medical-chatbot/internal/redact"
	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when recording before Start or after Stop
	ErrNotStarted = errors.New("exchange log not running")

	// ErrBufferFull is returned when the queue is full and the exchange was dropped
	ErrBufferFull = errors.New("exchange log buffer full")
)

// Recorder accepts finished exchanges
type Recorder interface {
	Record(exchange *models.ChatExchange) error
}

// Config holds configuration for the Service
type Config struct {
	BufferSize   int  // Size of the exchange buffer channel
	WorkerCount  int  // Number of concurrent writers
	RedactPII    bool // Mask identifiers in question and answer before writing
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		RedactPII:    true,
		WriteTimeout: 5 * time.Second,
	}
}

// Service writes exchanges through a pool of background workers
type Service struct {
	repo    repositories.ExchangeRepository
	logger  *zap.Logger
	config  Config
	queue   chan *models.ChatExchange
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	dropped atomic.Int64
}

// NewService creates a new exchange log
func NewService(repo repositories.ExchangeRepository, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &Service{
		repo:   repo,
		logger: logger,
		config: config,
		queue:  make(chan *models.ChatExchange, config.BufferSize),
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("exchange log already started")
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.running = true
	s.logger.Info("Started exchange log",
		zap.Int("worker_count", s.config.WorkerCount),
		zap.Int("buffer_size", s.config.BufferSize),
		zap.Bool("redact_pii", s.config.RedactPII))

	return nil
}

// Stop drains the queue and waits for the workers, up to timeout
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.running = false
	close(s.queue)
	s.mu.Unlock()

	s.logger.Info("Stopping exchange log", zap.Int("pending", len(s.queue)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Exchange log stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("exchange log stop timeout after %v", timeout)
	}
}

// Record queues an exchange without blocking. The exchange is copied, so
// the caller may keep using it.
func (s *Service) Record(exchange *models.ChatExchange) error {
	if exchange == nil {
		return nil
	}
	cp := *exchange

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return ErrNotStarted
	}

	select {
	case s.queue <- &cp:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("Exchange log buffer full, dropping exchange",
			zap.String("exchange_id", exchange.ID.String()),
			zap.String("session_id", exchange.SessionID))
		return ErrBufferFull
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for exchange := range s.queue {
		if err := s.write(exchange); err != nil {
			s.logger.Error("Failed to write chat exchange",
				zap.Int("worker_id", id),
				zap.String("exchange_id", exchange.ID.String()),
				zap.Error(err))
		}
	}
}

func (s *Service) write(exchange *models.ChatExchange) error {
	if s.config.RedactPII {
		redactExchange(exchange)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, exchange); err != nil {
		return fmt.Errorf("failed to insert chat exchange: %w", err)
	}
	return nil
}

func redactExchange(exchange *models.ChatExchange) {
	exchange.Question = redact.String(exchange.Question)
	if exchange.Answer != nil {
		answer := redact.String(*exchange.Answer)
		exchange.Answer = &answer
	}
}

// GetStats returns statistics about the exchange log
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:  s.config.BufferSize,
		Pending:     len(s.queue),
		WorkerCount: s.config.WorkerCount,
		Running:     s.running,
		Dropped:     s.dropped.Load(),
	}
}

// Stats represents exchange log statistics
type Stats struct {
	BufferSize  int
	Pending     int
	WorkerCount int
	Running     bool
	Dropped     int64
}

// Noop discards exchanges; used when the exchange log is disabled
type Noop struct{}

// Record implements Recorder
func (Noop) Record(*models.ChatExchange) error { return nil }
