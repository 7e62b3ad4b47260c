// Package tokens counts prompt tokens for memory windowing and logging.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"
)

const (
	fallbackEncoding = "cl100k_base"

	// Per-message framing overhead used by OpenAI chat models
	tokensPerMessage = 4
	tokensPerReply   = 2
)

// BPE ranks ship with the binary so counting never fetches them at runtime
var offlineBPE sync.Once

// Counter counts tokens with the model's BPE encoding. When the encoding
// cannot be loaded it estimates four characters per token.
type Counter struct {
	model  string
	logger *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
	mu   sync.Mutex
}

// NewCounter creates a counter for model. The encoding is loaded lazily.
func NewCounter(model string, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{model: model, logger: logger}
}

// NewEstimator returns a counter that never loads an encoding
func NewEstimator() *Counter {
	c := &Counter{logger: zap.NewNop()}
	c.once.Do(func() {})
	return c
}

func (c *Counter) load() {
	offlineBPE.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })

	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		c.logger.Warn("Token encoding unavailable, estimating by length",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return
	}
	c.enc = enc
}

// Count returns the number of tokens in text
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.load)
	if c.enc == nil {
		return Estimate(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages counts a chat transcript including per-message framing
func (c *Counter) CountMessages(contents ...string) int {
	if len(contents) == 0 {
		return 0
	}
	total := tokensPerReply
	for _, s := range contents {
		total += tokensPerMessage + c.Count(s)
	}
	return total
}

// Estimate approximates the token count as one token per four characters
func Estimate(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
