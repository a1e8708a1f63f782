package completion

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/openai"
)

// FallbackText is returned whenever the model cannot produce an answer.
const FallbackText = "Corpus-grounded: No external model available. Use the provided corpus context to derive the rule. If a citation is not present in the corpus, state 'Not available in corpus.'"

const DefaultTimeout = 30 * time.Second

type Completion struct {
	Text     string
	Fallback bool
	Model    string
}

// Client wraps an LLM and never fails: any error collapses to FallbackText.
type Client struct {
	log     *logger.Logger
	llm     openai.Client
	timeout time.Duration
}

// New accepts a nil llm, which makes every completion the fallback.
func New(log *logger.Logger, llm openai.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{log: log.With("service", "Completion"), llm: llm, timeout: timeout}
}

func (c *Client) Configured() bool { return c != nil && c.llm != nil }

func (c *Client) Complete(ctx context.Context, prompt string) Completion {
	if !c.Configured() {
		return Completion{Text: FallbackText, Fallback: true}
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		c.log.Warn("completion failed; using fallback", "reason", reason, "model", c.llm.Model(), "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return Completion{Text: FallbackText, Fallback: true, Model: c.llm.Model()}
	}
	return Completion{Text: text, Model: c.llm.Model()}
}
