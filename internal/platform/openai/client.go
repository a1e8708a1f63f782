package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/httpx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

const (
	DefaultBaseURL    = "https://api.groq.com/openai/v1"
	DefaultChatModel  = "llama3-8b-8192"
	DefaultEmbedModel = "text-embedding-3-small"
)

// ErrNotConfigured is returned by NewClient when no API key is available.
var ErrNotConfigured = errors.New("llm api key not configured")

type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	// RPS limits outgoing requests per second; 0 disables the limiter.
	RPS float64
}

// ConfigFromEnv reads LLM_* variables, falling back to GROQ_API_KEY and OPENAI_API_KEY for the key.
func ConfigFromEnv() Config {
	key := envutil.String("LLM_API_KEY", "")
	if key == "" {
		key = envutil.String("GROQ_API_KEY", "")
	}
	if key == "" {
		key = envutil.String("OPENAI_API_KEY", "")
	}
	return Config{
		APIKey:      key,
		BaseURL:     envutil.String("LLM_BASE_URL", DefaultBaseURL),
		ChatModel:   envutil.String("LLM_MODEL", DefaultChatModel),
		EmbedModel:  envutil.String("EMBEDDING_MODEL", DefaultEmbedModel),
		Temperature: float32(envutil.Float("LLM_TEMPERATURE", 0.2)),
		MaxTokens:   envutil.Int("LLM_MAX_TOKENS", 1500),
		Timeout:     envutil.Seconds("COMPLETION_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries:  envutil.Int("COMPLETION_MAX_RETRIES", 1),
		RPS:         envutil.Float("COMPLETION_RPS", 0),
	}
}

type Client interface {
	// Complete sends prompt as a single user message and returns the first choice's text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Embed returns one vector per input; dims>0 requests reduced dimensions.
	Embed(ctx context.Context, inputs []string, dims int) ([][]float32, error)
	Model() string
}

type client struct {
	log     *logger.Logger
	cfg     Config
	api     *goopenai.Client
	limiter *rate.Limiter
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return newWithAPI(log, cfg, goopenai.NewClientWithConfig(apiCfg)), nil
}

func newWithAPI(log *logger.Logger, cfg Config, api *goopenai.Client) *client {
	c := &client{
		log: log.With("service", "LLMClient"),
		cfg: cfg,
		api: api,
	}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

func (c *client) Model() string { return c.cfg.ChatModel }

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	var text string
	start := time.Now()
	err := c.withRetry(ctx, "chat.completions", func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return adaptError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		if m := observability.Current(); m != nil {
			m.ObserveLLMRequest(c.cfg.ChatModel, "chat.completions", "200", time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
		return nil
	})
	if err != nil {
		c.observeFailure(c.cfg.ChatModel, "chat.completions", err, start)
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("completion returned empty text")
	}
	return text, nil
}

func (c *client) Embed(ctx context.Context, inputs []string, dims int) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i, s := range inputs {
		s = strings.TrimSpace(s)
		if s == "" {
			s = " "
		}
		clean[i] = s
	}
	req := goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.cfg.EmbedModel),
		Input: clean,
	}
	if dims > 0 {
		req.Dimensions = dims
	}

	out := make([][]float32, len(clean))
	start := time.Now()
	err := c.withRetry(ctx, "embeddings", func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return adaptError(err)
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(out) {
				continue
			}
			vec := make([]float32, len(d.Embedding))
			for i := range d.Embedding {
				vec[i] = float32(d.Embedding[i])
			}
			out[d.Index] = vec
		}
		return nil
	})
	if err != nil {
		c.observeFailure(c.cfg.EmbedModel, "embeddings", err, start)
		return nil, err
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings response missing index %d", i)
		}
	}
	return out, nil
}

func (c *client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return httpx.Retry(ctx, c.cfg.MaxRetries, 500*time.Millisecond, func(attempt int) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn(ctx)
	}, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("LLM request retrying",
			"op", op,
			"attempt", attempt,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleep.String(),
			"error", err.Error(),
		)
	})
}

func (c *client) observeFailure(model, op string, err error, start time.Time) {
	m := observability.Current()
	if m == nil {
		return
	}
	status := "error"
	if code := httpx.StatusCode(err); code > 0 {
		status = fmt.Sprintf("%d", code)
	}
	m.ObserveLLMRequest(model, op, status, time.Since(start), 0, 0)
}

type statusError struct {
	StatusCode int
	Err        error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm http %d: %v", e.StatusCode, e.Err)
}

func (e *statusError) Unwrap() error { return e.Err }

func (e *statusError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// adaptError exposes the HTTP status of go-openai errors to httpx retry classification.
func adaptError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &statusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &statusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}
