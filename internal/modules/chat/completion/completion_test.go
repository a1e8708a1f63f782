package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type fakeLLM struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeLLM) Embed(ctx context.Context, inputs []string, dims int) ([][]float32, error) {
	return nil, nil
}

func (f *fakeLLM) Model() string { return "llama3-8b-8192" }

func TestCompleteWithoutCredentialsIsDeterministicFallback(t *testing.T) {
	c := New(logger.Nop(), nil, 0)
	for _, p := range []string{"", "What is bail?", "Section 5"} {
		got := c.Complete(context.Background(), p)
		if got.Text != FallbackText || !got.Fallback {
			t.Fatalf("fallback for %q: got=%+v", p, got)
		}
	}
}

func TestCompleteSuccess(t *testing.T) {
	llm := &fakeLLM{text: "Bail is governed by Section 35."}
	got := New(logger.Nop(), llm, time.Second).Complete(context.Background(), "p")
	if got.Fallback || got.Text != llm.text || got.Model != "llama3-8b-8192" {
		t.Fatalf("success: got=%+v", got)
	}
}

func TestCompleteErrorsAndTimeoutsFallBack(t *testing.T) {
	got := New(logger.Nop(), &fakeLLM{err: errors.New("503")}, time.Second).Complete(context.Background(), "p")
	if !got.Fallback || got.Text != FallbackText {
		t.Fatalf("error: got=%+v", got)
	}
	got = New(logger.Nop(), &fakeLLM{text: "late", delay: time.Second}, 20*time.Millisecond).Complete(context.Background(), "p")
	if !got.Fallback || got.Text != FallbackText {
		t.Fatalf("timeout: got=%+v", got)
	}
}
