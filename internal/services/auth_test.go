package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	as := NewAuthService(logger.Nop(), "test-secret", time.Hour)
	tok, exp, err := as.IssueToken("u-42")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	ctx, err := as.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := ctxutil.UserID(ctx); got != "u-42" {
		t.Fatalf("user id: want=u-42 got=%q", got)
	}
}

func TestAuthRejectsForeignToken(t *testing.T) {
	other := NewAuthService(logger.Nop(), "other-secret", time.Hour)
	tok, _, _ := other.IssueToken("u-1")

	as := NewAuthService(logger.Nop(), "test-secret", time.Hour)
	if _, err := as.SetContextFromToken(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized got=%v", err)
	}
	if _, err := as.SetContextFromToken(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty token: want ErrUnauthorized got=%v", err)
	}
}

func TestAuthOpenMode(t *testing.T) {
	as := NewAuthService(logger.Nop(), "", 0)
	if as.Enabled() {
		t.Fatalf("expected open mode")
	}
	if _, _, err := as.IssueToken("u"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("issue without secret: want ErrUnavailable got=%v", err)
	}
	if got := ctxutil.UserID(as.SetContextFromUserID(context.Background(), " ")); got != AnonymousUserID {
		t.Fatalf("anonymous: got=%q", got)
	}
}
