package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

const (
	AnonymousUserID = "anonymous"
	tokenIssuer     = "lexcorpus"
)

var ErrUnauthorized = errors.New("missing or invalid token")

type JWTClaims struct {
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 bearer tokens. With no secret configured it runs in
// open mode: callers are identified by a plain user id header or fall back to AnonymousUserID.
type AuthService interface {
	Enabled() bool
	IssueToken(userID string) (string, time.Time, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	SetContextFromUserID(ctx context.Context, userID string) context.Context
}

type authService struct {
	log       *logger.Logger
	secret    []byte
	accessTTL time.Duration
}

func NewAuthService(log *logger.Logger, secret string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	svc := &authService{
		log:       log.With("service", "AuthService"),
		secret:    []byte(strings.TrimSpace(secret)),
		accessTTL: accessTTL,
	}
	if !svc.Enabled() {
		svc.log.Warn("JWT secret not set; API runs without token verification")
	}
	return svc
}

func (as *authService) Enabled() bool { return len(as.secret) > 0 }

func (as *authService) IssueToken(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, invalidf("user id is required")
	}
	if !as.Enabled() {
		return "", time.Time{}, fmt.Errorf("%w: JWT_SECRET_KEY", ErrUnavailable)
	}
	now := time.Now()
	exp := now.Add(as.accessTTL)
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return ctx, ErrUnauthorized
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: claims.Subject}), nil
}

func (as *authService) SetContextFromUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = AnonymousUserID
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID})
}
