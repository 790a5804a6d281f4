package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"examprep-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	StudentID string `json:"student_id"`
	jwt.RegisteredClaims
}

// TokenAuth issues and verifies HS256 student tokens.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenAuth(secret string, ttl time.Duration) *TokenAuth {
	return NewTokenAuthWithClock(secret, ttl, time.Now)
}

func NewTokenAuthWithClock(secret string, ttl time.Duration, now func() time.Time) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), ttl: ttl, now: now}
}

func (a *TokenAuth) Issue(studentID string) (string, error) {
	now := a.now()
	claims := &Claims{
		StudentID: studentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify returns the student id carried by token or domain.ErrUnauthorized.
func (a *TokenAuth) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return "", domain.ErrUnauthorized
	}
	if claims.StudentID == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.StudentID, nil
}

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token.
func (a *TokenAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		studentID, err := a.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithStudentID(r.Context(), studentID)))
	})
}

func WithStudentID(ctx context.Context, studentID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, studentID)
}

func StudentIDFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}
