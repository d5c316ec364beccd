package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mundobebe/backoffice/core"
)

// Claims is the session token payload.
type Claims struct {
	Role  core.Role `json:"role"`
	Email string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type tokenKey struct{}

// WithToken stores a bearer token in ctx for JWTProvider. A "Bearer "
// prefix is accepted.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	return context.WithValue(ctx, tokenKey{}, token)
}

// JWTProvider resolves sessions from HS256 tokens. A missing, malformed or
// expired token is an anonymous caller, not an error.
type JWTProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTProvider(secret, issuer string) (*JWTProvider, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTProvider{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// IssueToken signs a token for s valid for ttl.
func (p *JWTProvider) IssueToken(s core.Session, ttl time.Duration) (string, error) {
	now := p.now()
	claims := Claims{
		Role:  s.Role,
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates token and returns its session.
func (p *JWTProvider) Parse(token string) (*core.Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, errors.New("token has no subject or role")
	}
	return &core.Session{UserID: claims.Subject, Role: claims.Role, Email: claims.Email}, nil
}

func (p *JWTProvider) CurrentSession(ctx context.Context) (*core.Session, error) {
	token, _ := ctx.Value(tokenKey{}).(string)
	if token == "" {
		return nil, nil
	}
	s, err := p.Parse(token)
	if err != nil {
		return nil, nil
	}
	return s, nil
}
