// internal/auth/jwt.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT 驗證 HS256 簽章的 JWT；sub 作為 Identity.Subject。
type JWT struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWT 建立 JWT 驗證器；issuer 為空時不檢查 iss。
func NewJWT(secret []byte, issuer string) (*JWT, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &JWT{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Authenticate 驗證簽章、到期時間（容許 5 秒誤差）與 iss。
func (j *JWT) Authenticate(_ context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithLeeway(5 * time.Second),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	return Identity{Subject: claims.Subject, Method: "jwt"}, nil
}
