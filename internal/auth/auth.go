// internal/auth/auth.go

// Package auth 驗證呼叫者身分，作為轉帳前的前置條件。
// 只負責「驗證」既有憑證（靜態 bearer token 或 HMAC JWT），不負責簽發。
package auth

import (
	"context"
	"errors"
)

// 驗證失敗的分類；Middleware 依此回傳 401 的 error 欄位。
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMalformed       = errors.New("malformed credential")
	ErrExpired         = errors.New("credential expired")
)

// Identity 為通過驗證的呼叫者。
type Identity struct {
	Subject string // JWT sub 或 token 名稱
	Method  string // "token" | "jwt" | "none"
}

// Authenticator 驗證一個 bearer 憑證。
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// None 放行所有請求（關閉驗證時使用）。
type None struct{}

func (None) Authenticate(context.Context, string) (Identity, error) {
	return Identity{Subject: "anonymous", Method: "none"}, nil
}

type ctxKey struct{}

// WithIdentity 將 Identity 存入 context。
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext 取出 Identity；未驗證的請求回傳 false。
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
