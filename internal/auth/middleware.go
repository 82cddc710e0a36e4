// internal/auth/middleware.go
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware 從 Authorization: Bearer <cred> 取出憑證並驗證；
// 失敗回傳 401 與 {"error": "...", "message": "..."}，成功則將 Identity 放入 context。
func Middleware(a Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := bearer(r.Header.Get("Authorization"))
			if err == nil {
				var id Identity
				id, err = a.Authenticate(r.Context(), cred)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
					return
				}
			}
			log.Warn("authentication failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			unauthorized(w, err)
		})
	}
}

// bearer 解析 Authorization 標頭；缺少標頭回傳空憑證，交由 Authenticator 決定是否放行。
// 格式錯誤為 ErrMalformed。
func bearer(h string) (string, error) {
	if h == "" {
		return "", nil
	}
	scheme, cred, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(cred) == "" {
		return "", ErrMalformed
	}
	return strings.TrimSpace(cred), nil
}

func unauthorized(w http.ResponseWriter, err error) {
	kind := "Unauthenticated"
	switch {
	case errors.Is(err, ErrExpired):
		kind = "Expired"
	case errors.Is(err, ErrMalformed):
		kind = "Malformed"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="transferd"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": err.Error()})
}
