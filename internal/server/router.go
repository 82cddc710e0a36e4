// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊與中介層組裝。
// 所有端點同時掛在 /api/v1 與根路徑 (/) 下。
//
//	GET  /health
//	GET  /metrics                 （僅根路徑；啟用 metrics 時）
//	GET  /accounts
//	GET  /accounts/{username}
//	POST /transfer                → 驗證 → 限流 → 冪等 → 轉帳
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"transferd/internal/auth"
)

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}

	r.Route("/api/v1", s.v1)
	s.v1(r)
	return r
}

// v1 定義 API v1 路由。
func (s *Server) v1(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/accounts", s.listAccounts)
	r.Get("/accounts/{username}", s.getAccount)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.opts.Auth, s.log))
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		if s.idem != nil {
			r.Use(s.idem.middleware)
		}
		r.Post("/transfer", s.transfer)
	})
}
