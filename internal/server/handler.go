// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供 HTTP 介面，作為轉帳核心的應用層。
// 每個 handler 僅負責：
//  1. 接收與驗證 HTTP 請求
//  2. 呼叫 bank.Coordinator 或唯讀查詢
//  3. 回傳標準化 JSON 回應（錯誤類別對應見 response.go）
//  4. 可能變更狀態的轉帳結束後呼叫 s.persist()
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"transferd/internal/auth"
	"transferd/internal/bank"
	"transferd/internal/metrics"
	"transferd/internal/money"
)

// maxBodyBytes 為請求 body 上限。
const maxBodyBytes = 1 << 20

// Reader 為唯讀查詢所需的儲存能力。
type Reader interface {
	Lookup(ctx context.Context, username string) (bank.Account, error)
	List(ctx context.Context) ([]bank.Account, error)
}

// Options 為 Server 的可選設定；零值代表關閉對應功能。
type Options struct {
	Logger  *zap.Logger
	Auth    auth.Authenticator // nil 等同 auth.None
	Metrics *metrics.Metrics

	RateLimit float64 // 每個身分每秒可轉帳次數；<= 0 關閉
	RateBurst int

	IdempotencyTTL  time.Duration // <= 0 或 IdempotencySize <= 0 關閉
	IdempotencySize int
}

// Server 為 HTTP 層核心結構：
// - coord：轉帳協定。
// - store：唯讀查詢。
// - persist：持久化鉤子（記憶體後端寫快照），可為 nil。
type Server struct {
	coord   *bank.Coordinator
	store   Reader
	persist func() error
	log     *zap.Logger
	opts    Options
	limiter *rateLimiter
	idem    *idempotency
}

// NewServer 建立 HTTP 伺服器。
func NewServer(store Reader, coord *bank.Coordinator, persist func() error, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Auth == nil {
		opts.Auth = auth.None{}
	}
	s := &Server{
		coord:   coord,
		store:   store,
		persist: persist,
		log:     opts.Logger,
		opts:    opts,
	}
	if opts.RateLimit > 0 {
		s.limiter = newRateLimiter(opts.RateLimit, opts.RateBurst, 10000)
	}
	if opts.IdempotencyTTL > 0 && opts.IdempotencySize > 0 {
		s.idem = newIdempotency(opts.IdempotencySize, opts.IdempotencyTTL)
	}
	return s
}

// listAccounts 處理 GET /accounts。
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list accounts failed", zap.Error(err))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

// getAccount 處理 GET /accounts/{username}。
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, err := s.store.Lookup(r.Context(), username)
	if errors.Is(err, bank.ErrNotFound) {
		writeErr(w, &bank.TransferError{
			Kind:   bank.ErrAccountNotFound,
			Reason: fmt.Sprintf("account %q not found", username),
		})
		return
	}
	if err != nil {
		s.log.Error("lookup account failed", zap.String("username", username), zap.Error(err))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type transferRequest struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	Amount *money.Amount `json:"amount"`
}

// transfer 處理 POST /transfer：JSON {from, to, amount}。
// 成功回傳 {amount, from, to}，from/to 為轉帳後的帳戶視圖。
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeErr(w, invalid("malformed request body: "+err.Error()))
		return
	}
	if req.Amount == nil {
		writeErr(w, invalid("amount is required"))
		return
	}

	rcpt, err := s.coord.Transfer(r.Context(), req.From, req.To, *req.Amount)
	outcome := bank.OutcomeOf(err)
	w.Header().Set(headerOutcome, string(outcome))
	if err != nil {
		writeErr(w, err)
	} else {
		w.Header().Set("X-Transfer-Id", rcpt.ID)
		writeJSON(w, http.StatusOK, rcpt)
	}

	// 可能變更過餘額 → 寫入快照
	if outcome.Mutated() && s.persist != nil {
		if perr := s.persist(); perr != nil {
			s.log.Error("persist after transfer failed", zap.Error(perr))
		}
	}
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func invalid(reason string) error {
	return &bank.TransferError{Kind: bank.ErrInvalidRequest, Reason: reason}
}
