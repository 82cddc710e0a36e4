// internal/server/idempotency.go
//
// Idempotency-Key 支援：同一呼叫者以相同 key 與相同 body 重送時，
// 直接重播第一次的狀態碼與 body（附 X-Idempotency-Replayed: true），不再執行轉帳。
// 相同 key 但 body 不同，或第一次請求尚未完成，回傳 409 IdempotencyConflict。
// 扣款前的儲存故障（ServerError）不快取，允許重試。
package server

import (
	"bytes"
	"crypto/sha256"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"transferd/internal/auth"
	"transferd/internal/bank"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "X-Idempotency-Replayed"
	maxIdempotencyKeyLen = 255
)

type idemEntry struct {
	bodyHash [sha256.Size]byte
	status   int
	header   http.Header
	body     []byte
}

// idempotency 的完成結果放在會過期、可淘汰的 LRU；
// 執行中的 key 另存於 inflight，直到請求結束前都不會被淘汰。
type idempotency struct {
	mu       sync.Mutex
	cache    *expirable.LRU[string, *idemEntry]
	inflight map[string][sha256.Size]byte
}

func newIdempotency(size int, ttl time.Duration) *idempotency {
	return &idempotency{
		cache:    expirable.NewLRU[string, *idemEntry](size, nil, ttl),
		inflight: make(map[string][sha256.Size]byte),
	}
}

func (m *idempotency) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerIdempotencyKey)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			writeProblem(w, http.StatusBadRequest, bank.ErrInvalidRequest.Error(), "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeErr(w, invalid("malformed request body: "+err.Error()))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		// key 以呼叫者身分區隔，避免不同使用者互相重播
		scoped := key
		if id, ok := auth.FromContext(r.Context()); ok {
			scoped = id.Subject + "\x00" + key
		}

		m.mu.Lock()
		if h, ok := m.inflight[scoped]; ok {
			m.mu.Unlock()
			if h != hash {
				writeProblem(w, http.StatusConflict, "IdempotencyConflict", "Idempotency-Key was already used with a different request")
				return
			}
			writeProblem(w, http.StatusConflict, "IdempotencyConflict", "a request with this Idempotency-Key is still in progress")
			return
		}
		if e, ok := m.cache.Get(scoped); ok {
			m.mu.Unlock()
			if e.bodyHash != hash {
				writeProblem(w, http.StatusConflict, "IdempotencyConflict", "Idempotency-Key was already used with a different request")
				return
			}
			replay(w, e)
			return
		}
		m.inflight[scoped] = hash
		m.mu.Unlock()

		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		completed := false
		defer func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.inflight, scoped)
			if !completed || !cacheable(ww) {
				return
			}
			m.cache.Add(scoped, &idemEntry{
				bodyHash: hash,
				status:   ww.Status(),
				header:   ww.Header().Clone(),
				body:     buf.Bytes(),
			})
		}()
		next.ServeHTTP(ww, r)
		completed = true
	})
}

// cacheable 判斷回應是否為可重播的最終結果。
func cacheable(ww middleware.WrapResponseWriter) bool {
	outcome := ww.Header().Get(headerOutcome)
	if outcome == "" {
		return ww.Status() != 0 && ww.Status() < http.StatusInternalServerError
	}
	return outcome != string(bank.OutcomeServerError)
}

func replay(w http.ResponseWriter, e *idemEntry) {
	for k, vs := range e.header {
		if k == middleware.RequestIDHeader {
			continue
		}
		w.Header()[k] = vs
	}
	w.Header().Set(headerReplayed, "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}
