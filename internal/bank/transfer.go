// internal/bank/transfer.go
//
// Coordinator 實作兩帳戶轉帳協定（saga）：
//
//	驗證輸入 → 確認收款人存在 → 條件式扣款 → 入帳
//	                                         ↳ 入帳失敗 → 退款（補償）
//	                                                ↳ 退款失敗 → CriticalFailure
//
// 儲存層沒有跨紀錄交易，因此扣款成功後流程不可取消，
// 後續入帳與補償一律使用 context.WithoutCancel 執行。
// Coordinator 本身不保存任何呼叫之間的共享狀態，可被多個 goroutine 併發使用。

package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"transferd/internal/money"
)

// Outcome 為轉帳結果分類，用於記錄與指標。
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeInvalid      Outcome = "invalid_request"
	OutcomeNotFound     Outcome = "account_not_found"
	OutcomeInsufficient Outcome = "insufficient_funds"
	OutcomeServerError  Outcome = "server_error"
	OutcomeCompensated  Outcome = "compensated"
	OutcomeCritical     Outcome = "critical"
)

// OutcomeOf 將 Transfer 的回傳錯誤對應到 Outcome。
func OutcomeOf(err error) Outcome {
	switch KindOf(err) {
	case nil:
		return OutcomeCompleted
	case ErrInvalidRequest:
		return OutcomeInvalid
	case ErrAccountNotFound:
		return OutcomeNotFound
	case ErrInsufficientFunds:
		return OutcomeInsufficient
	case ErrCompensated:
		return OutcomeCompensated
	case ErrCritical:
		return OutcomeCritical
	}
	return OutcomeServerError
}

// Mutated 回報該結果是否可能改變過儲存狀態（供快照持久化判斷）。
func (o Outcome) Mutated() bool {
	return o == OutcomeCompleted || o == OutcomeCompensated || o == OutcomeCritical
}

// Receipt 為成功轉帳的結果：From 為扣款後視圖，To 為入帳後視圖。
type Receipt struct {
	ID     string       `json:"-"`
	Amount money.Amount `json:"amount"`
	From   Account      `json:"from"`
	To     Account      `json:"to"`
}

// Recorder 接收每筆轉帳的結果與耗時（例如 Prometheus）。
type Recorder interface {
	ObserveTransfer(outcome Outcome, d time.Duration)
}

// Incident 為 CriticalFailure 的對帳紀錄。
type Incident struct {
	TransferID      string
	From, To        string
	Amount          money.Amount
	At              time.Time
	CreditErr       error
	CompensationErr error
}

// IncidentReporter 接收需要人工介入的帳務不一致事件。
type IncidentReporter interface {
	ReportCritical(ctx context.Context, in Incident)
}

// Coordinator 執行轉帳協定。
type Coordinator struct {
	store    AccountStore
	log      *zap.Logger
	recorder Recorder
	incident IncidentReporter
	now      func() time.Time
	newID    func() string
}

// Option 設定 Coordinator。
type Option func(*Coordinator)

// WithLogger 設定 logger；nil 代表不輸出。
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRecorder 設定每筆轉帳結束時的結果紀錄（metrics）。
func WithRecorder(r Recorder) Option { return func(c *Coordinator) { c.recorder = r } }

// WithIncidentReporter 設定 CriticalFailure 的事件通報。
func WithIncidentReporter(r IncidentReporter) Option {
	return func(c *Coordinator) { c.incident = r }
}

// WithClock 替換時間來源；事件時間戳記使用。
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithIDGenerator 替換轉帳 ID 產生器，預設為 uuid.NewString。
func WithIDGenerator(f func() string) Option { return func(c *Coordinator) { c.newID = f } }

// NewCoordinator 以指定的 AccountStore 建立 Coordinator。
func NewCoordinator(store AccountStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Transfer 將 amount 由 from 轉給 to。
// 失敗時回傳 *TransferError，其 Kind 為 errors.go 中的類別之一。
func (c *Coordinator) Transfer(ctx context.Context, from, to string, amount money.Amount) (rcpt Receipt, err error) {
	start := c.now()
	id := c.newID()
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	log := c.log.With(
		zap.String("transfer_id", id),
		zap.String("from", from),
		zap.String("to", to),
		zap.Stringer("amount", amount),
	)
	defer func() {
		outcome := OutcomeOf(err)
		if c.recorder != nil {
			c.recorder.ObserveTransfer(outcome, c.now().Sub(start))
		}
		switch outcome {
		case OutcomeCompleted:
			log.Info("transfer completed")
		case OutcomeCritical:
			// 已於 critical() 內以 error 等級記錄
		case OutcomeCompensated, OutcomeServerError:
			log.Warn("transfer failed", zap.String("outcome", string(outcome)), zap.Error(err))
		default:
			log.Debug("transfer rejected", zap.String("outcome", string(outcome)), zap.Error(err))
		}
	}()

	fail := func(kind *Kind, role Role, reason string, cause error) error {
		return &TransferError{
			Kind: kind, TransferID: id, From: from, To: to, Amount: amount,
			Role: role, Reason: reason, Err: cause,
		}
	}

	// 1️⃣ 驗證輸入（不碰儲存層）
	switch {
	case from == "" || to == "":
		return Receipt{}, fail(ErrInvalidRequest, RoleNone, "from and to are required", nil)
	case amount <= 0:
		return Receipt{}, fail(ErrInvalidRequest, RoleNone, "amount must be > 0", nil)
	case from == to:
		return Receipt{}, fail(ErrInvalidRequest, RoleNone, "from and to must differ", nil)
	}

	// 2️⃣ 確認收款人存在；不存在則完全不扣款
	if _, err := c.store.Lookup(ctx, to); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Receipt{}, fail(ErrAccountNotFound, RoleRecipient, "", nil)
		}
		return Receipt{}, fail(ErrServer, RoleRecipient, "", fmt.Errorf("lookup recipient: %w", err))
	}

	// 3️⃣ 條件式扣款
	debited, err := c.store.ConditionalDebit(ctx, from, amount)
	if err != nil {
		return Receipt{}, c.debitFailure(ctx, fail, from, err)
	}

	// 4️⃣ 扣款已生效：之後不再受呼叫端取消影響
	ctx = context.WithoutCancel(ctx)
	credited, creditErr := c.store.Credit(ctx, to, amount)
	if creditErr == nil {
		return Receipt{ID: id, Amount: amount, From: debited, To: credited}, nil
	}

	// 5️⃣ 入帳失敗 → 退款給來源帳戶
	if _, compErr := c.store.Credit(ctx, from, amount); compErr != nil {
		c.critical(ctx, log, Incident{
			TransferID: id, From: from, To: to, Amount: amount, At: c.now(),
			CreditErr: creditErr, CompensationErr: compErr,
		})
		return Receipt{}, fail(ErrCritical, RoleNone, "", errors.Join(
			fmt.Errorf("credit recipient: %w", creditErr),
			fmt.Errorf("compensate sender: %w", compErr),
		))
	}
	return Receipt{}, fail(ErrCompensated, RoleNone, "", fmt.Errorf("credit recipient: %w", creditErr))
}

// debitFailure 將扣款錯誤轉為錯誤類別。
// ErrDebitRejected 無法區分「來源不存在」與「餘額不足」，因此再以 Lookup 確認一次。
func (c *Coordinator) debitFailure(ctx context.Context, fail func(*Kind, Role, string, error) error, from string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fail(ErrAccountNotFound, RoleSender, "", nil)
	case errors.Is(err, ErrDebitRejected):
		_, lerr := c.store.Lookup(ctx, from)
		switch {
		case lerr == nil:
			return fail(ErrInsufficientFunds, RoleSender, "", nil)
		case errors.Is(lerr, ErrNotFound):
			return fail(ErrAccountNotFound, RoleSender, "", nil)
		default:
			return fail(ErrServer, RoleSender, "", fmt.Errorf("lookup sender: %w", lerr))
		}
	}
	return fail(ErrServer, RoleSender, "", fmt.Errorf("debit sender: %w", err))
}

// critical 記錄帳務不一致事件；一律以 error 等級輸出，並通知 IncidentReporter。
func (c *Coordinator) critical(ctx context.Context, log *zap.Logger, in Incident) {
	log.Error("transfer left ledger inconsistent: debit applied, credit and compensation failed",
		zap.Time("at", in.At),
		zap.NamedError("credit_error", in.CreditErr),
		zap.NamedError("compensation_error", in.CompensationErr),
	)
	if c.incident != nil {
		c.incident.ReportCritical(ctx, in)
	}
}
