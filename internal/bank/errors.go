// internal/bank/errors.go
//
// 本檔集中定義轉帳的「錯誤分類（error kinds）」。
// 儲存層的原始錯誤一律在 Coordinator 邊界轉換為下列類別之一，
// 再由 HTTP handler 對應成狀態碼；上層以 errors.Is 比對類別。

package bank

import (
	"errors"
	"fmt"
	"strings"

	"transferd/internal/money"
)

// Kind 為錯誤類別（哨兵錯誤），其字串即為 API 回傳的 error 欄位。
type Kind struct{ name string }

func (k *Kind) Error() string { return k.name }

var (
	// ErrInvalidRequest：欄位缺漏、金額非正數、來源與目標相同。對應 400。
	ErrInvalidRequest = &Kind{"InvalidRequest"}

	// ErrAccountNotFound：來源或目標帳戶不存在。對應 404。
	ErrAccountNotFound = &Kind{"AccountNotFound"}

	// ErrInsufficientFunds：來源帳戶存在但餘額不足。對應 400。
	ErrInsufficientFunds = &Kind{"InsufficientFunds"}

	// ErrServer：扣款前的儲存故障，未做任何變更。對應 500。
	ErrServer = &Kind{"ServerError"}

	// ErrCompensated：扣款成功、入帳失敗、退款成功；金額守恆。對應 500。
	ErrCompensated = &Kind{"CompensatedFailure"}

	// ErrCritical：扣款成功、入帳與退款皆失敗；帳務不一致，需人工對帳。對應 500。
	ErrCritical = &Kind{"CriticalFailure"}
)

// Role 標示錯誤關聯的是哪一方帳戶。
type Role string

const (
	RoleNone      Role = ""
	RoleSender    Role = "sender"
	RoleRecipient Role = "recipient"
)

// TransferError 為 Coordinator 回傳的唯一錯誤型別。
type TransferError struct {
	Kind       *Kind
	TransferID string
	From, To   string
	Amount     money.Amount
	Role       Role
	Reason     string
	Err        error // 底層儲存錯誤（入帳與退款錯誤以 errors.Join 合併）
}

func (e *TransferError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.name)
	b.WriteString(": ")
	b.WriteString(e.Message())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Message 為可回傳給用戶端的說明，不含底層錯誤細節。
func (e *TransferError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	switch e.Kind {
	case ErrAccountNotFound:
		if e.Role == RoleSender {
			return fmt.Sprintf("sender account %q not found", e.From)
		}
		return fmt.Sprintf("recipient account %q not found", e.To)
	case ErrInsufficientFunds:
		return fmt.Sprintf("account %q has insufficient funds for %s", e.From, e.Amount)
	case ErrServer:
		return "transfer could not be processed"
	case ErrCompensated:
		return "transfer failed and was reversed"
	case ErrCritical:
		return "transfer failed and could not be reversed; incident " + e.TransferID
	}
	return "invalid request"
}

// Unwrap 同時暴露類別與底層錯誤，讓 errors.Is(err, ErrCritical) 與
// errors.Is(err, ErrNotFound) 都能成立。
func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf 取出錯誤類別；非 TransferError 一律視為 ErrServer。
func KindOf(err error) *Kind {
	if err == nil {
		return nil
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrServer
}
