// internal/bank/store.go
//
// AccountStore 為帳戶儲存的抽象：只保證「單筆紀錄」的原子更新，
// 不提供跨紀錄交易。轉帳的一致性由 Coordinator 以補償流程維持。

package bank

import (
	"context"
	"errors"

	"transferd/internal/money"
)

// 儲存層回報的錯誤；任何其他錯誤皆視為儲存故障（連線、I/O、溢位）。
var (
	// ErrNotFound 代表紀錄不存在。
	ErrNotFound = errors.New("account record not found")

	// ErrDebitRejected 代表條件式扣款的條件不成立（餘額不足）。
	// 無法區分「不存在」與「餘額不足」的後端（SQL 的 UPDATE ... WHERE）也以此回報缺少的紀錄。
	ErrDebitRejected = errors.New("conditional debit rejected")

	// ErrBalanceOverflow 代表入帳後餘額會超出 int64；紀錄維持不變。
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrAccountExists 代表種子資料的 username 已存在。
	ErrAccountExists = errors.New("account already exists")
)

// AccountStore 為轉帳核心唯一需要的儲存原語。
type AccountStore interface {
	// Lookup 讀取帳戶，無副作用。
	Lookup(ctx context.Context, username string) (Account, error)
	// ConditionalDebit 僅在餘額 >= amount 時扣款，回傳扣款後的帳戶。
	ConditionalDebit(ctx context.Context, username string, amount money.Amount) (Account, error)
	// Credit 入帳，回傳入帳後的帳戶；不會因餘額不足而失敗，
	// 但結果超出 int64 時回傳錯誤且不變更紀錄。
	Credit(ctx context.Context, username string, amount money.Amount) (Account, error)
}

// Lister 列出所有帳戶（依 username 排序），供唯讀查詢使用。
type Lister interface {
	List(ctx context.Context) ([]Account, error)
}

// Seeder 新增帳戶（insert-if-absent），供啟動時載入種子資料。
type Seeder interface {
	Create(ctx context.Context, a Account) error
}

// Store 為各後端實作的完整介面。
type Store interface {
	AccountStore
	Lister
	Seeder
	Close() error
}
