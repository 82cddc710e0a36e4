// Package bank 定義核心領域模型與轉帳協定。
// 本檔定義 Account 結構，不含任何 HTTP 或儲存細節。

package bank

import "transferd/internal/money"

// Account 為帳戶的對外視圖：username 為不可變主鍵，name 為顯示名稱。
// 餘額只能透過 AccountStore 的原子增減變更。
type Account struct {
	Username string       `json:"username"`
	Name     string       `json:"name"`
	Balance  money.Amount `json:"balance"`
}
