// internal/money/money.go

// Package money 提供定點金額型別 Amount。
// 內部以 int64 的最小貨幣單位（小數兩位，分）儲存，對外以 decimal 解析與輸出，
// 避免浮點誤差；JSON 以數字呈現（例如 7500、12.5）。
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Scale 為小數位數；1 單位主幣 = 100 個最小單位。
const Scale = 2

// ErrInvalidAmount 代表金額無法表示（非數字、超過兩位小數或超出 int64 範圍）。
var ErrInvalidAmount = errors.New("invalid amount")

// Amount 以最小貨幣單位計的金額。
type Amount int64

// FromDecimal 將 decimal 轉為 Amount；小數超過 Scale 位或溢位時回傳 ErrInvalidAmount。
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(Scale)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d.String(), Scale)
	}
	bi := minor.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Amount(bi.Int64()), nil
}

// Parse 解析十進位字串，例如 "2500"、"12.50"、"-3"。
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse 供測試與常數使用；解析失敗直接 panic。
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Units 以整數主幣單位建立 Amount（Units(10000) == 10000.00）。
func Units(n int64) Amount {
	return Amount(n * 100)
}

// Decimal 回傳對應的 decimal 值。
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// Minor 回傳最小單位整數值。
func (a Amount) Minor() int64 { return int64(a) }

func (a Amount) String() string {
	return a.Decimal().String()
}

// MarshalJSON 輸出不帶引號的 JSON 數字。
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

// UnmarshalJSON 接受 JSON 數字或數字字串；正負號由呼叫端驗證。
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// UnmarshalYAML 讓種子檔可直接寫 balance: 10000 或 "12.50"。
func (a *Amount) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected scalar", ErrInvalidAmount, n.Line)
	}
	v, err := Parse(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*a = v
	return nil
}
