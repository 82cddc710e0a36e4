// internal/storage/memory.go

// Memory 為記憶體內的 AccountStore。
// 每筆帳戶各自持有一把互斥鎖，只保證「單筆紀錄」的原子更新；
// map 本身的成員變更（新增帳戶）以 RWMutex 保護。
// 不同帳戶的操作可完全併發，沒有全域鎖。
// 可選擇以 JSON 快照持久化：啟動時載入、每次變更後與關閉時寫回。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"sync"

	"transferd/internal/bank"
	"transferd/internal/money"
)

type memRecord struct {
	mu sync.Mutex
	a  bank.Account
}

// Memory 實作 bank.Store。
type Memory struct {
	mu    sync.RWMutex
	accts map[string]*memRecord

	path   string     // 快照路徑；空字串代表不持久化
	saveMu sync.Mutex // 序列化快照寫入（共用同一個 .tmp 檔）
}

// NewMemory 建立空白的記憶體後端（無持久化）。
func NewMemory() *Memory {
	return &Memory{accts: make(map[string]*memRecord)}
}

// OpenMemory 建立以 path 為快照檔的記憶體後端；檔案不存在時從空白開始。
func OpenMemory(path string) (*Memory, error) {
	m := NewMemory()
	m.path = path
	snap, err := LoadSnapshot(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, err
	}
	if err := m.Restore(snap); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) record(username string) *memRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accts[username]
}

// Lookup 回傳帳戶的值拷貝。
func (m *Memory) Lookup(_ context.Context, username string) (bank.Account, error) {
	r := m.record(username)
	if r == nil {
		return bank.Account{}, bank.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.a, nil
}

// ConditionalDebit 於該帳戶的臨界區內檢查並扣款。
func (m *Memory) ConditionalDebit(_ context.Context, username string, amount money.Amount) (bank.Account, error) {
	r := m.record(username)
	if r == nil {
		return bank.Account{}, bank.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.a.Balance < amount {
		return bank.Account{}, bank.ErrDebitRejected
	}
	r.a.Balance -= amount
	return r.a, nil
}

// Credit 入帳；結果超出 int64 時視為儲存故障，不做變更。
func (m *Memory) Credit(_ context.Context, username string, amount money.Amount) (bank.Account, error) {
	r := m.record(username)
	if r == nil {
		return bank.Account{}, bank.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if amount > 0 && r.a.Balance > money.Amount(math.MaxInt64)-amount {
		return bank.Account{}, fmt.Errorf("credit %s: %w", username, bank.ErrBalanceOverflow)
	}
	r.a.Balance += amount
	return r.a, nil
}

// List 依 username 排序回傳所有帳戶的值拷貝。
func (m *Memory) List(_ context.Context) ([]bank.Account, error) {
	m.mu.RLock()
	recs := make([]*memRecord, 0, len(m.accts))
	for _, r := range m.accts {
		recs = append(recs, r)
	}
	m.mu.RUnlock()

	out := make([]bank.Account, 0, len(recs))
	for _, r := range recs {
		r.mu.Lock()
		out = append(out, r.a)
		r.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Create 新增帳戶；username 已存在回傳 bank.ErrAccountExists。
func (m *Memory) Create(_ context.Context, a bank.Account) error {
	if err := validateNew(a); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accts[a.Username]; ok {
		return fmt.Errorf("%w: %s", bank.ErrAccountExists, a.Username)
	}
	m.accts[a.Username] = &memRecord{a: a}
	return nil
}

// Snapshot 匯出目前狀態；逐筆讀取，不凍結整體。
func (m *Memory) Snapshot(ctx context.Context) Snapshot {
	accts, _ := m.List(ctx)
	s := Snapshot{Meta: Meta{Note: "in-memory account store"}}
	for _, a := range accts {
		s.Accounts = append(s.Accounts, PersistAccount{
			Username: a.Username, Name: a.Name, Balance: a.Balance.Minor(),
		})
	}
	return s
}

// Restore 以快照內容取代目前所有帳戶。
func (m *Memory) Restore(s Snapshot) error {
	accts := make(map[string]*memRecord, len(s.Accounts))
	for _, pa := range s.Accounts {
		a := bank.Account{Username: pa.Username, Name: pa.Name, Balance: money.Amount(pa.Balance)}
		if err := validateNew(a); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if _, dup := accts[a.Username]; dup {
			return fmt.Errorf("restore: %w: %s", bank.ErrAccountExists, a.Username)
		}
		accts[a.Username] = &memRecord{a: a}
	}
	m.mu.Lock()
	m.accts = accts
	m.mu.Unlock()
	return nil
}

// Persist 將目前狀態寫入快照檔；未設定路徑時不做事。
func (m *Memory) Persist() error {
	if m.path == "" {
		return nil
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	return SaveSnapshot(m.path, m.Snapshot(context.Background()))
}

// Close 寫回最後一次快照。
func (m *Memory) Close() error {
	return m.Persist()
}

// validateNew 檢查新帳戶欄位：username 必填、餘額不得為負。
func validateNew(a bank.Account) error {
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.Balance < 0 {
		return fmt.Errorf("account %s: balance must be >= 0", a.Username)
	}
	return nil
}
