// internal/storage/redis.go

// Redis 為 Redis 上的 AccountStore。
// 每個帳戶一個 hash（<prefix>account:<username>，欄位 name 與 balance），
// 另以 set（<prefix>accounts）記錄所有 username 供列表使用。
// 扣款、入帳與新增都是 Lua script，在伺服器端對單一 key 原子執行，
// 並以狀態碼區分「不存在」與「餘額不足」。
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"transferd/internal/bank"
	"transferd/internal/money"
)

// script 回傳 {status, balance, name}
const (
	statusNotFound = 0
	statusOK       = 1
	statusRejected = 2
)

var debitScript = redis.NewScript(`
local bal = redis.call('HGET', KEYS[1], 'balance')
if not bal then return {0, 0, ''} end
local name = redis.call('HGET', KEYS[1], 'name')
if tonumber(bal) < tonumber(ARGV[1]) then return {2, tonumber(bal), name} end
local nb = redis.call('HINCRBY', KEYS[1], 'balance', '-' .. ARGV[1])
return {1, nb, name}
`)

var creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {0, 0, ''} end
local nb = redis.call('HINCRBY', KEYS[1], 'balance', ARGV[1])
return {1, nb, redis.call('HGET', KEYS[1], 'name')}
`)

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'name', ARGV[2], 'balance', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// Redis 實作 bank.Store。
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis 以既有 client 建立後端；prefix 用於隔離多個實例的 key。
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// OpenRedis 連線並 ping。
func OpenRedis(ctx context.Context, opts *redis.Options, prefix string) (*Redis, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedis(rdb, prefix), nil
}

func (s *Redis) key(username string) string { return s.prefix + "account:" + username }
func (s *Redis) setKey() string             { return s.prefix + "accounts" }

// parseReply 解析 script 回傳的 {status, balance, name}。
func parseReply(username string, v any) (int64, bank.Account, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return 0, bank.Account{}, fmt.Errorf("unexpected script reply %T", v)
	}
	status, ok1 := arr[0].(int64)
	bal, ok2 := arr[1].(int64)
	name, _ := arr[2].(string)
	if !ok1 || !ok2 {
		return 0, bank.Account{}, fmt.Errorf("unexpected script reply %v", arr)
	}
	return status, bank.Account{Username: username, Name: name, Balance: money.Amount(bal)}, nil
}

// Lookup 讀取單一帳戶。
func (s *Redis) Lookup(ctx context.Context, username string) (bank.Account, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(username), "name", "balance").Result()
	if err != nil {
		return bank.Account{}, fmt.Errorf("lookup %s: %w", username, err)
	}
	return decodeHash(username, vals)
}

func decodeHash(username string, vals []any) (bank.Account, error) {
	if len(vals) != 2 || vals[1] == nil {
		return bank.Account{}, bank.ErrNotFound
	}
	name, _ := vals[0].(string)
	raw, _ := vals[1].(string)
	bal, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return bank.Account{}, fmt.Errorf("account %s: bad balance %q: %w", username, raw, err)
	}
	return bank.Account{Username: username, Name: name, Balance: money.Amount(bal)}, nil
}

// ConditionalDebit 以 Lua script 檢查餘額並扣款。
func (s *Redis) ConditionalDebit(ctx context.Context, username string, amount money.Amount) (bank.Account, error) {
	v, err := debitScript.Run(ctx, s.rdb, []string{s.key(username)}, amount.Minor()).Result()
	if err != nil {
		return bank.Account{}, fmt.Errorf("debit %s: %w", username, err)
	}
	status, a, err := parseReply(username, v)
	if err != nil {
		return bank.Account{}, fmt.Errorf("debit %s: %w", username, err)
	}
	switch status {
	case statusOK:
		return a, nil
	case statusNotFound:
		return bank.Account{}, bank.ErrNotFound
	case statusRejected:
		return bank.Account{}, bank.ErrDebitRejected
	}
	return bank.Account{}, fmt.Errorf("debit %s: unknown status %d", username, status)
}

// Credit 以 HINCRBY 入帳；溢位時 Redis 拒絕整個 script，紀錄不變。
func (s *Redis) Credit(ctx context.Context, username string, amount money.Amount) (bank.Account, error) {
	v, err := creditScript.Run(ctx, s.rdb, []string{s.key(username)}, amount.Minor()).Result()
	if err != nil {
		return bank.Account{}, fmt.Errorf("credit %s: %w", username, err)
	}
	status, a, err := parseReply(username, v)
	if err != nil {
		return bank.Account{}, fmt.Errorf("credit %s: %w", username, err)
	}
	if status == statusNotFound {
		return bank.Account{}, bank.ErrNotFound
	}
	return a, nil
}

// List 依 username 排序列出所有帳戶。
func (s *Redis) List(ctx context.Context) ([]bank.Account, error) {
	names, err := s.rdb.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	sort.Strings(names)

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.SliceCmd, len(names))
	for i, u := range names {
		cmds[i] = pipe.HMGet(ctx, s.key(u), "name", "balance")
	}
	if len(names) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
	}

	out := make([]bank.Account, 0, len(names))
	for i, u := range names {
		a, err := decodeHash(u, cmds[i].Val())
		if errors.Is(err, bank.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Create 新增帳戶；username 已存在時回傳 bank.ErrAccountExists。
func (s *Redis) Create(ctx context.Context, a bank.Account) error {
	if err := validateNew(a); err != nil {
		return err
	}
	n, err := createScript.Run(ctx, s.rdb,
		[]string{s.key(a.Username), s.setKey()},
		a.Username, a.Name, a.Balance.Minor(),
	).Int64()
	if err != nil {
		return fmt.Errorf("create %s: %w", a.Username, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", bank.ErrAccountExists, a.Username)
	}
	return nil
}

// Close 關閉 client。
func (s *Redis) Close() error {
	return s.rdb.Close()
}
