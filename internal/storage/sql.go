// internal/storage/sql.go

// SQL 為 database/sql 上的 AccountStore，支援 SQLite 與 Postgres 兩種方言。
// 每個操作都是單一 SQL 陳述式，由資料庫保證該列的原子性：
//   - 扣款：UPDATE ... SET balance = balance - $1 WHERE username = $2 AND balance >= $1
//   - 入帳：UPDATE ... SET balance = balance + $1 WHERE username = $2 AND balance <= MaxInt64 - $1
//
// SQLite 整數溢位時會改存 REAL 而不報錯，因此入帳以 WHERE 條件擋下溢位，
// 影響 0 列時再以 Lookup 區分「不存在」與「溢位」。
//
// 扣款影響 0 列時無法區分「不存在」與「餘額不足」，一律回傳 bank.ErrDebitRejected，
// 由 Coordinator 再以 Lookup 判斷。
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"transferd/internal/bank"
	"transferd/internal/money"
)

//go:embed schema.sql
var schemaSQL string

// 結構版本（SQLite 以 PRAGMA user_version 記錄）：
// 1 - accounts 資料表
const currentSchemaVersion = 1

// Dialect 描述方言差異：驅動名稱與參數佔位符格式。
type Dialect struct {
	Name   string
	Driver string
	rebind func(string) string
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

var (
	// SQLite 使用 ?NNN 編號參數（同一參數可重複引用）。
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite3", rebind: func(q string) string {
		return placeholder.ReplaceAllString(q, "?$1")
	}}
	Postgres = Dialect{Name: "postgres", Driver: "pgx", rebind: func(q string) string { return q }}
)

const (
	qLookup = `SELECT username, name, balance FROM accounts WHERE username = $1`
	qDebit  = `UPDATE accounts SET balance = balance - $1
		WHERE username = $2 AND balance >= $1
		RETURNING username, name, balance`
	qCredit = `UPDATE accounts SET balance = balance + $1
		WHERE username = $2 AND balance <= 9223372036854775807 - $1
		RETURNING username, name, balance`
	qList   = `SELECT username, name, balance FROM accounts ORDER BY username`
	qCreate = `INSERT INTO accounts (username, name, balance) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`
)

// SQL 實作 bank.Store。
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL 以既有連線建立 SQL 後端，不執行 schema（測試時搭配 sqlmock）。
func NewSQL(db *sql.DB, d Dialect) *SQL {
	return &SQL{db: db, dialect: d}
}

// OpenSQLite 開啟（或建立）SQLite 資料庫，套用 pragma 與 schema。
func OpenSQLite(path string) (*SQL, error) {
	db, err := sql.Open(SQLite.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// SQLite 同時只允許一個寫入者
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	s := NewSQL(db, SQLite)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres 以 DSN 連線 Postgres（pgx 驅動），在 timeout 內 ping 並套用 schema。
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*SQL, error) {
	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewSQL(db, Postgres)
	if err := s.Migrate(pctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate 建立資料表；SQLite 另外記錄 user_version。可重複執行。
func (s *SQL) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if s.dialect.Name != SQLite.Name {
		return nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

func (s *SQL) q(query string) string { return s.dialect.rebind(query) }

type scanner interface{ Scan(dest ...any) error }

func scanAccount(row scanner) (bank.Account, error) {
	var a bank.Account
	var bal int64
	if err := row.Scan(&a.Username, &a.Name, &bal); err != nil {
		return bank.Account{}, err
	}
	a.Balance = money.Amount(bal)
	return a, nil
}

// Lookup 讀取單一帳戶。
func (s *SQL) Lookup(ctx context.Context, username string) (bank.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, s.q(qLookup), username))
	if errors.Is(err, sql.ErrNoRows) {
		return bank.Account{}, bank.ErrNotFound
	}
	if err != nil {
		return bank.Account{}, fmt.Errorf("lookup %s: %w", username, err)
	}
	return a, nil
}

// ConditionalDebit 以單一 UPDATE 扣款；0 列回傳 bank.ErrDebitRejected。
func (s *SQL) ConditionalDebit(ctx context.Context, username string, amount money.Amount) (bank.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, s.q(qDebit), amount.Minor(), username))
	if errors.Is(err, sql.ErrNoRows) {
		return bank.Account{}, bank.ErrDebitRejected
	}
	if err != nil {
		return bank.Account{}, fmt.Errorf("debit %s: %w", username, err)
	}
	return a, nil
}

// Credit 以單一 UPDATE 入帳；會溢位的入帳不寫入，回傳 bank.ErrBalanceOverflow。
func (s *SQL) Credit(ctx context.Context, username string, amount money.Amount) (bank.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, s.q(qCredit), amount.Minor(), username))
	if errors.Is(err, sql.ErrNoRows) {
		if _, lerr := s.Lookup(ctx, username); lerr != nil {
			return bank.Account{}, lerr
		}
		return bank.Account{}, fmt.Errorf("credit %s: %w", username, bank.ErrBalanceOverflow)
	}
	if err != nil {
		return bank.Account{}, fmt.Errorf("credit %s: %w", username, err)
	}
	return a, nil
}

// List 依 username 排序列出所有帳戶。
func (s *SQL) List(ctx context.Context) ([]bank.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.q(qList))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	out := []bank.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create 新增帳戶；username 已存在時回傳 bank.ErrAccountExists。
func (s *SQL) Create(ctx context.Context, a bank.Account) error {
	if err := validateNew(a); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(qCreate), a.Username, a.Name, a.Balance.Minor())
	if err != nil {
		return fmt.Errorf("create %s: %w", a.Username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", a.Username, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", bank.ErrAccountExists, a.Username)
	}
	return nil
}

// Close 關閉連線池。
func (s *SQL) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
