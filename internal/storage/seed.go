// internal/storage/seed.go
//
// 種子資料：從 YAML 檔載入帳戶，並以 insert-if-absent 寫入任一後端。
//
//	accounts:
//	  - username: alice
//	    name: Alice
//	    balance: 10000
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"transferd/internal/bank"
	"transferd/internal/money"
)

type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	Username string       `yaml:"username"`
	Name     string       `yaml:"name"`
	Balance  money.Amount `yaml:"balance"`
}

// LoadSeed 讀取 YAML 種子檔；重複的 username 視為錯誤。
func LoadSeed(path string) ([]bank.Account, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Accounts))
	out := make([]bank.Account, 0, len(f.Accounts))
	for i, sa := range f.Accounts {
		a := bank.Account{Username: sa.Username, Name: sa.Name, Balance: sa.Balance}
		if err := validateNew(a); err != nil {
			return nil, fmt.Errorf("seed %s entry %d: %w", path, i, err)
		}
		if seen[a.Username] {
			return nil, fmt.Errorf("seed %s: duplicate username %q", path, a.Username)
		}
		seen[a.Username] = true
		if a.Name == "" {
			a.Name = a.Username
		}
		out = append(out, a)
	}
	return out, nil
}

// SeedResult 統計寫入結果。
type SeedResult struct {
	Created []string
	Skipped []string
}

// Seed 逐筆新增帳戶；已存在的 username 略過，不覆寫餘額。
func Seed(ctx context.Context, s bank.Seeder, accts []bank.Account) (SeedResult, error) {
	var res SeedResult
	for _, a := range accts {
		err := s.Create(ctx, a)
		switch {
		case err == nil:
			res.Created = append(res.Created, a.Username)
		case errors.Is(err, bank.ErrAccountExists):
			res.Skipped = append(res.Skipped, a.Username)
		default:
			return res, fmt.Errorf("seed %s: %w", a.Username, err)
		}
	}
	return res, nil
}
