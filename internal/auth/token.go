// internal/auth/token.go
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// StaticTokens 以固定 token 清單驗證。只保存 SHA-256 雜湊，比對採 constant-time。
// 每個設定項目可寫成 "name:token"，name 作為 Identity.Subject；省略 name 時以雜湊前綴代替。
type StaticTokens struct {
	entries []tokenEntry
}

type tokenEntry struct {
	subject string
	hash    [sha256.Size]byte
}

// NewStaticTokens 解析設定；空白項目忽略，全部為空時回傳錯誤。
func NewStaticTokens(specs []string) (*StaticTokens, error) {
	st := &StaticTokens{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		subject, token, ok := strings.Cut(spec, ":")
		if !ok {
			token, subject = spec, ""
		}
		if token == "" {
			return nil, fmt.Errorf("api token %q: empty token", subject)
		}
		h := sha256.Sum256([]byte(token))
		if subject == "" {
			subject = "token-" + hex.EncodeToString(h[:4])
		}
		st.entries = append(st.entries, tokenEntry{subject: subject, hash: h})
	}
	if len(st.entries) == 0 {
		return nil, fmt.Errorf("no api tokens configured")
	}
	return st, nil
}

// Authenticate 逐一比對所有項目，不提前結束。
func (s *StaticTokens) Authenticate(_ context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrUnauthenticated
	}
	h := sha256.Sum256([]byte(credential))
	match := -1
	for i, e := range s.entries {
		if subtle.ConstantTimeCompare(h[:], e.hash[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{Subject: s.entries[match].subject, Method: "token"}, nil
}
