// internal/storage/model.go
//
// 定義 JSON 快照的序列化格式，供記憶體後端 (Memory) 持久化使用。
// 餘額一律以最小貨幣單位 (int64) 儲存，避免十進位轉換誤差。
// Meta 保留儲存類型與版本，便於日後格式升級。
package storage

import "time"

// snapshotVersion 為目前快照格式版本；版本 1 為舊格式（數字 ID 與交易日誌）。
const snapshotVersion = 2

// Meta 為快照的中繼資料。
type Meta struct {
	Storage   string    `json:"storage"`        // 儲存類型，例如 "json_snapshot"
	Version   int       `json:"version"`        // 結構版本號
	Timestamp time.Time `json:"timestamp"`      // 快照建立時間
	Note      string    `json:"note,omitempty"` // 備註
}

// PersistAccount 為帳戶在快照中的格式。
type PersistAccount struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance_minor"` // 最小貨幣單位
}

// Snapshot 為記憶體後端的完整狀態。
type Snapshot struct {
	Meta     Meta             `json:"_meta"`
	Accounts []PersistAccount `json:"accounts"`
}
