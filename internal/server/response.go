// internal/server/response.go
//
// 本檔統一 HTTP 回應格式與錯誤類別對應：
//
//	InvalidRequest     → 400
//	InsufficientFunds  → 400
//	AccountNotFound    → 404
//	ServerError        → 500
//	CompensatedFailure → 500
//	CriticalFailure    → 500（error 欄位保持 CriticalFailure，不與一般 500 混淆）
//
// 錯誤 body 一律為 {"error": "<Kind>", "message": "<說明>"}。
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"transferd/internal/bank"
)

// headerOutcome 記錄轉帳結果分類，供冪等快取判斷是否可重播。
const headerOutcome = "X-Transfer-Outcome"

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON 統一輸出成功回應。
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr 將錯誤轉為狀態碼與 JSON body；底層儲存錯誤不外露。
func writeErr(w http.ResponseWriter, err error) {
	kind := bank.KindOf(err)
	msg := "internal server error"
	var te *bank.TransferError
	if errors.As(err, &te) {
		msg = te.Message()
	}
	writeJSON(w, statusOf(kind), errorBody{Error: kind.Error(), Message: msg})
}

func statusOf(kind *bank.Kind) int {
	switch kind {
	case bank.ErrInvalidRequest, bank.ErrInsufficientFunds:
		return http.StatusBadRequest
	case bank.ErrAccountNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeProblem 輸出非轉帳類錯誤（限流、冪等衝突等）。
func writeProblem(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, errorBody{Error: kind, Message: msg})
}
