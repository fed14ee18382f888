package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
)

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.Fail(code, message))
}
