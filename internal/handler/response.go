// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/interviewprep/internal/middleware"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/validator"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 64 << 10

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをdstに読み込む。未知のフィールドは無視する。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeValidationError は入力検証エラーを統一フォーマットで返す。
func writeValidationError(w http.ResponseWriter, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(ve.Error()))
		return
	}
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
}
