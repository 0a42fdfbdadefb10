package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/interviewprep/internal/interview"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/validator"
)

// 音声アシスタント向けのエラーメッセージ
const (
	msgMissingFields      = "Missing required fields"
	msgInvalidFormat      = "Invalid question format returned"
	msgSaveFailed         = "Failed to save interview"
	msgGenerationFailed   = "Failed to generate questions"
	msgGenerateEndpointOK = "Thank you!"
)

// InterviewServiceInterface は模擬面接ハンドラーが必要とするサービスインターフェース。
type InterviewServiceInterface interface {
	Generate(ctx context.Context, params interview.GenerateParams) (*model.Interview, error)
}

// generateResponse は /api/vapi/generate のレスポンス。
type generateResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// InterviewHandler は模擬面接生成のHTTPハンドラー。
type InterviewHandler struct {
	service  InterviewServiceInterface
	validate *validator.Validator
}

// NewInterviewHandler はInterviewHandlerを生成する。
func NewInterviewHandler(service InterviewServiceInterface, validate *validator.Validator) *InterviewHandler {
	return &InterviewHandler{
		service:  service,
		validate: validate,
	}
}

// Generate は質問を生成して保存する。
// POST /api/vapi/generate
func (h *InterviewHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var params interview.GenerateParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResponse{Error: msgMissingFields})
		return
	}
	if err := h.validate.Validate(params); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResponse{Error: msgMissingFields})
		return
	}

	if _, err := h.service.Generate(r.Context(), params); err != nil {
		writeJSON(w, http.StatusInternalServerError, generateResponse{Error: generateErrorMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Success: true})
}

// Ping は音声アシスタントからの疎通確認に応答する。
// GET /api/vapi/generate
func (h *InterviewHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, generateResponse{Success: true, Data: msgGenerateEndpointOK})
}

func generateErrorMessage(err error) string {
	switch {
	case errors.Is(err, interview.ErrInvalidQuestionFormat):
		return msgInvalidFormat
	case errors.Is(err, interview.ErrSaveFailed):
		return msgSaveFailed
	default:
		return msgGenerationFailed
	}
}
