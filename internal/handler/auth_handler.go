package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/interviewprep/internal/auth"
	"github.com/hitoshi/interviewprep/internal/middleware"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/session"
	"github.com/hitoshi/interviewprep/internal/validator"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, params auth.SignUpParams) model.AuthResult
	SignIn(ctx context.Context, store session.CookieStore, params auth.SignInParams) model.AuthResult
	SignOut(ctx context.Context, store session.CookieStore) model.AuthResult
}

// AuthHandler はサインアップ・サインイン・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	stores   middleware.StoreFactory
	validate *validator.Validator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, stores middleware.StoreFactory, validate *validator.Validator) *AuthHandler {
	return &AuthHandler{
		service:  service,
		stores:   stores,
		validate: validate,
	}
}

// SignUp はプロフィールを作成する。
// POST /api/auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var params auth.SignUpParams
	if err := decodeJSON(w, r, &params); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if err := h.validate.Validate(params); err != nil {
		writeValidationError(w, err)
		return
	}

	result := h.service.SignUp(r.Context(), params)
	status := authResultStatus(result)
	if result.Success {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// SignIn はセッションCookieを発行する。
// POST /api/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var params auth.SignInParams
	if err := decodeJSON(w, r, &params); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if err := h.validate.Validate(params); err != nil {
		writeValidationError(w, err)
		return
	}

	result := h.service.SignIn(r.Context(), h.stores(w, r), params)
	writeJSON(w, authResultStatus(result), result)
}

// SignOut はセッションCookieを削除する。Cookieがなくても成功とする。
// POST /api/auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	result := h.service.SignOut(r.Context(), h.stores(w, r))
	writeJSON(w, authResultStatus(result), result)
}

// Me は現在のユーザー情報を返す。セッションミドルウェアの後段で使う。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// authResultStatus はAuthResultのメッセージからHTTPステータスを決める。
func authResultStatus(result model.AuthResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Message {
	case auth.MsgEmailInUse:
		return http.StatusConflict
	case auth.MsgUserDoesNotExist:
		return http.StatusNotFound
	case auth.MsgSessionFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
