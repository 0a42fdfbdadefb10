// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに現在のユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// StoreFactory はリクエストに対応するCookieStoreを生成する。
type StoreFactory func(w http.ResponseWriter, r *http.Request) session.CookieStore

// CurrentUserResolver はセッションCookieから現在のユーザーを解決するインターフェース。
// session.Managerの部分集合として定義する。
type CurrentUserResolver interface {
	GetCurrentUser(ctx context.Context, store session.CookieStore) *model.User
}

// NewSessionMiddleware はセッションCookieから現在のユーザーを解決するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver CurrentUserResolver, stores StoreFactory) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolver.GetCurrentUser(r.Context(), stores(w, r))
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから現在のユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, ok := UserFromContext(ctx)
	if !ok || user.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに現在のユーザーを注入する。
// リクエストログ用の記録領域があればユーザーIDも書き込む。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok && user != nil {
		info.userID = user.ID
	}
	return context.WithValue(ctx, userContextKey, user)
}
