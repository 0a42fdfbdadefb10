package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/session"
)

// AuthChecker は認証状態を判定するインターフェース。
// 未認証の場合はnilユーザーを返す。
type AuthChecker interface {
	AuthenticatedUser(ctx context.Context, store session.CookieStore) (*model.User, error)
}

// SessionClearer はセッションを破棄するインターフェース。
type SessionClearer interface {
	ClearSession(ctx context.Context, store session.CookieStore) bool
}

// NewProtectedAreaGuard は認証済みユーザーのみが閲覧できる領域のガードを返す。
// 未認証の場合はsignInPathへリダイレクトする。
// 判定でエラーやpanicが起きた場合もsignInPathへリダイレクトする。
// 認証済みの場合は解決したユーザーをコンテキストに格納して次のハンドラーに渡す。
func NewProtectedAreaGuard(checker AuthChecker, stores StoreFactory, signInPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := checkAuthenticated(r.Context(), checker, stores(w, r))
			if err != nil {
				slog.Error("protected area guard failed, redirecting to sign-in",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}
			if user == nil {
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// NewPublicAreaGuard は未認証ユーザー向け領域（サインイン・サインアップ）のガードを返す。
// 認証済みの場合はrootPathへリダイレクトする。
// 判定でエラーやpanicが起きた場合はセッションを破棄し、ページをそのまま表示する。
func NewPublicAreaGuard(checker AuthChecker, clearer SessionClearer, stores StoreFactory, rootPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := stores(w, r)
			user, err := checkAuthenticated(r.Context(), checker, store)
			if err != nil {
				clearer.ClearSession(r.Context(), store)
				slog.Error("public area guard failed, session cleared",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if user != nil {
				http.Redirect(w, r, rootPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkAuthenticated はcheckerのpanicをエラーに変換する。
func checkAuthenticated(ctx context.Context, checker AuthChecker, store session.CookieStore) (user *model.User, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			user, err = nil, fmt.Errorf("panic in auth check: %v", rec)
		}
	}()
	return checker.AuthenticatedUser(ctx, store)
}
