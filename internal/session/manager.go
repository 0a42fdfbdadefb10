// Package session はIdentity Providerが発行するセッションCookieによる認証状態を管理する。
// セッションはサーバー側に保存せず、検証はすべてIdentity Providerに委ねる。
// 全操作は呼び出し元にエラーを返さず、失敗はnil/falseとログに変換する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/interviewprep/internal/identity"
	"github.com/hitoshi/interviewprep/internal/metrics"
	"github.com/hitoshi/interviewprep/internal/model"
)

const (
	// CookieName はセッションCookieの名前。
	CookieName = "session"
	// Duration はセッションの有効期間。
	// Identity Providerへの指定とCookieのMax-Ageの両方をこの値から導出する。
	Duration = 7 * 24 * time.Hour
)

// ProfileDirectory はユーザープロフィールの参照と遅延作成のインターフェース。
type ProfileDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	EnsureUserDocument(ctx context.Context, id, email, name string) (*model.User, error)
}

// Manager はセッションの発行・検証・破棄と現在ユーザーの解決を行う。
type Manager struct {
	provider identity.Provider
	users    ProfileDirectory
	metrics  metrics.MetricsCollector
	cookie   CookieOptions
}

// NewManager はManagerを生成する。
func NewManager(provider identity.Provider, users ProfileDirectory, collector metrics.MetricsCollector, cookie CookieOptions) *Manager {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Manager{
		provider: provider,
		users:    users,
		metrics:  collector,
		cookie:   cookie,
	}
}

// Store はリクエストに対応するCookieStoreを返す。
func (m *Manager) Store(w http.ResponseWriter, r *http.Request) CookieStore {
	return NewHTTPCookieStore(w, r, m.cookie)
}

// IssueSession はIDトークンをセッションCookieに交換し、storeに保存する。
// 失敗した場合は空文字とfalseを返す。
func (m *Manager) IssueSession(ctx context.Context, store CookieStore, idToken string) (credential string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while issuing session", slog.String("panic", fmt.Sprint(rec)))
			m.metrics.RecordSessionIssued(metrics.ResultFailure)
			credential, ok = "", false
		}
	}()

	credential, err := m.provider.CreateSessionCookie(ctx, idToken, Duration)
	if err != nil {
		slog.Error("failed to create session cookie",
			slog.String("error", err.Error()),
		)
		m.metrics.RecordSessionIssued(metrics.ResultFailure)
		return "", false
	}
	if credential == "" {
		slog.Error("identity provider returned an empty session cookie")
		m.metrics.RecordSessionIssued(metrics.ResultFailure)
		return "", false
	}

	if err := store.Set(m.newCookie(credential)); err != nil {
		slog.Error("failed to store session cookie",
			slog.String("error", err.Error()),
		)
		m.metrics.RecordSessionIssued(metrics.ResultFailure)
		return "", false
	}

	m.metrics.RecordSessionIssued(metrics.ResultSuccess)
	return credential, true
}

// VerifySession は失効確認付きでセッションCookieを検証する。
// 検証に失敗した場合は保存されたCookieを削除してnilを返す。
// 検証に成功してもuidが空のクレームは不正なセッションとして同様に扱う。
func (m *Manager) VerifySession(ctx context.Context, store CookieStore, credential string) *identity.Claims {
	claims, err := m.provider.VerifySessionCookie(ctx, credential, true)
	if err == nil && (claims == nil || claims.UID == "") {
		err = errors.New("verified claims have no user id")
	}
	if err != nil {
		result := metrics.ResultInvalid
		if errors.Is(err, identity.ErrSessionRevoked) || errors.Is(err, identity.ErrUserDisabled) {
			result = metrics.ResultRevoked
		}
		m.metrics.RecordSessionVerification(result)

		slog.Warn("session verification failed, clearing cookie",
			slog.String("error", err.Error()),
		)
		if delErr := store.Delete(CookieName); delErr != nil {
			slog.Error("failed to delete session cookie",
				slog.String("error", delErr.Error()),
			)
		}
		return nil
	}

	m.metrics.RecordSessionVerification(metrics.ResultSuccess)
	return claims
}

// ClearSession はセッションCookieを削除する。冪等。
// 削除に失敗した場合はログに記録してfalseを返す。
func (m *Manager) ClearSession(ctx context.Context, store CookieStore) bool {
	if err := store.Delete(CookieName); err != nil {
		slog.Error("failed to clear session",
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// GetCurrentUser はセッションCookieから現在のユーザーを解決する。
// プロフィールが存在しない場合はIdentity Providerのユーザー情報から作成する。
// 未認証または失敗時はnilを返す。
func (m *Manager) GetCurrentUser(ctx context.Context, store CookieStore) *model.User {
	credential, ok := store.Get(CookieName)
	if !ok || credential == "" {
		return nil
	}

	claims := m.VerifySession(ctx, store, credential)
	if claims == nil {
		return nil
	}

	user, err := m.users.FindByID(ctx, claims.UID)
	if err != nil {
		slog.Error("failed to read user profile",
			slog.String("user_id", claims.UID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if user != nil {
		return user
	}

	// 認証済みだがプロフィールが未作成
	record, err := m.provider.GetUser(ctx, claims.UID)
	if err != nil {
		slog.Error("failed to fetch identity record for missing profile",
			slog.String("user_id", claims.UID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if record.Email == "" {
		slog.Error("identity record has no email, cannot create profile",
			slog.String("user_id", claims.UID),
		)
		return nil
	}

	user, err = m.users.EnsureUserDocument(ctx, claims.UID, record.Email, "")
	if err != nil {
		slog.Error("failed to create missing user profile",
			slog.String("user_id", claims.UID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	m.metrics.RecordUserProvisioned()
	slog.Info("user profile provisioned from identity record",
		slog.String("user_id", claims.UID),
	)
	return user
}

// IsAuthenticated は現在のユーザーが解決できるかどうかを返す。
// panicはfalseとして扱う。
func (m *Manager) IsAuthenticated(ctx context.Context, store CookieStore) bool {
	return m.currentUserSafely(ctx, store) != nil
}

// AuthenticatedUser はガード向けに現在のユーザーを解決する。未認証の場合はnilを返す。
// リクエストのコンテキストがキャンセル済みの場合のみエラーを返す。
func (m *Manager) AuthenticatedUser(ctx context.Context, store CookieStore) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user := m.currentUserSafely(ctx, store)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticated はAuthenticatedUserの真偽値版。
func (m *Manager) Authenticated(ctx context.Context, store CookieStore) (bool, error) {
	user, err := m.AuthenticatedUser(ctx, store)
	return user != nil, err
}

func (m *Manager) currentUserSafely(ctx context.Context, store CookieStore) (user *model.User) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while checking authentication", slog.String("panic", fmt.Sprint(rec)))
			user = nil
		}
	}()
	return m.GetCurrentUser(ctx, store)
}

func (m *Manager) newCookie(credential string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    credential,
		Path:     "/",
		Domain:   m.cookie.Domain,
		MaxAge:   int(Duration / time.Second),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
