// Package auth はサインアップ・サインイン・サインアウトの処理を提供する。
// 結果はすべて model.AuthResult として返し、エラーは呼び出し元に伝播しない。
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/interviewprep/internal/identity"
	"github.com/hitoshi/interviewprep/internal/metrics"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/session"
)

// ユーザー向けメッセージ
const (
	MsgSignUpSuccess    = "Account created successfully. Please sign in."
	MsgEmailInUse       = "This email is already in use"
	MsgSignUpFailed     = "Failed to create account. Please try again."
	MsgUserDoesNotExist = "User does not exist. Create an account."
	MsgUserDataFailed   = "Failed to verify user data. Please try again."
	MsgSessionFailed    = "Failed to create session. Please try again."
	MsgSignInSuccess    = "Signed in successfully."
	MsgSignInFailed     = "Failed to log into account. Please try again."
)

// SignUpParams はサインアップの入力。UIDはクライアント側でIdentity Providerに登録済みのもの。
type SignUpParams struct {
	UID   string `json:"uid" validate:"required,max=128"`
	Name  string `json:"name" validate:"max=255"`
	Email string `json:"email" validate:"required,email,max=320"`
}

// SignInParams はサインインの入力。
type SignInParams struct {
	Email   string `json:"email" validate:"required,email,max=320"`
	IDToken string `json:"idToken" validate:"required"`
}

// UserDirectory はプロフィールの遅延作成のインターフェース。
type UserDirectory interface {
	EnsureUserDocument(ctx context.Context, id, email, name string) (*model.User, error)
}

// SessionManager はセッションの発行と破棄のインターフェース。
type SessionManager interface {
	IssueSession(ctx context.Context, store session.CookieStore, idToken string) (string, bool)
	ClearSession(ctx context.Context, store session.CookieStore) bool
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider identity.Provider
	users    UserDirectory
	sessions SessionManager
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	provider identity.Provider,
	users UserDirectory,
	sessions SessionManager,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		provider: provider,
		users:    users,
		sessions: sessions,
		metrics:  collector,
	}
}

// SignUp はプロフィールを作成する。既に存在する場合はそのまま成功とする。
// セッションは発行しない（作成後にサインインさせる）。
func (s *Service) SignUp(ctx context.Context, params SignUpParams) model.AuthResult {
	user, err := s.users.EnsureUserDocument(ctx, params.UID, params.Email, params.Name)
	if err != nil {
		slog.Error("failed to create user document",
			slog.String("user_id", params.UID),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, model.ErrEmailAlreadyExists) {
			return model.AuthResult{Success: false, Message: MsgEmailInUse}
		}
		return model.AuthResult{Success: false, Message: MsgSignUpFailed}
	}

	slog.Info("user signed up", slog.String("user_id", user.ID))
	return model.AuthResult{Success: true, Message: MsgSignUpSuccess, User: user}
}

// SignIn はメールアドレスのユーザーが存在することを確認してセッションCookieを発行する。
// 発行したセッションがそのユーザーのものでない場合はセッションを破棄して失敗とする。
// プロフィールは所有者を確認してから用意する。
func (s *Service) SignIn(ctx context.Context, store session.CookieStore, params SignInParams) model.AuthResult {
	record, err := s.provider.GetUserByEmail(ctx, params.Email)
	if errors.Is(err, identity.ErrUserNotFound) {
		s.metrics.RecordSignIn(metrics.ResultFailure)
		return model.AuthResult{Success: false, Message: MsgUserDoesNotExist}
	}
	if err != nil {
		slog.Error("sign in error",
			slog.String("error", err.Error()),
		)
		s.metrics.RecordSignIn(metrics.ResultFailure)
		return model.AuthResult{Success: false, Message: MsgSignInFailed}
	}

	credential, ok := s.sessions.IssueSession(ctx, store, params.IDToken)
	if !ok {
		s.metrics.RecordSignIn(metrics.ResultFailure)
		return model.AuthResult{Success: false, Message: MsgSessionFailed}
	}
	if !s.sessionOwnedBy(ctx, credential, record.UID) {
		s.sessions.ClearSession(ctx, store)
		s.metrics.RecordSignIn(metrics.ResultFailure)
		return model.AuthResult{Success: false, Message: MsgSessionFailed}
	}

	user, err := s.users.EnsureUserDocument(ctx, record.UID, params.Email, "")
	if err != nil {
		slog.Error("failed to ensure user document on sign in",
			slog.String("user_id", record.UID),
			slog.String("error", err.Error()),
		)
		s.sessions.ClearSession(ctx, store)
		s.metrics.RecordSignIn(metrics.ResultFailure)
		return model.AuthResult{Success: false, Message: MsgUserDataFailed}
	}

	s.metrics.RecordSignIn(metrics.ResultSuccess)
	slog.Info("user signed in", slog.String("user_id", record.UID))
	return model.AuthResult{Success: true, Message: MsgSignInSuccess, User: user}
}

// sessionOwnedBy は発行したセッションCookieのuidがuidと一致するかを確認する。
func (s *Service) sessionOwnedBy(ctx context.Context, credential, uid string) bool {
	claims, err := s.provider.VerifySessionCookie(ctx, credential, false)
	if err != nil {
		slog.Error("failed to verify issued session",
			slog.String("user_id", uid),
			slog.String("error", err.Error()),
		)
		return false
	}
	if claims == nil || claims.UID != uid {
		var tokenUID string
		if claims != nil {
			tokenUID = claims.UID
		}
		slog.Warn("id token does not belong to the signing-in user",
			slog.String("user_id", uid),
			slog.String("token_user_id", tokenUID),
		)
		return false
	}
	return true
}

// SignOut はセッションCookieを削除する。
func (s *Service) SignOut(ctx context.Context, store session.CookieStore) model.AuthResult {
	if !s.sessions.ClearSession(ctx, store) {
		return model.AuthResult{Success: false}
	}
	slog.Info("user signed out")
	return model.AuthResult{Success: true}
}
