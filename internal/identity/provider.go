// Package identity は外部Identity Provider（Firebase Authentication互換）との連携を提供する。
// セッションCookieの発行・検証とユーザーレコードの参照を扱う。
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound は指定したuidまたはメールアドレスのユーザーが存在しない場合のエラー。
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrUserDisabled はユーザーが無効化されている場合のエラー。
	ErrUserDisabled = errors.New("identity: user disabled")
	// ErrSessionRevoked はセッションCookieの発行後にトークンが失効された場合のエラー。
	ErrSessionRevoked = errors.New("identity: session cookie revoked")
	// ErrInvalidSessionCookie は署名・発行者・有効期限などの検証に失敗した場合のエラー。
	ErrInvalidSessionCookie = errors.New("identity: invalid session cookie")
	// ErrInvalidExpiresIn はセッション有効期間が許容範囲外の場合のエラー。
	ErrInvalidExpiresIn = errors.New("identity: session duration must be between 5 minutes and 2 weeks")
)

const (
	// MinSessionDuration はセッションCookieの最短有効期間。
	MinSessionDuration = 5 * time.Minute
	// MaxSessionDuration はセッションCookieの最長有効期間。
	MaxSessionDuration = 14 * 24 * time.Hour
)

// Claims は検証済みセッションCookieから取り出した情報。
type Claims struct {
	UID       string
	Email     string
	AuthTime  time.Time
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserRecord はIdentity Providerが保持するユーザー情報。
type UserRecord struct {
	UID         string
	Email       string
	DisplayName string
	Disabled    bool
	// ValidSince より前に認証されたトークンは失効扱いになる。
	ValidSince time.Time
}

// Provider はIdentity Providerのインターフェース。
type Provider interface {
	// CreateSessionCookie は短命のIDトークンを長期間有効なセッションCookieに交換する。
	CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	// VerifySessionCookie はセッションCookieを検証する。
	// checkRevokedがtrueの場合はユーザーの無効化・トークン失効も確認する。
	VerifySessionCookie(ctx context.Context, cookie string, checkRevoked bool) (*Claims, error)
	// GetUserByEmail はメールアドレスでユーザーを取得する。存在しない場合は ErrUserNotFound を返す。
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	// GetUser はuidでユーザーを取得する。存在しない場合は ErrUserNotFound を返す。
	GetUser(ctx context.Context, uid string) (*UserRecord, error)
}
