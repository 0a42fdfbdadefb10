package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// defaultTokenURI はサービスアカウントのアクセストークン発行エンドポイント。
const defaultTokenURI = "https://oauth2.googleapis.com/token"

// ClientConfig はIdentity Providerクライアントの設定。
type ClientConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string // PEM形式のサービスアカウント秘密鍵
	// Timeout は1回の呼び出しに許す最大時間。0以下なら呼び出し元のコンテキストに従う。
	Timeout time.Duration
}

// authBackend はFirebase Admin SDKのauth.Clientのうち、このパッケージが使うメソッド。
type authBackend interface {
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, sessionCookie string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
}

// compile-time interface check
var _ authBackend = (*auth.Client)(nil)

// Client はFirebase Admin SDKでIdentity Providerを呼び出すクライアント。
// 署名・検証・失効確認はすべてSDKとIdentity Providerに委ねる。リトライは行わない。
type Client struct {
	backend authBackend
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient はサービスアカウントの認証情報からClientを生成する。
// 環境変数FIREBASE_AUTH_EMULATOR_HOSTが設定されている場合、SDKはエミュレーターに接続する。
func NewClient(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("project ID is required")
	}
	if cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, errors.New("service account client email and private key are required")
	}

	credentials, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return newClient(authClient, cfg.Timeout, logger), nil
}

func newClient(backend authBackend, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{backend: backend, timeout: timeout, logger: logger}
}

// serviceAccountJSON は設定値からサービスアカウントキーのJSONを組み立てる。
func serviceAccountJSON(cfg ClientConfig) ([]byte, error) {
	b, err := json.Marshal(struct {
		Type        string `json:"type"`
		ProjectID   string `json:"project_id"`
		PrivateKey  string `json:"private_key"`
		ClientEmail string `json:"client_email"`
		TokenURI    string `json:"token_uri"`
	}{
		Type:        "service_account",
		ProjectID:   cfg.ProjectID,
		PrivateKey:  cfg.PrivateKey,
		ClientEmail: cfg.ClientEmail,
		TokenURI:    defaultTokenURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account credentials: %w", err)
	}
	return b, nil
}

// CreateSessionCookie はIDトークンをセッションCookieに交換する。
// expiresInは5分以上2週間以下でなければならない。
func (c *Client) CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if idToken == "" {
		return "", errors.New("id token is required")
	}
	if expiresIn < MinSessionDuration || expiresIn > MaxSessionDuration {
		return "", ErrInvalidExpiresIn
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cookie, err := c.backend.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		c.logger.Warn("identity provider rejected session cookie creation",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to create session cookie: %w", err)
	}
	if cookie == "" {
		return "", errors.New("empty session cookie in response")
	}
	return cookie, nil
}

// VerifySessionCookie はセッションCookieを検証する。
// checkRevokedがtrueの場合はユーザーの無効化とトークン失効も確認する。
func (c *Client) VerifySessionCookie(ctx context.Context, cookie string, checkRevoked bool) (*Claims, error) {
	if cookie == "" {
		return nil, fmt.Errorf("%w: empty cookie", ErrInvalidSessionCookie)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var (
		token *auth.Token
		err   error
	)
	if checkRevoked {
		token, err = c.backend.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	} else {
		token, err = c.backend.VerifySessionCookie(ctx, cookie)
	}
	if err != nil {
		return nil, translateError(err)
	}
	if token == nil || token.UID == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidSessionCookie)
	}

	return claimsFromToken(token), nil
}

// GetUser はuidでユーザーを取得する。
func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, err := c.backend.GetUser(ctx, uid)
	if err != nil {
		return nil, translateError(err)
	}
	return userRecordFrom(user), nil
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, err := c.backend.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, translateError(err)
	}
	return userRecordFrom(user), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// translateError はSDKのエラーをこのパッケージのセンチネルエラーに対応付ける。
func translateError(err error) error {
	switch {
	case auth.IsUserNotFound(err):
		return ErrUserNotFound
	case auth.IsUserDisabled(err):
		return fmt.Errorf("%w: %w", ErrUserDisabled, err)
	case auth.IsSessionCookieRevoked(err):
		return fmt.Errorf("%w: %w", ErrSessionRevoked, err)
	case auth.IsSessionCookieInvalid(err):
		return fmt.Errorf("%w: %w", ErrInvalidSessionCookie, err)
	default:
		return fmt.Errorf("identity provider request failed: %w", err)
	}
}

func claimsFromToken(token *auth.Token) *Claims {
	claims := &Claims{
		UID:       token.UID,
		AuthTime:  time.Unix(token.AuthTime, 0),
		IssuedAt:  time.Unix(token.IssuedAt, 0),
		ExpiresAt: time.Unix(token.Expires, 0),
	}
	if email, ok := token.Claims["email"].(string); ok {
		claims.Email = email
	}
	return claims
}

func userRecordFrom(user *auth.UserRecord) *UserRecord {
	record := &UserRecord{Disabled: user.Disabled}
	if user.UserInfo != nil {
		record.UID = user.UID
		record.Email = user.Email
		record.DisplayName = user.DisplayName
	}
	if user.TokensValidAfterMillis > 0 {
		record.ValidSince = time.UnixMilli(user.TokensValidAfterMillis)
	}
	return record
}

// compile-time interface check
var _ Provider = (*Client)(nil)
