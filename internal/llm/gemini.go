// Package llm は生成AI（Gemini generateContent API）のクライアントを提供する。
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultBaseURL はGenerative Language APIのベースURL。
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel は使用するモデル名のデフォルト。
	DefaultModel = "gemini-2.0-flash-001"
)

// ErrEmptyResponse は候補テキストが1件も返らなかった場合のエラー。
var ErrEmptyResponse = errors.New("generative model returned no text")

// TextGenerator はプロンプトからテキストを生成するインターフェース。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig はGeminiClientの設定。
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries は429/5xx応答時の最大リトライ回数。0以下ならリトライしない。
	MaxRetries int
}

// contentGenerator はgenai.Modelsのうち、このパッケージが使うメソッド。
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// compile-time interface check
var _ contentGenerator = (*genai.Models)(nil)

// GeminiClient はGemini generateContent APIのクライアント。
type GeminiClient struct {
	models     contentGenerator
	logger     *slog.Logger
	baseURL    string
	model      string
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// compile-time interface check
var _ TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient はGeminiClientの新しいインスタンスを生成する。
// SDKは自動リトライを行わないため、429/5xxのリトライはこのクライアントが行う。
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL + "/",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("生成AIクライアントの初期化に失敗しました: %w", err)
	}

	return &GeminiClient{
		models:     client.Models,
		logger:     logger,
		baseURL:    baseURL,
		model:      model,
		maxRetries: maxRetries,
		backoff:    calculateBackoff,
	}, nil
}

// Model は使用中のモデル名を返す。
func (c *GeminiClient) Model() string {
	return c.model
}

// GenerateText はプロンプトを送信し、最初の候補のテキストを返す。
// 候補が複数のpartに分かれている場合は連結する。
// 429/5xx応答は指数バックオフでMaxRetries回までリトライする。
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		text, err := c.generateOnce(ctx, prompt)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.Retryable() || attempt >= c.maxRetries {
			return text, err
		}

		delay := c.backoff(attempt)
		c.logger.Warn("生成AI APIへのリクエストをリトライします",
			slog.Int("http_status", se.StatusCode),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (c *GeminiClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if se := statusErrorFrom(err); se != nil {
			c.logger.Error("生成AI APIがエラーステータスを返しました",
				slog.Int("http_status", se.StatusCode),
				slog.String("model", c.model),
				slog.String("message", se.Message),
			)
			return "", se
		}
		c.logger.Error("生成AI APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", c.model),
		)
		return "", fmt.Errorf("生成AI APIの呼び出しに失敗しました: %w", err)
	}

	return responseText(resp)
}

// responseText は最初の候補のpartを連結したテキストを返す。
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("プロンプトがブロックされました (%s): %w", resp.PromptFeedback.BlockReason, ErrEmptyResponse)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// statusErrorFrom はSDKのAPIErrorをStatusErrorに変換する。APIErrorでなければnilを返す。
func statusErrorFrom(err error) *StatusError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return nil
}
