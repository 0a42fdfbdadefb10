// Package interview は生成AIによる模擬面接の質問生成と保存を提供する。
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/interviewprep/internal/llm"
	"github.com/hitoshi/interviewprep/internal/metrics"
	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/repository"
	"github.com/hitoshi/interviewprep/internal/security"
)

// 生成失敗の理由（メトリクスのラベル）
const (
	ReasonGeneration = "generation"
	ReasonFormat     = "format"
	ReasonSave       = "save"
)

var (
	// ErrGenerationFailed は生成AIの呼び出しに失敗した場合のエラー。
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrInvalidQuestionFormat は生成結果が文字列のJSON配列として解釈できない場合のエラー。
	ErrInvalidQuestionFormat = errors.New("invalid question format returned")
	// ErrSaveFailed は模擬面接の保存に失敗した場合のエラー。
	ErrSaveFailed = errors.New("failed to save interview")
)

// coverImages は模擬面接カードのカバー画像。
var coverImages = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

// Amount は質問数。音声アシスタントからは数値文字列で届くこともあるため両方を受け付ける。
type Amount int

// UnmarshalJSON は数値または数値文字列をAmountとして読み込む。
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	*a = Amount(n)
	return nil
}

// GenerateParams は質問生成の入力。
type GenerateParams struct {
	Type      string `json:"type" validate:"required,max=100"`
	Role      string `json:"role" validate:"required,max=200"`
	Level     string `json:"level" validate:"required,max=100"`
	TechStack string `json:"techstack" validate:"required,max=500"`
	Amount    Amount `json:"amount" validate:"required,min=1,max=50"`
	UserID    string `json:"userid" validate:"required,max=128"`
}

// Service は模擬面接のサービス層。
type Service struct {
	generator llm.TextGenerator
	repo      repository.InterviewRepository
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	now       func() time.Time
	newID     func() string
	pickCover func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	generator llm.TextGenerator,
	repo repository.InterviewRepository,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		generator: generator,
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
		newID:     uuid.NewString,
		pickCover: randomCover,
	}
}

// Generate は質問を生成し、模擬面接として保存する。
// 戻り値のエラーは ErrGenerationFailed / ErrInvalidQuestionFormat / ErrSaveFailed のいずれかをラップする。
func (s *Service) Generate(ctx context.Context, params GenerateParams) (*model.Interview, error) {
	start := s.now()
	text, err := s.generator.GenerateText(ctx, BuildPrompt(params))
	s.metrics.RecordGenerationLatency(s.now().Sub(start))
	if err != nil {
		slog.Error("failed to generate interview questions",
			slog.String("user_id", params.UserID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordGenerationFailure(ReasonGeneration)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		slog.Error("failed to parse interview questions",
			slog.String("user_id", params.UserID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordGenerationFailure(ReasonFormat)
		return nil, err
	}

	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if c := s.sanitizer.Sanitize(q); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		s.metrics.RecordGenerationFailure(ReasonFormat)
		return nil, fmt.Errorf("%w: no questions left after sanitizing", ErrInvalidQuestionFormat)
	}

	iv := &model.Interview{
		ID:         s.newID(),
		UserID:     params.UserID,
		Role:       params.Role,
		Type:       params.Type,
		Level:      params.Level,
		TechStack:  SplitTechStack(params.TechStack),
		Questions:  cleaned,
		Finalized:  true,
		CoverImage: s.pickCover(),
		CreatedAt:  s.now(),
	}

	if err := s.repo.Create(ctx, iv); err != nil {
		slog.Error("failed to save interview",
			slog.String("user_id", params.UserID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordGenerationFailure(ReasonSave)
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	slog.Info("interview generated",
		slog.String("interview_id", iv.ID),
		slog.String("user_id", iv.UserID),
		slog.Int("question_count", len(iv.Questions)),
	)
	return iv, nil
}

// ListForUser はユーザーの模擬面接を新しい順に返す。
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Interview, error) {
	interviews, err := s.repo.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("模擬面接一覧の取得に失敗しました: %w", err)
	}
	return interviews, nil
}

// BuildPrompt は質問生成用のプロンプトを組み立てる。
func BuildPrompt(p GenerateParams) string {
	var b strings.Builder
	b.WriteString("Prepare questions for a job interview.\n")
	fmt.Fprintf(&b, "The job role is %s.\n", p.Role)
	fmt.Fprintf(&b, "The job experience level is %s.\n", p.Level)
	fmt.Fprintf(&b, "The tech stack used in the job is: %s.\n", p.TechStack)
	fmt.Fprintf(&b, "The focus between behavioural and technical questions should lean towards: %s.\n", p.Type)
	fmt.Fprintf(&b, "The amount of questions required is: %d.\n", p.Amount)
	b.WriteString("Please return only the questions, without any additional text.\n")
	b.WriteString(`The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.` + "\n")
	b.WriteString("Return the questions formatted like this:\n")
	b.WriteString(`["Question 1", "Question 2", "Question 3"]` + "\n\n")
	b.WriteString("Thank you! <3\n")
	return b.String()
}

// ParseQuestions は生成結果を文字列のJSON配列として解釈する。
// モデルがコードフェンスで囲んで返した場合はフェンスを取り除く。
func ParseQuestions(text string) ([]string, error) {
	body := stripCodeFence(strings.TrimSpace(text))

	var questions []string
	if err := json.Unmarshal([]byte(body), &questions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuestionFormat, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question list", ErrInvalidQuestionFormat)
	}
	return questions, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// 先頭行（```json など）を捨てる
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SplitTechStack はカンマ区切りの技術スタックを分割し、前後の空白と空要素を除く。
func SplitTechStack(raw string) []string {
	parts := strings.Split(raw, ",")
	stack := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			stack = append(stack, p)
		}
	}
	return stack
}

func randomCover() string {
	return coverImages[rand.IntN(len(coverImages))]
}
