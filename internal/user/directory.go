// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/hitoshi/interviewprep/internal/repository"
)

// ErrInvalidProfile はIDまたはメールアドレスが空の場合のエラー。
var ErrInvalidProfile = errors.New("user id and email are required")

// Directory はusersテーブルのプロフィールを管理する。
// プロフィールは初回参照時に遅延作成され、このパッケージからは削除しない。
type Directory struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewDirectory はDirectoryの新しいインスタンスを生成する。
func NewDirectory(userRepo repository.UserRepository) *Directory {
	return &Directory{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// FindByID はプロフィールを取得する。存在しない場合はnilを返す。
func (d *Directory) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := d.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// EnsureUserDocument はプロフィールが存在すればそのまま返し、存在しなければ作成する。
// nameが空の場合はメールアドレスのローカル部を名前にする。
// 読み取りと書き込みはアトミックではなく、同時作成は後勝ちになる。
func (d *Directory) EnsureUserDocument(ctx context.Context, id, email, name string) (*model.User, error) {
	if id == "" || email == "" {
		return nil, ErrInvalidProfile
	}

	existing, err := d.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if name == "" {
		name = localPart(email)
	}

	now := d.now()
	user := &model.User{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザープロフィールを作成しました",
		slog.String("user_id", id),
	)

	return user, nil
}

// localPart はメールアドレスの@より前を返す。
func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
