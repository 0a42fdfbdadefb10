// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/interviewprep/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
// usersテーブルはドキュメントストア的に扱い、IDをキーに丸ごと読み書きする。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Save はユーザーをIDをキーに書き込む。既存レコードは上書きする（last-write-wins）。
	// 別IDのユーザーが同じメールアドレスを使用している場合は model.ErrEmailAlreadyExists を返す。
	Save(ctx context.Context, user *model.User) error
}

// InterviewRepository は模擬面接の永続化インターフェース。
type InterviewRepository interface {
	// Create は模擬面接を作成する。
	Create(ctx context.Context, interview *model.Interview) error

	// ListByUserID はユーザーの模擬面接を新しい順に最大limit件返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Interview, error)
}
