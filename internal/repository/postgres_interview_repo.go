package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/interviewprep/internal/model"
	"github.com/lib/pq"
)

// PostgresInterviewRepo はPostgreSQLを使用した模擬面接リポジトリ。
type PostgresInterviewRepo struct {
	db *sql.DB
}

// NewPostgresInterviewRepo はPostgresInterviewRepoを生成する。
func NewPostgresInterviewRepo(db *sql.DB) *PostgresInterviewRepo {
	return &PostgresInterviewRepo{db: db}
}

// Create は模擬面接を作成する。
// questionsはJSON配列、techstackはtext[]として保存する。
func (r *PostgresInterviewRepo) Create(ctx context.Context, interview *model.Interview) error {
	questions, err := json.Marshal(nonNil(interview.Questions))
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO interviews (id, user_id, role, type, level, techstack, questions, finalized, cover_image, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		interview.ID, interview.UserID, interview.Role, interview.Type, interview.Level,
		pq.Array(nonNil(interview.TechStack)), questions, interview.Finalized,
		interview.CoverImage, interview.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create interview: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの模擬面接を新しい順に最大limit件返す。
func (r *PostgresInterviewRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Interview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, role, type, level, techstack, questions, finalized, cover_image, created_at
		 FROM interviews
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []*model.Interview
	for rows.Next() {
		iv := &model.Interview{}
		var questions []byte
		if err := rows.Scan(
			&iv.ID, &iv.UserID, &iv.Role, &iv.Type, &iv.Level,
			pq.Array(&iv.TechStack), &questions, &iv.Finalized, &iv.CoverImage, &iv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		if err := json.Unmarshal(questions, &iv.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions of interview %s: %w", iv.ID, err)
		}
		interviews = append(interviews, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interviews: %w", err)
	}

	return interviews, nil
}

// nonNil はnilスライスを空スライスに置き換える。
// pq.Arrayはnilを NULL として書き込むためNOT NULL列に渡す前に使う。
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// compile-time interface check
var _ InterviewRepository = (*PostgresInterviewRepo)(nil)
