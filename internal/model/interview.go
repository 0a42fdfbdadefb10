package model

import "time"

// Interview は生成された模擬面接を表す。
type Interview struct {
	ID         string
	UserID     string
	Role       string
	Type       string
	Level      string
	TechStack  []string
	Questions  []string
	Finalized  bool
	CoverImage string
	CreatedAt  time.Time
}
