// Package model はドメインモデルを定義する。
package model

import "time"

// User はusersテーブルに保存されるユーザープロフィールを表す。
// IDはIdentity Providerのuidと一致する。
// Emailは作成後に変更しない。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthResult はサインアップ・サインインの結果を表す。永続化はしない。
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}
