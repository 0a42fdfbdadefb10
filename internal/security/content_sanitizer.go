// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は生成AIが返した質問文からHTMLやマークアップを取り除き、
// 音声アシスタントがそのまま読み上げられるプレーンテキストにする。
// bluemondayのStrictPolicyで全タグを除去したうえで、読み上げを妨げる記号を取り除く。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize はタグとマークアップ記号を除去し、空白を1つにまとめた文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// speechBreakingChars は読み上げを妨げるマークダウン記号。
var speechBreakingChars = strings.NewReplacer(
	"*", "",
	"`", "",
	"#", "",
)

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	// StrictPolicyは&や<をエスケープするため、テキストとして戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = speechBreakingChars.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// SanitizeAll は各要素をサニタイズし、空になった要素を取り除く。
func (s *textSanitizer) SanitizeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if cleaned := s.Sanitize(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
