// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NoteSanitizerService は学習者が保存する自由記述ノートをサニタイズし、
// 保存されたノートがブラウザで再表示される際のXSSリスクを排除する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 最小限の整形タグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// NoteSanitizerService はノートテキストのサニタイズ機能のインターフェースを定義する。
// ノート保存前に使用される。
type NoteSanitizerService interface {
	// Sanitize はノートテキストをサニタイズして安全なテキストを返す。
	// 整形タグ（p, br, ul, ol, li, pre, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// noteSanitizer はNoteSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type noteSanitizer struct {
	policy *bluemonday.Policy
}

// NewNoteSanitizer はNoteSanitizerServiceの新しいインスタンスを生成する。
// ノートは個人メモであり埋め込みメディアを必要としないため、
// リンク・画像を含まない整形タグのみの許可リストとする。
func NewNoteSanitizer() *noteSanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグはプレーンな整形のみ。許可リストに含めないことで
	// script, iframe, style等とon*イベント属性は自動的に除去される。
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"pre", "code",
		"strong", "em",
	)

	return &noteSanitizer{
		policy: p,
	}
}

// Sanitize はノートテキストをサニタイズして安全なテキストを返す。
func (s *noteSanitizer) Sanitize(text string) string {
	return s.policy.Sanitize(text)
}
