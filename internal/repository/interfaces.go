// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/coursetrack/internal/model"
)

// LearnerRepository は学習者レコードの永続化インターフェース。
// 4つのマージ操作（MarkCompleted/ToggleStar/SetNote/RecordCheckIn）は
// すべて冪等であり、更新後の完全なレコードを返す。
// 呼び出し元はこの戻り値でローカル状態を再同期できる（追加フェッチ不要）。
type LearnerRepository interface {
	// FindByID は指定IDの学習者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Learner, error)

	// FindByUsername はユーザー名で学習者を検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Learner, error)

	// List は全学習者を作成日時順で返す。
	List(ctx context.Context) ([]*model.Learner, error)

	// Create は学習者を作成する。ユーザー名重複時はエラーを返す。
	Create(ctx context.Context, learner *model.Learner) error

	// DeleteByID は指定IDの学習者を削除する。
	DeleteByID(ctx context.Context, id string) error

	// MarkCompleted は講義IDをcompleted集合に追加する。既に存在する場合はno-op。
	// 単一のアトミックなUPDATE文で実装され、同時実行でも重複エントリは生じない。
	// 学習者が見つからない場合はnilを返す。
	MarkCompleted(ctx context.Context, id, lectureID string) (*model.Learner, error)

	// ToggleStar はstarred集合の所属を反転する。
	// 1リクエスト内の反転はアトミックだが、別タブからの追加と削除の交錯順序は
	// 保証しない（低リスクとして許容するレース）。
	ToggleStar(ctx context.Context, id, lectureID string) (*model.Learner, error)

	// SetNote は講義のノートを無条件に上書きする。履歴は保持しない。
	SetNote(ctx context.Context, id, lectureID, text string) (*model.Learner, error)

	// RecordCheckIn は指定日（YYYY-MM-DD）をcheck_ins集合に追加する。
	// 既に存在する場合はno-op。
	RecordCheckIn(ctx context.Context, id, day string) (*model.Learner, error)
}
