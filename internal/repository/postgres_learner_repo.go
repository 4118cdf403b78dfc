package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/coursetrack/internal/model"
)

// learnerColumns はSELECT/RETURNINGで取得するカラムの一覧。
const learnerColumns = `id, username, password_hash, role, completed, starred, notes, check_ins, created_at, updated_at`

// PostgresLearnerRepo はPostgreSQLを使用した学習者リポジトリ。
// マージ操作は単一のアトミックなUPDATE ... RETURNING文で実装し、
// fetch/mutate/saveの2往復による更新消失を排除する。
type PostgresLearnerRepo struct {
	db *sql.DB
}

// NewPostgresLearnerRepo はPostgresLearnerRepoを生成する。
func NewPostgresLearnerRepo(db *sql.DB) *PostgresLearnerRepo {
	return &PostgresLearnerRepo{db: db}
}

// FindByID は指定IDの学習者を取得する。見つからない場合はnilを返す。
func (r *PostgresLearnerRepo) FindByID(ctx context.Context, id string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+learnerColumns+` FROM learners WHERE id = $1`, id)
	learner, err := scanLearner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("学習者の取得に失敗しました: %w", err)
	}
	return learner, nil
}

// FindByUsername はユーザー名で学習者を検索する。見つからない場合はnilを返す。
func (r *PostgresLearnerRepo) FindByUsername(ctx context.Context, username string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+learnerColumns+` FROM learners WHERE username = $1`, username)
	learner, err := scanLearner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("学習者の検索に失敗しました: %w", err)
	}
	return learner, nil
}

// List は全学習者を作成日時順で返す。
func (r *PostgresLearnerRepo) List(ctx context.Context) ([]*model.Learner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+learnerColumns+` FROM learners ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("学習者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var learners []*model.Learner
	for rows.Next() {
		learner, err := scanLearner(rows)
		if err != nil {
			return nil, fmt.Errorf("学習者一覧の読み取りに失敗しました: %w", err)
		}
		learners = append(learners, learner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("学習者一覧の読み取りに失敗しました: %w", err)
	}
	return learners, nil
}

// Create は学習者を作成する。
// username一意制約違反の場合はDUPLICATE_USERNAMEエラーを返す。
func (r *PostgresLearnerRepo) Create(ctx context.Context, learner *model.Learner) error {
	notes, err := json.Marshal(notesOrEmpty(learner.Notes))
	if err != nil {
		return fmt.Errorf("ノートのエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO learners (id, username, password_hash, role, completed, starred, notes, check_ins, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		learner.ID, learner.Username, learner.PasswordHash, string(learner.Role),
		pq.Array(learner.Completed), pq.Array(learner.Starred),
		notes, pq.Array(learner.CheckIns),
		learner.CreatedAt, learner.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateUsernameError(learner.Username)
		}
		return fmt.Errorf("学習者の作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの学習者を削除する。
func (r *PostgresLearnerRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM learners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("学習者の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewLearnerNotFoundError()
	}
	return nil
}

// MarkCompleted は講義IDをcompleted集合にアトミックに追加する。
// 含有チェックと追加を1文で行うため、2セッションが同じ講義を同時に完了しても
// 重複エントリは生じない。既に存在する場合は現状のレコードを返すだけのno-op。
func (r *PostgresLearnerRepo) MarkCompleted(ctx context.Context, id, lectureID string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE learners
		    SET completed = CASE WHEN completed @> ARRAY[$2]::text[] THEN completed
		                         ELSE array_append(completed, $2) END,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+learnerColumns,
		id, lectureID)
	return returningLearner(row, "完了状態の更新に失敗しました")
}

// ToggleStar はstarred集合の所属をアトミックに反転する。
// 反転そのものは1文でアトミックだが、別タブからの連続トグルの適用順序は
// HTTPレベルで保証されない（許容するレース）。
func (r *PostgresLearnerRepo) ToggleStar(ctx context.Context, id, lectureID string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE learners
		    SET starred = CASE WHEN starred @> ARRAY[$2]::text[] THEN array_remove(starred, $2)
		                       ELSE array_append(starred, $2) END,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+learnerColumns,
		id, lectureID)
	return returningLearner(row, "スター状態の更新に失敗しました")
}

// SetNote は講義のノートを無条件に上書きする。履歴は保持しない。
func (r *PostgresLearnerRepo) SetNote(ctx context.Context, id, lectureID, text string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE learners
		    SET notes = jsonb_set(notes, ARRAY[$2], to_jsonb($3::text), true),
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+learnerColumns,
		id, lectureID, text)
	return returningLearner(row, "ノートの保存に失敗しました")
}

// RecordCheckIn は指定日をcheck_ins集合にアトミックに追加する。
// 既に存在する場合はno-op。
func (r *PostgresLearnerRepo) RecordCheckIn(ctx context.Context, id, day string) (*model.Learner, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE learners
		    SET check_ins = CASE WHEN check_ins @> ARRAY[$2]::text[] THEN check_ins
		                         ELSE array_append(check_ins, $2) END,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+learnerColumns,
		id, day)
	return returningLearner(row, "チェックインの記録に失敗しました")
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLearner は1行をmodel.Learnerに読み取る。
func scanLearner(row rowScanner) (*model.Learner, error) {
	learner := &model.Learner{}
	var role string
	var notesRaw []byte
	var completed, starred, checkIns pq.StringArray

	err := row.Scan(
		&learner.ID, &learner.Username, &learner.PasswordHash, &role,
		&completed, &starred, &notesRaw, &checkIns,
		&learner.CreatedAt, &learner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	learner.Role = model.Role(role)
	learner.Completed = []string(completed)
	learner.Starred = []string(starred)
	learner.CheckIns = []string(checkIns)

	learner.Notes = make(map[string]string)
	if len(notesRaw) > 0 {
		if err := json.Unmarshal(notesRaw, &learner.Notes); err != nil {
			return nil, fmt.Errorf("ノートのデコードに失敗しました: %w", err)
		}
	}

	return learner, nil
}

// returningLearner はUPDATE ... RETURNINGの結果行を読み取る。
// 対象行が存在しない場合（未知のprincipal）はnilを返す。
func returningLearner(row rowScanner, failMsg string) (*model.Learner, error) {
	learner, err := scanLearner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	return learner, nil
}

// notesOrEmpty はnilマップを空マップに正規化する。
// notesカラムはNOT NULLのため、JSONとして常に{}以上を書き込む。
func notesOrEmpty(notes map[string]string) map[string]string {
	if notes == nil {
		return map[string]string{}
	}
	return notes
}

// isUniqueViolation はPostgreSQLの一意制約違反（SQLSTATE 23505）かを判定する。
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

// compile-time interface check
var _ LearnerRepository = (*PostgresLearnerRepo)(nil)
