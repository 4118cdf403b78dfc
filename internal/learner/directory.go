package learner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/coursetrack/internal/auth"
	"github.com/hitoshi/coursetrack/internal/model"
	"github.com/hitoshi/coursetrack/internal/repository"
)

// DirectoryService はユーザーディレクトリ管理（管理者専用）のサービス層。
// アカウントの作成・一覧・削除を提供する。進捗トラッキングの対象外だが、
// 学習者レコードのライフサイクル（作成と明示的な削除）を担う。
type DirectoryService struct {
	learnerRepo repository.LearnerRepository
	now         func() time.Time
}

// NewDirectoryService はDirectoryServiceの新しいインスタンスを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewDirectoryService(learnerRepo repository.LearnerRepository, now func() time.Time) *DirectoryService {
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		learnerRepo: learnerRepo,
		now:         now,
	}
}

// Create は学習者アカウントを作成する。
// ロール未指定の場合はstudentとする。進捗フィールドはすべて空集合で初期化する。
func (s *DirectoryService) Create(ctx context.Context, username, password string, role model.Role) (*model.Learner, error) {
	if username == "" || password == "" {
		return nil, model.NewInvalidUsernameError()
	}
	if role == "" {
		role = model.RoleStudent
	}

	existing, err := s.learnerRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("学習者の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError(username)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	nowAt := s.now().UTC()
	newLearner := &model.Learner{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Completed:    []string{},
		Starred:      []string{},
		Notes:        map[string]string{},
		CheckIns:     []string{},
		CreatedAt:    nowAt,
		UpdatedAt:    nowAt,
	}

	if err := s.learnerRepo.Create(ctx, newLearner); err != nil {
		return nil, err
	}

	slog.Info("learner account created",
		slog.String("principal_id", newLearner.ID),
		slog.String("role", string(role)),
	)

	return newLearner, nil
}

// List は全学習者を返す。
func (s *DirectoryService) List(ctx context.Context) ([]*model.Learner, error) {
	learners, err := s.learnerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("学習者一覧の取得に失敗しました: %w", err)
	}
	return learners, nil
}

// Delete は学習者アカウントを削除する。
// 進捗レコードもまとめて消える（learnersテーブルの1行に集約されているため）。
func (s *DirectoryService) Delete(ctx context.Context, id string) error {
	if err := s.learnerRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	slog.Info("learner account deleted",
		slog.String("principal_id", id),
	)

	return nil
}
