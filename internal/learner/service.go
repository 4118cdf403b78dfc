// Package learner は学習者の進捗管理のドメインロジックを提供する。
package learner

import (
	"context"
	"fmt"

	"github.com/hitoshi/coursetrack/internal/model"
	"github.com/hitoshi/coursetrack/internal/repository"
	"github.com/hitoshi/coursetrack/internal/security"
)

// ProgressMetrics は進捗操作のメトリクス計上インターフェース。
// metrics.Collectorの部分集合として定義する。
type ProgressMetrics interface {
	RecordCompletion()
	RecordNoteSaved()
	RecordStarToggled()
}

// Service は進捗マージ操作のサービス層。
// 4操作はすべて冪等で、更新後の完全な学習者レコードを返す。
// 「既に完了済み」「既に要求方向のスター状態」はエラーではなくno-opとして扱う。
type Service struct {
	learnerRepo repository.LearnerRepository
	sanitizer   security.NoteSanitizerService
	metrics     ProgressMetrics
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとmetricsはnil可（nilの場合は各処理をスキップする）。
func NewService(
	learnerRepo repository.LearnerRepository,
	sanitizer security.NoteSanitizerService,
	metrics ProgressMetrics,
) *Service {
	return &Service{
		learnerRepo: learnerRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
	}
}

// MarkCompleted は講義をcompleted集合に追加し、最新レコードを返す。
// 既に完了済みの場合はno-op。部分的な変更は発生しない。
func (s *Service) MarkCompleted(ctx context.Context, principalID, lectureID string) (*model.Learner, error) {
	if lectureID == "" {
		return nil, model.NewInvalidLectureIDError()
	}

	learner, err := s.learnerRepo.MarkCompleted(ctx, principalID, lectureID)
	if err != nil {
		return nil, fmt.Errorf("完了状態の更新に失敗しました: %w", err)
	}
	if learner == nil {
		return nil, model.NewLearnerNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordCompletion()
	}

	return learner, nil
}

// ToggleStar はスター状態を反転し、最新レコードを返す。
// サーバー側の権威ある集合から再計算されるため、古いクライアントビューは
// このレスポンスで自己修正される。
func (s *Service) ToggleStar(ctx context.Context, principalID, lectureID string) (*model.Learner, error) {
	if lectureID == "" {
		return nil, model.NewInvalidLectureIDError()
	}

	learner, err := s.learnerRepo.ToggleStar(ctx, principalID, lectureID)
	if err != nil {
		return nil, fmt.Errorf("スター状態の更新に失敗しました: %w", err)
	}
	if learner == nil {
		return nil, model.NewLearnerNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordStarToggled()
	}

	return learner, nil
}

// SaveNote はノートを上書き保存し、最新レコードを返す。
// last write wins。競合検出は行わない（ノートは個人用の低リスクデータ）。
// 保存前にサニタイズを適用する。
func (s *Service) SaveNote(ctx context.Context, principalID, lectureID, text string) (*model.Learner, error) {
	if lectureID == "" {
		return nil, model.NewInvalidLectureIDError()
	}

	if s.sanitizer != nil {
		text = s.sanitizer.Sanitize(text)
	}

	learner, err := s.learnerRepo.SetNote(ctx, principalID, lectureID, text)
	if err != nil {
		return nil, fmt.Errorf("ノートの保存に失敗しました: %w", err)
	}
	if learner == nil {
		return nil, model.NewLearnerNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordNoteSaved()
	}

	return learner, nil
}
