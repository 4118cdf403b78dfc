// Package auth は資格情報の検証とログイン時チェックインを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/coursetrack/internal/model"
	"github.com/hitoshi/coursetrack/internal/repository"
)

// CheckInRecorder はチェックイン記録のメトリクス計上インターフェース。
type CheckInRecorder interface {
	RecordCheckIn()
}

// Service は認証に関するビジネスロジックを提供する。
// ログイン成功時にデイリーチェックインを記録する（1日1回、冪等）。
type Service struct {
	learnerRepo repository.LearnerRepository
	metrics     CheckInRecorder
	now         func() time.Time
}

// NewService はServiceを生成する。
// nowがnilの場合はtime.Nowを使用する。metricsはnil可。
func NewService(learnerRepo repository.LearnerRepository, metrics CheckInRecorder, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		learnerRepo: learnerRepo,
		metrics:     metrics,
		now:         now,
	}
}

// Login は資格情報を検証し、成功時に今日のチェックインを記録して
// 最新の学習者レコードを返す。
// ユーザー名不明とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
// チェックインは集合セマンティクスで記録され、同日2回目以降はno-op。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Learner, error) {
	if username == "" || password == "" {
		return nil, model.NewInvalidUsernameError()
	}

	learner, err := s.learnerRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("学習者の検索に失敗しました: %w", err)
	}
	if learner == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(learner.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	today := s.today()
	alreadyCheckedIn := learner.HasCheckIn(today)

	updated, err := s.learnerRepo.RecordCheckIn(ctx, learner.ID, today)
	if err != nil {
		return nil, fmt.Errorf("チェックインの記録に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewLearnerNotFoundError()
	}

	if !alreadyCheckedIn {
		if s.metrics != nil {
			s.metrics.RecordCheckIn()
		}
		slog.Info("daily check-in recorded",
			slog.String("principal_id", learner.ID),
			slog.String("day", today),
		)
	}

	return updated, nil
}

// today は現在日付をYYYY-MM-DD形式（UTC）で返す。
func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// HashPassword はパスワードのbcryptハッシュを生成する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}
	return string(hash), nil
}
