package watch

import (
	"context"
	"log/slog"
	"time"
)

// CompletionReporter は完了イベントのサーバー送信インターフェース。
type CompletionReporter interface {
	// ReportCompletion は講義完了をサーバーに報告する。
	ReportCompletion(ctx context.Context, lectureID string) error
}

// Tracker はティッカーでセッションを駆動し、完了イベントを報告する。
// 完了報告は1回だけ試行し、失敗してもリトライしない。
// サーバー側の操作が冪等であるため、取りこぼしは次回セッションの
// 再視聴または手動の完了操作で回復する。
type Tracker struct {
	session  *Session
	reporter CompletionReporter
	logger   *slog.Logger
	interval time.Duration
}

// NewTracker はTrackerの新しいインスタンスを生成する。
// intervalが0以下の場合はデフォルト値3秒を使用する。
func NewTracker(
	session *Session,
	reporter CompletionReporter,
	logger *slog.Logger,
	interval time.Duration,
) *Tracker {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Tracker{
		session:  session,
		reporter: reporter,
		logger:   logger,
		interval: interval,
	}
}

// Start はティッカーでトラッカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// 完了イベントを発火して報告を終えた後も、呼び出し側が停止するまで
// ループは継続する（以降のティックはno-op）。
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("視聴トラッカーを開始しました",
		slog.String("lecture_id", t.session.LectureID()),
		slog.Duration("interval", t.interval),
		slog.Duration("threshold", t.session.Threshold()),
	)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("視聴トラッカーを停止しました",
				slog.String("lecture_id", t.session.LectureID()),
				slog.Duration("watched", t.session.Watched()),
			)
			return
		case <-ticker.C:
			if t.session.Tick() {
				// 報告はティックループをブロックしない。トラッカー停止後も
				// 送信中の報告は中断させない（HTTPクライアント自体のタイム
				// アウトで抑えられる）
				go t.reportCompletion(context.WithoutCancel(ctx))
			}
		}
	}
}

// reportCompletion は完了イベントをサーバーに報告する。
// 失敗はログに残すのみでリトライしない。
func (t *Tracker) reportCompletion(ctx context.Context) {
	lectureID := t.session.LectureID()

	if err := t.reporter.ReportCompletion(ctx, lectureID); err != nil {
		t.logger.Error("完了報告に失敗しました",
			slog.String("lecture_id", lectureID),
			slog.String("error", err.Error()),
		)
		return
	}

	t.logger.Info("講義完了を報告しました",
		slog.String("lecture_id", lectureID),
		slog.Duration("watched", t.session.Watched()),
	)
}
