// Package catalog は講義メタデータ（推定視聴時間）の参照を提供する。
package catalog

import "time"

// DurationSource は講義の推定視聴時間を解決するインターフェース。
// 完了閾値の計算に使用される。解決できない講義にはフォールバック値を返す。
type DurationSource interface {
	// EstimatedDuration は講義の推定視聴時間を返す。
	EstimatedDuration(lectureID string) time.Duration
}

// Fixed は全講義に同一の推定視聴時間を返すDurationSource。
type Fixed time.Duration

// EstimatedDuration は固定の推定視聴時間を返す。
func (f Fixed) EstimatedDuration(_ string) time.Duration {
	return time.Duration(f)
}

// Static は講義IDごとの推定視聴時間テーブルを持つDurationSource。
// テーブルにない講義にはFallbackを返す。
type Static struct {
	Durations map[string]time.Duration
	Fallback  time.Duration
}

// EstimatedDuration はテーブルから講義の推定視聴時間を引く。
func (s *Static) EstimatedDuration(lectureID string) time.Duration {
	if d, ok := s.Durations[lectureID]; ok {
		return d
	}
	return s.Fallback
}

// compile-time interface check
var (
	_ DurationSource = Fixed(0)
	_ DurationSource = (*Static)(nil)
)
