// Package watch は視聴エンゲージメントのトラッキングを提供する。
// 状態機械、可視性モニター、ティッカー駆動のトラッカーを含む。
package watch

import "time"

// Clock は現在時刻の取得を抽象化する。
// 状態機械は壁時計の実時刻差分で視聴時間を累積するため、
// テストではフェイククロックを注入して決定的に検証する。
type Clock interface {
	Now() time.Time
}

// RealClock はtime.Nowを使うClock実装。
type RealClock struct{}

// Now は現在時刻を返す。
func (RealClock) Now() time.Time {
	return time.Now()
}

// compile-time interface check
var _ Clock = RealClock{}
