package watch

import (
	"sync"
	"time"
)

// State は視聴セッションの状態を表す。
type State string

const (
	// StateIdle は視聴開始前の初期状態。
	StateIdle State = "idle"
	// StateWatching は視聴時間を累積中の状態。
	StateWatching State = "watching"
	// StatePaused はタブ非表示などで累積を停止している状態。
	StatePaused State = "paused"
	// StateCompleted は完了閾値に到達した終端状態。
	StateCompleted State = "completed"
)

// SessionConfig は視聴セッションの設定を保持する。
type SessionConfig struct {
	// LectureID は対象講義のID。
	LectureID string
	// EstimatedDuration は講義の推定視聴時間。
	EstimatedDuration time.Duration
	// CompletionRatio は完了とみなす視聴割合（0より大きく1以下）。
	CompletionRatio float64
	// TickInterval はティック間隔。1ティックで累積できる上限でもある。
	TickInterval time.Duration
	// AlreadyCompleted はサーバーレコード上で既に完了済みであることを示す。
	// trueの場合セッションは最初からCompleted状態となり、完了イベントは発火しない。
	AlreadyCompleted bool
}

// Session は単一講義の視聴エンゲージメント状態機械。
//
// 視聴時間は壁時計の実時刻差分で累積するが、1ティックあたりの加算は
// TickIntervalに切り詰める。スリープ復帰などでティック間隔が大きく
// 開いても、その間を視聴時間として計上しない。負の差分は0として扱う。
//
// 完了イベントはセッションの生存期間中に最大1回だけ発火する。
// 閾値到達後に視聴を続けてもWatchedは増えず、状態はCompletedに留まる。
type Session struct {
	mu sync.Mutex

	config    SessionConfig
	threshold time.Duration
	clock     Clock

	state           State
	watched         time.Duration
	lastTick        time.Time
	completionFired bool
}

// NewSession は新しい視聴セッションを生成する。
// clockがnilの場合はRealClockを使用する。
func NewSession(config SessionConfig, clock Clock) *Session {
	if clock == nil {
		clock = RealClock{}
	}

	state := StateIdle
	if config.AlreadyCompleted {
		state = StateCompleted
	}

	return &Session{
		config:    config,
		threshold: time.Duration(float64(config.EstimatedDuration) * config.CompletionRatio),
		clock:     clock,
		state:     state,
	}
}

// Resume は視聴を開始または再開する。
// Idle/Paused状態からWatchingに遷移する。Completed状態では何もしない。
// 再開時点から差分計測を始めるため、停止していた期間は累積されない。
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StatePaused {
		return
	}

	s.state = StateWatching
	s.lastTick = s.clock.Now()
}

// Pause は視聴を一時停止する。
// Watching状態からPausedに遷移する。それ以外の状態では何もしない。
// 前回ティックから停止までの端数も視聴時間として計上してから遷移する。
// ティック間隔より短い視聴の繰り返しでも累積は失われない。
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching {
		return
	}

	s.accumulate(s.clock.Now())
	s.state = StatePaused
}

// Tick は前回ティックからの経過時間を視聴時間に加算する。
// Watching状態でのみ累積が進む。閾値に到達した場合はCompletedに遷移し、
// そのティックでのみtrueを返す（完了イベントは最大1回）。
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching {
		return false
	}

	s.accumulate(s.clock.Now())

	if s.watched >= s.threshold && !s.completionFired {
		s.completionFired = true
		s.state = StateCompleted
		return true
	}

	return false
}

// accumulate は前回計測時点からの経過時間を視聴時間に加算し、計測起点を進める。
// 壁時計の巻き戻りは無視し、スリープ復帰などで開いた間隔は1ティック分に
// 切り詰める。呼び出し元がロックを保持していること。
func (s *Session) accumulate(now time.Time) {
	delta := now.Sub(s.lastTick)
	s.lastTick = now

	if delta < 0 {
		delta = 0
	}
	if delta > s.config.TickInterval {
		delta = s.config.TickInterval
	}

	s.watched += delta
}

// State は現在の状態を返す。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watched は累積視聴時間を返す。
func (s *Session) Watched() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched
}

// Threshold は完了閾値を返す。
func (s *Session) Threshold() time.Duration {
	return s.threshold
}

// LectureID は対象講義のIDを返す。
func (s *Session) LectureID() string {
	return s.config.LectureID
}
