// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProgressCollector は進捗トラッキングのメトリクス収集インターフェース。
// サービス層と同期クライアントから利用する。
type ProgressCollector interface {
	RecordCompletion()
	RecordCheckIn()
	RecordNoteSaved()
	RecordStarToggled()
	RecordSyncFailure(operation string)
	RecordSyncLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	completions  prometheus.Counter
	checkIns     prometheus.Counter
	notesSaved   prometheus.Counter
	starsToggled prometheus.Counter
	syncFail     *prometheus.CounterVec
	syncLatency  prometheus.Histogram
	httpStatus   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursetrack_completions_total",
			Help: "記録された講義完了の合計数",
		}),
		checkIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursetrack_checkins_total",
			Help: "記録されたデイリーチェックインの合計数",
		}),
		notesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursetrack_notes_saved_total",
			Help: "保存されたノートの合計数",
		}),
		starsToggled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursetrack_stars_toggled_total",
			Help: "スタートグルの合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursetrack_sync_fail_total",
			Help: "操作別の進捗同期失敗の合計数",
		}, []string{"operation"}),
		syncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursetrack_sync_latency_seconds",
			Help:    "進捗同期リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursetrack_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.completions,
		c.checkIns,
		c.notesSaved,
		c.starsToggled,
		c.syncFail,
		c.syncLatency,
		c.httpStatus,
	)

	return c
}

// RecordCompletion は講義完了の記録を計上する。
func (c *Collector) RecordCompletion() {
	c.completions.Inc()
}

// RecordCheckIn はチェックインの記録を計上する。
func (c *Collector) RecordCheckIn() {
	c.checkIns.Inc()
}

// RecordNoteSaved はノート保存を計上する。
func (c *Collector) RecordNoteSaved() {
	c.notesSaved.Inc()
}

// RecordStarToggled はスタートグルを計上する。
func (c *Collector) RecordStarToggled() {
	c.starsToggled.Inc()
}

// RecordSyncFailure は同期失敗を操作名ラベル付きで計上する。
func (c *Collector) RecordSyncFailure(operation string) {
	c.syncFail.WithLabelValues(operation).Inc()
}

// RecordSyncLatency は同期リクエストのレイテンシを記録する。
func (c *Collector) RecordSyncLatency(duration time.Duration) {
	c.syncLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
