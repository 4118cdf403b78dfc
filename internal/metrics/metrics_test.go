package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestCollector_Counters は各カウンターが計上されることをテストする。
func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordCompletion()
	c.RecordCompletion()
	c.RecordCheckIn()
	c.RecordNoteSaved()
	c.RecordStarToggled()

	if got := testutil.ToFloat64(c.completions); got != 2 {
		t.Errorf("completions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.checkIns); got != 1 {
		t.Errorf("checkIns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.notesSaved); got != 1 {
		t.Errorf("notesSaved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.starsToggled); got != 1 {
		t.Errorf("starsToggled = %v, want 1", got)
	}
}

// TestCollector_SyncFailureByOperation は同期失敗が操作名ラベル別に
// 計上されることをテストする。
func TestCollector_SyncFailureByOperation(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordSyncFailure("progress")
	c.RecordSyncFailure("progress")
	c.RecordSyncFailure("notes")

	if got := testutil.ToFloat64(c.syncFail.WithLabelValues("progress")); got != 2 {
		t.Errorf("syncFail{progress} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.syncFail.WithLabelValues("notes")); got != 1 {
		t.Errorf("syncFail{notes} = %v, want 1", got)
	}
}

// TestCollector_HTTPStatus はステータスコード別の計上をテストする。
func TestCollector_HTTPStatus(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(429)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("httpStatus{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("429")); got != 1 {
		t.Errorf("httpStatus{429} = %v, want 1", got)
	}
}

// TestCollector_SyncLatency はレイテンシの記録がパニックしないことをテストする。
func TestCollector_SyncLatency(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordSyncLatency(150 * time.Millisecond)
}
