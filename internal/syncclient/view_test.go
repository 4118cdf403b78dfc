package syncclient

import "testing"

// TestLocalView_EmptyView は未同期のビューが安全なゼロ値を返すことをテストする。
func TestLocalView_EmptyView(t *testing.T) {
	v := NewLocalView()

	if v.Record() != nil {
		t.Error("Record() != nil, want nil")
	}
	if v.HasCompleted("lec-1") {
		t.Error("HasCompleted() = true, want false")
	}
	if v.HasStarred("lec-1") {
		t.Error("HasStarred() = true, want false")
	}
	if got := v.Note("lec-1"); got != "" {
		t.Errorf("Note() = %q, want 空文字列", got)
	}
}

// TestLocalView_ApplyReplacesWholesale はApplyが差分適用ではなくレコード全体を
// 置き換えることをテストする。
func TestLocalView_ApplyReplacesWholesale(t *testing.T) {
	v := NewLocalView()

	v.Apply(&Record{
		ID:        "learner-1",
		Completed: []string{"lec-1", "lec-2"},
		Starred:   []string{"lec-1"},
		Notes:     map[string]string{"lec-1": "メモ"},
	})

	// 他セッションでlec-2のスターが付き、lec-1のスターが消えたレコード
	v.Apply(&Record{
		ID:        "learner-1",
		Completed: []string{"lec-1", "lec-2"},
		Starred:   []string{"lec-2"},
		Notes:     map[string]string{},
	})

	if v.HasStarred("lec-1") {
		t.Error("HasStarred(lec-1) = true, want false（置き換え後）")
	}
	if !v.HasStarred("lec-2") {
		t.Error("HasStarred(lec-2) = false, want true")
	}
	if got := v.Note("lec-1"); got != "" {
		t.Errorf("Note(lec-1) = %q, want 空文字列（置き換え後）", got)
	}
}
