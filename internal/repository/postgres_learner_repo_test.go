package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

// TestNotesOrEmpty はnilマップが空マップに正規化されることをテストする。
func TestNotesOrEmpty(t *testing.T) {
	if got := notesOrEmpty(nil); got == nil || len(got) != 0 {
		t.Errorf("notesOrEmpty(nil) = %v, want 空マップ", got)
	}

	notes := map[string]string{"lec-1": "メモ"}
	if got := notesOrEmpty(notes); len(got) != 1 || got["lec-1"] != "メモ" {
		t.Errorf("notesOrEmpty(%v) = %v, want 入力のまま", notes, got)
	}
}

// TestIsUniqueViolation は一意制約違反の判定をテストする。
func TestIsUniqueViolation(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want bool
	}{
		{"SQLSTATE 23505", &pq.Error{Code: "23505"}, true},
		{"別のSQLSTATE", &pq.Error{Code: "23503"}, false},
		{"メッセージ照合", errors.New(`pq: duplicate key value violates unique constraint "learners_username_key"`), true},
		{"無関係なエラー", errors.New("connection refused"), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestScanLearner_EmptyNotes は空のnotesカラムが空マップとして読み取られる
// ことをテストする。
func TestScanLearner_EmptyNotes(t *testing.T) {
	row := &fakeRow{
		values: []any{
			"learner-1", "hanako", "hash", "student",
			pq.StringArray{}, pq.StringArray{}, []byte(`{}`), pq.StringArray{},
		},
	}

	learner, err := scanLearner(row)
	if err != nil {
		t.Fatalf("scanLearner returned error: %v", err)
	}

	if learner.Notes == nil || len(learner.Notes) != 0 {
		t.Errorf("notes = %v, want 空マップ", learner.Notes)
	}
	if learner.Completed == nil {
		t.Error("completed = nil, want 空スライス")
	}
}

// TestScanLearner_PopulatedRecord は配列とJSONのカラムが正しく読み取られる
// ことをテストする。
func TestScanLearner_PopulatedRecord(t *testing.T) {
	row := &fakeRow{
		values: []any{
			"learner-1", "hanako", "hash", "admin",
			pq.StringArray{"lec-1", "lec-2"}, pq.StringArray{"lec-1"},
			[]byte(`{"lec-1":"要復習"}`), pq.StringArray{"2026-08-31"},
		},
	}

	learner, err := scanLearner(row)
	if err != nil {
		t.Fatalf("scanLearner returned error: %v", err)
	}

	if !learner.HasCompleted("lec-2") {
		t.Error("HasCompleted(lec-2) = false, want true")
	}
	if !learner.HasStarred("lec-1") {
		t.Error("HasStarred(lec-1) = false, want true")
	}
	if got := learner.Notes["lec-1"]; got != "要復習" {
		t.Errorf("notes[lec-1] = %q, want %q", got, "要復習")
	}
	if !learner.HasCheckIn("2026-08-31") {
		t.Error("HasCheckIn(2026-08-31) = false, want true")
	}
}

// fakeRow はscanLearnerのテスト用rowScanner。
// created_at/updated_atはゼロ値のままでよいためスキップする。
type fakeRow struct {
	values []any
}

func (r *fakeRow) Scan(dest ...any) error {
	for i, v := range r.values {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *pq.StringArray:
			*d = v.(pq.StringArray)
		case *[]byte:
			*d = v.([]byte)
		}
	}
	return nil
}
