package syncclient

import "sync"

// LocalView はサーバー権威レコードのクライアント側キャッシュ。
// 同期レスポンスを受け取るたびに全体を置き換える。差分適用は行わないため、
// 他セッションでの更新もレスポンス適用時にまとめて取り込まれる。
type LocalView struct {
	mu     sync.RWMutex
	record *Record
}

// NewLocalView は空のLocalViewを生成する。
func NewLocalView() *LocalView {
	return &LocalView{}
}

// Apply はサーバーから受け取ったレコードでビュー全体を置き換える。
func (v *LocalView) Apply(record *Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record = record
}

// Record は現在のレコードを返す。未同期の場合はnil。
func (v *LocalView) Record() *Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.record
}

// HasCompleted は講義が完了済みかを返す。未同期の場合はfalse。
func (v *LocalView) HasCompleted(lectureID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil {
		return false
	}
	return v.record.HasCompleted(lectureID)
}

// HasStarred は講義がスター済みかを返す。未同期の場合はfalse。
func (v *LocalView) HasStarred(lectureID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil {
		return false
	}
	for _, id := range v.record.Starred {
		if id == lectureID {
			return true
		}
	}
	return false
}

// Note は講義のノートを返す。未保存または未同期の場合は空文字列。
func (v *LocalView) Note(lectureID string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil {
		return ""
	}
	return v.record.Notes[lectureID]
}
