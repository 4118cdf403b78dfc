// Package model はドメインモデルを定義する。
package model

import "time"

// Role は学習者の権限区分を表す。
type Role string

const (
	// RoleAdmin は管理者を示す。ユーザーディレクトリ操作が許可される。
	RoleAdmin Role = "admin"
	// RoleStudent は受講者を示す。
	RoleStudent Role = "student"
)

// Learner は学習者の進捗レコードを表す。
// Completed/Starred/CheckInsは集合セマンティクス（重複なし、表示用に挿入順を保持）。
// Notesは講義IDをキーとした自由記述テキストのマッピング（last write wins）。
type Learner struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Completed    []string
	Starred      []string
	Notes        map[string]string
	CheckIns     []string // YYYY-MM-DD
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCompleted は指定講義が完了済みかを返す。
func (l *Learner) HasCompleted(lectureID string) bool {
	for _, id := range l.Completed {
		if id == lectureID {
			return true
		}
	}
	return false
}

// HasStarred は指定講義がスター済みかを返す。
func (l *Learner) HasStarred(lectureID string) bool {
	for _, id := range l.Starred {
		if id == lectureID {
			return true
		}
	}
	return false
}

// HasCheckIn は指定日のチェックインが記録済みかを返す。
func (l *Learner) HasCheckIn(day string) bool {
	for _, d := range l.CheckIns {
		if d == day {
			return true
		}
	}
	return false
}
