package watch

// VisibilitySession は可視性モニターが操作するセッションの部分インターフェース。
type VisibilitySession interface {
	Resume()
	Pause()
}

// VisibilityMonitor は視聴画面の可視性シグナルをセッションの遷移に変換する。
// 画面が非表示になったらPause、表示に戻る・操作があったらResumeを呼ぶ。
// 遷移の妥当性判定はセッション側が行うため、モニターはシグナルを
// そのまま転送するだけでよい（Completed後のシグナルは無視される）。
type VisibilityMonitor struct {
	session VisibilitySession
}

// NewVisibilityMonitor はVisibilityMonitorを生成する。
func NewVisibilityMonitor(session VisibilitySession) *VisibilityMonitor {
	return &VisibilityMonitor{
		session: session,
	}
}

// OnHidden は画面が非表示になったシグナルを処理する。
func (m *VisibilityMonitor) OnHidden() {
	m.session.Pause()
}

// OnVisible は画面が表示に戻ったシグナルを処理する。
func (m *VisibilityMonitor) OnVisible() {
	m.session.Resume()
}

// OnInteraction はユーザー操作のシグナルを処理する。
// 操作があった時点で視聴中とみなし、停止中なら再開する。
func (m *VisibilityMonitor) OnInteraction() {
	m.session.Resume()
}
