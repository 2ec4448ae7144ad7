package model

import (
	"fmt"
	"time"
)

// AppState 是被测应用在某一时刻的快照：它当前提供什么。
// 纯数据 + 纯函数校验，不持有任何进程级可变状态。
type AppState struct {
	Mode PracticeMode `json:"mode"`
	// CurrentText 当前正在练习的短语。
	CurrentText string `json:"current_text"`
	// PhraseList 已加载的短语列表（有序）。
	PhraseList []string `json:"phrase_list"`
	// CurrentPhraseIndex 列表中的当前位置。
	CurrentPhraseIndex int `json:"current_phrase_index"`
	// HasRecording 用户是否已录音。
	HasRecording bool `json:"has_recording"`
	// HasResults 是否已有发音分析结果。
	HasResults bool `json:"has_results"`

	// DisplayedPhraseText 屏幕上实际展示的短语；nil 表示本步未观测。
	DisplayedPhraseText *string `json:"displayed_phrase_text,omitempty"`
	// CurrentScore 最近一次相似度得分；nil 表示没有结果。
	CurrentScore *float64 `json:"current_score,omitempty"`
	// RecognizedText ASR 对用户录音的转写；nil 表示没有结果。
	RecognizedText *string `json:"recognized_text,omitempty"`
	// Settings 宿主应用设置，用于复现问题。
	Settings map[string]any `json:"settings,omitempty"`

	// VisibleElements 当前可见的 UI 元素集合。
	VisibleElements map[UIElement]bool `json:"-"`
	// ActiveCapabilities 当前激活的应用能力集合（输入端口）。
	ActiveCapabilities map[AppCapability]bool `json:"-"`
}

// CheckInvariants 检查结构不变量，返回全部违反项（空切片即合法）。
//
// 契约：
// - 一次遍历收集所有违反项，绝不提前返回，保证单次检查能同时报出多个缺陷。
// - 纯函数，无副作用；违反项只是字符串证据，由上层决定如何记录。
func (a *AppState) CheckInvariants() []string {
	violations := []string{}

	// 不变量：有结果必然先有录音
	if a.HasResults && !a.HasRecording {
		violations = append(violations, "results exist but no recording (impossible state)")
	}

	// 不变量：guided_list 模式要求列表非空
	if a.Mode == ModeGuidedList && len(a.PhraseList) == 0 {
		violations = append(violations, "guided_list mode but empty phrase list")
	}

	// 不变量：列表非空时索引必须在界内（负数与越界分开报告）
	if len(a.PhraseList) > 0 {
		if a.CurrentPhraseIndex < 0 {
			violations = append(violations, fmt.Sprintf("negative phrase index: %d", a.CurrentPhraseIndex))
		} else if a.CurrentPhraseIndex >= len(a.PhraseList) {
			violations = append(violations, fmt.Sprintf("phrase index %d out of bounds (size=%d)", a.CurrentPhraseIndex, len(a.PhraseList)))
		}
	}

	// 不变量：有结果必须有得分
	if a.HasResults && a.CurrentScore == nil {
		violations = append(violations, "results exist but no score available")
	}

	// 不变量：guided_list 下展示的短语必须与列表当前项一致。
	// 注意 DisplayedPhraseText 为 nil 表示"本步未观测"，不算违反。
	if a.Mode == ModeGuidedList && len(a.PhraseList) > 0 &&
		a.CurrentPhraseIndex >= 0 && a.CurrentPhraseIndex < len(a.PhraseList) {
		expected := a.PhraseList[a.CurrentPhraseIndex]
		if a.DisplayedPhraseText != nil && *a.DisplayedPhraseText != expected {
			violations = append(violations, fmt.Sprintf(
				"displayed phrase %q doesn't match list phrase %q at index %d",
				*a.DisplayedPhraseText, expected, a.CurrentPhraseIndex))
		}
	}

	return violations
}

// PerceptionVerdict 是测试者对"界面是否符合预期"的三态判定。
// unknown 是一等状态（尚未验证），绝不能与 mismatch 混为一谈。
type PerceptionVerdict string

const (
	PerceptionUnknown  PerceptionVerdict = "unknown"
	PerceptionMatch    PerceptionVerdict = "match"
	PerceptionMismatch PerceptionVerdict = "mismatch"
)

// Known 返回判定是否已给出。零值与 unknown 等价。
func (v PerceptionVerdict) Known() bool {
	return v == PerceptionMatch || v == PerceptionMismatch
}

// UserState 是测试者在某一时刻的快照：想做什么、预期看到什么。
// 纯数据，不做任何计算。
type UserState struct {
	// ActiveIntents 当前激活的意图集合（输出端口）。
	ActiveIntents map[UserIntent]bool `json:"-"`
	// ExpectedVisible 测试者预期可见的 UI 元素集合（测试预言）。
	ExpectedVisible map[UIElement]bool `json:"-"`
	// Perception 本步的感知判定，经由 oracle 的验证入口恰好设置一次。
	Perception PerceptionVerdict `json:"perception"`
	// PerceptionNotes 测试者的自由备注。
	PerceptionNotes string `json:"perception_notes"`
}

// NewUserState 返回判定为 unknown 的空 UserState。
func NewUserState() UserState {
	return UserState{
		ActiveIntents:   map[UserIntent]bool{},
		ExpectedVisible: map[UIElement]bool{},
		Perception:      PerceptionUnknown,
	}
}

// BugKind 区分缺陷来源：自动不变量检查 vs 测试者上报。
type BugKind string

const (
	BugInvariantViolation BugKind = "invariant_violation"
	BugUIInconsistency    BugKind = "ui_inconsistency"
)

// Bug 是一条缺陷记录。追加之后不可变，任何后续操作不得丢失或重排。
type Bug struct {
	Step int     `json:"step"`
	Kind BugKind `json:"type"`
	// Violations 不变量违反证据（invariant_violation 专用）。
	Violations []string `json:"violations,omitempty"`
	// ExpectedVisible/ActualVisible 预期与实际可见元素（ui_inconsistency 专用，排序稳定）。
	ExpectedVisible []UIElement `json:"expected_visible,omitempty"`
	ActualVisible   []UIElement `json:"actual_visible,omitempty"`
	Notes           string      `json:"notes"`
}

// Interaction 是一步交互快照：一个 AppState + 一个 UserState 的组合，
// 以及由此推导出的端口配对结果与本步缺陷列表。
//
// 所有权契约：每次 transition 新建一份，oracle 独占持有；
// 追加进历史之后唯一允许的修改是对最新一条补记感知判定。
type Interaction struct {
	App  AppState  `json:"app_state"`
	User UserState `json:"user_state"`

	// Satisfied 已配对的交互：意图 → 与之互补的能力。
	Satisfied map[UserIntent]AppCapability `json:"-"`
	// Unsatisfied 没有配上对的意图集合。
	Unsatisfied map[UserIntent]bool `json:"-"`
	// UnusedCapabilities 没有被任何意图用到的能力集合。
	UnusedCapabilities map[AppCapability]bool `json:"-"`

	// Step 单调递增的步号，由历史长度分配，与时钟无关。
	Step int `json:"test_step"`
	// Bugs 本步的缺陷列表（自动 + 人工），只追加。
	Bugs []Bug `json:"-"`

	// Timestamp/SinceLast 仅作附加元数据，绝不用于排序判断。
	Timestamp time.Time     `json:"timestamp"`
	SinceLast time.Duration `json:"time_since_last_transition"`
}
