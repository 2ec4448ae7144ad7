package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"ccs-probe/server/internal/history"
	"ccs-probe/server/internal/model"
)

// fixedClock 返回恒定时刻，保证测试与真实时钟无关。
func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestOracle() *Oracle {
	return New(map[string]any{"app": "pronunciation_practice"}, history.NewInMemoryStore(), fixedClock())
}

// TestInitializeSeedsWithoutInvariantCheck 验证初始化种子记录的语义。
// 场景：guided_list 运行在列表加载前初始化。种子记录步号为 0、
// 判定为 unknown，且不做不变量检查（此时列表为空不算缺陷）。
func TestInitializeSeedsWithoutInvariantCheck(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	inter, err := o.Initialize(ctx, model.ModeGuidedList)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if inter.Step != 0 {
		t.Fatalf("expected seed step 0, got %d", inter.Step)
	}
	if inter.User.Perception != model.PerceptionUnknown {
		t.Fatalf("expected unknown perception, got %s", inter.User.Perception)
	}
	if len(inter.Bugs) != 0 {
		t.Fatalf("seed entry must not carry bugs, got %v", inter.Bugs)
	}

	bugs, err := o.Bugs(ctx)
	if err != nil {
		t.Fatalf("Bugs: %v", err)
	}
	if len(bugs) != 0 {
		t.Fatalf("expected empty bug list after seed, got %v", bugs)
	}
}

// TestInitializeRejectsUnknownMode 验证非法模式被拒绝且不污染历史。
func TestInitializeRejectsUnknownMode(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	if _, err := o.Initialize(ctx, model.PracticeMode("karaoke")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if steps, _ := o.Steps(ctx); steps != 0 {
		t.Fatalf("history must stay empty after rejected init, got %d steps", steps)
	}
}

// TestTransitionStepsAreClockIndependent 验证步号只由历史长度决定。
// 场景：固定时钟下连续两次 transition，时间差为零，
// 步号仍然是 0 和 1，顺序不丢。
func TestTransitionStepsAreClockIndependent(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	app := model.AppState{
		Mode:               model.ModeFreeText,
		ActiveCapabilities: model.SetOf(model.CapAcceptTextInput),
	}
	user := model.UserState{
		ActiveIntents: model.SetOf(model.IntentEnterText),
	}

	first, err := o.Transition(ctx, app, user)
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}
	second, err := o.Transition(ctx, app, user)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}

	if first.Step != 0 || second.Step != 1 {
		t.Fatalf("expected steps 0 and 1, got %d and %d", first.Step, second.Step)
	}
	if second.SinceLast != 0 {
		t.Fatalf("fixed clock must give zero elapsed, got %v", second.SinceLast)
	}
	if steps, _ := o.Steps(ctx); steps != 2 {
		t.Fatalf("expected 2 recorded steps, got %d", steps)
	}
}

// TestTransitionRecordsInvariantBug 验证不变量违反自动落账而不中断。
// 场景：guided_list 下展示短语与列表当前项不符。transition 照常成功，
// 快照携带一条 invariant_violation 缺陷，步号正确。
func TestTransitionRecordsInvariantBug(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	displayed := "goodbye"
	app := model.AppState{
		Mode:                model.ModeGuidedList,
		PhraseList:          []string{"hello", "world"},
		CurrentPhraseIndex:  0,
		CurrentText:         "hello",
		DisplayedPhraseText: &displayed,
	}

	inter, err := o.Transition(ctx, app, model.NewUserState())
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if len(inter.Bugs) != 1 {
		t.Fatalf("expected exactly one bug, got %d", len(inter.Bugs))
	}
	bug := inter.Bugs[0]
	if bug.Kind != model.BugInvariantViolation {
		t.Fatalf("expected invariant_violation, got %s", bug.Kind)
	}
	if bug.Step != inter.Step {
		t.Fatalf("bug step %d does not match snapshot step %d", bug.Step, inter.Step)
	}
	if len(bug.Violations) != 1 {
		t.Fatalf("expected one violation recorded, got %v", bug.Violations)
	}
}

// TestTransitionNormalizesNilSets 验证 nil 集合在入账前被补成空集合。
func TestTransitionNormalizesNilSets(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	inter, err := o.Transition(ctx, model.AppState{Mode: model.ModeFreeText}, model.UserState{})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if inter.App.VisibleElements == nil || inter.App.ActiveCapabilities == nil {
		t.Fatal("app sets must be non-nil after transition")
	}
	if inter.User.ActiveIntents == nil || inter.User.ExpectedVisible == nil {
		t.Fatal("user sets must be non-nil after transition")
	}
	if inter.User.Perception != model.PerceptionUnknown {
		t.Fatalf("empty verdict must normalize to unknown, got %q", inter.User.Perception)
	}
}

// TestUserValidationMismatchAddsOneBug 验证人工判定不一致的落账行为。
// 场景：transition 之后测试者上报不一致并附备注。缺陷数恰好加一，
// 新缺陷是 ui_inconsistency、带备注且步号指向当前步。
func TestUserValidationMismatchAddsOneBug(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	app := model.AppState{
		Mode:            model.ModeFreeText,
		VisibleElements: model.SetOf(model.ElemTextInputFree),
	}
	user := model.NewUserState()
	user.ExpectedVisible = model.SetOf(model.ElemTextInputFree, model.ElemPhraseDisplayBold)

	if _, err := o.Transition(ctx, app, user); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	before, _ := o.Bugs(ctx)

	result, err := o.UserValidation(ctx, false, "phrase not shown in bold")
	if err != nil {
		t.Fatalf("UserValidation: %v", err)
	}
	if result != ConsistencyInconsistent {
		t.Fatalf("expected inconsistent, got %s", result)
	}

	after, _ := o.Bugs(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected bug count to grow by one, %d -> %d", len(before), len(after))
	}
	bug := after[len(after)-1]
	if bug.Kind != model.BugUIInconsistency {
		t.Fatalf("expected ui_inconsistency, got %s", bug.Kind)
	}
	if bug.Step != 0 {
		t.Fatalf("expected bug at step 0, got %d", bug.Step)
	}
	if bug.Notes != "phrase not shown in bold" {
		t.Fatalf("expected tester note preserved, got %q", bug.Notes)
	}
}

// TestUserValidationMatchAddsNothing 验证判定一致时不产生缺陷。
func TestUserValidationMatchAddsNothing(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	if _, err := o.Transition(ctx, model.AppState{Mode: model.ModeFreeText}, model.NewUserState()); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	result, err := o.UserValidation(ctx, true, "")
	if err != nil {
		t.Fatalf("UserValidation: %v", err)
	}
	if result != ConsistencyConsistent {
		t.Fatalf("expected consistent, got %s", result)
	}
	bugs, _ := o.Bugs(ctx)
	if len(bugs) != 0 {
		t.Fatalf("expected no bugs on match, got %v", bugs)
	}
}

// TestUserValidationOncePerStep 验证每步恰好验证一次。
// 场景：重复验证同一步返回 ErrAlreadyValidated，缺陷数不变。
func TestUserValidationOncePerStep(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	if _, err := o.Transition(ctx, model.AppState{Mode: model.ModeFreeText}, model.NewUserState()); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if _, err := o.UserValidation(ctx, true, ""); err != nil {
		t.Fatalf("first validation: %v", err)
	}

	if _, err := o.UserValidation(ctx, false, "second opinion"); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("expected ErrAlreadyValidated, got %v", err)
	}
	bugs, _ := o.Bugs(ctx)
	if len(bugs) != 0 {
		t.Fatalf("rejected validation must not record bugs, got %v", bugs)
	}
}

// TestUserValidationEmptyHistory 验证空历史上的验证返回 ErrNoCurrentStep。
func TestUserValidationEmptyHistory(t *testing.T) {
	o := newTestOracle()
	if _, err := o.UserValidation(context.Background(), true, ""); !errors.Is(err, ErrNoCurrentStep) {
		t.Fatalf("expected ErrNoCurrentStep, got %v", err)
	}
}

// TestBugsOrderedByStep 验证缺陷列表按步号非降序拼接，自动与人工混排。
func TestBugsOrderedByStep(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	// 步 0：不变量违反（guided_list 空列表）
	if _, err := o.Transition(ctx, model.AppState{Mode: model.ModeGuidedList}, model.NewUserState()); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	// 步 1：结构合法，人工上报不一致
	if _, err := o.Transition(ctx, model.AppState{Mode: model.ModeFreeText}, model.NewUserState()); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if _, err := o.UserValidation(ctx, false, "missing recorder"); err != nil {
		t.Fatalf("validation: %v", err)
	}

	bugs, err := o.Bugs(ctx)
	if err != nil {
		t.Fatalf("Bugs: %v", err)
	}
	if len(bugs) != 2 {
		t.Fatalf("expected 2 bugs, got %d", len(bugs))
	}
	if bugs[0].Kind != model.BugInvariantViolation || bugs[0].Step != 0 {
		t.Fatalf("expected invariant bug at step 0 first, got %+v", bugs[0])
	}
	if bugs[1].Kind != model.BugUIInconsistency || bugs[1].Step != 1 {
		t.Fatalf("expected ui bug at step 1 second, got %+v", bugs[1])
	}
}

// TestStatusReflectsLatestStep 验证状态报告取最新一步并汇总全局缺陷数。
func TestStatusReflectsLatestStep(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	if _, err := o.Status(ctx); !errors.Is(err, ErrNoCurrentStep) {
		t.Fatal("expected ErrNoCurrentStep on empty history")
	}

	app := model.AppState{
		Mode:               model.ModeFreeText,
		VisibleElements:    model.SetOf(model.ElemTextInputFree, model.ElemAudioRecorder),
		ActiveCapabilities: model.SetOf(model.CapAcceptTextInput, model.CapAcceptAudioRecording),
	}
	user := model.NewUserState()
	user.ActiveIntents = model.SetOf(model.IntentEnterText)

	if _, err := o.Transition(ctx, app, user); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	status, err := o.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Step != 0 || status.Mode != model.ModeFreeText {
		t.Fatalf("unexpected step/mode: %d/%s", status.Step, status.Mode)
	}
	if len(status.Satisfied) != 1 || status.Satisfied[0] != [2]string{"want_enter_text", "accept_text_input"} {
		t.Fatalf("unexpected satisfied pairs: %v", status.Satisfied)
	}
	if len(status.UnusedAppCapabilities) != 1 || status.UnusedAppCapabilities[0] != model.CapAcceptAudioRecording {
		t.Fatalf("unexpected unused capabilities: %v", status.UnusedAppCapabilities)
	}
	if status.Perception != model.PerceptionUnknown {
		t.Fatalf("expected unknown perception, got %s", status.Perception)
	}
	if status.BugsThisStep != 0 || status.TotalBugs != 0 {
		t.Fatalf("expected zero bugs, got %d/%d", status.BugsThisStep, status.TotalBugs)
	}
}

// TestDocumentShape 验证导出文档的结构与确定性。
// 场景：两步历史（一步含缺陷），文档的步数、缺陷汇总、排序集合
// 与逐步快照都要与历史一致。
func TestDocumentShape(t *testing.T) {
	ctx := context.Background()
	o := newTestOracle()

	app := model.AppState{
		Mode:               model.ModeGuidedList,
		PhraseList:         []string{"hello", "world"},
		CurrentPhraseIndex: 1,
		CurrentText:        "world",
		VisibleElements:    model.SetOf(model.ElemPhraseDisplayBold, model.ElemAudioRecorder),
		ActiveCapabilities: model.SetOf(model.CapAcceptAudioRecording, model.CapAcceptNavigationPrev),
	}
	user := model.NewUserState()
	user.ActiveIntents = model.SetOf(model.IntentRecordAudio)

	if _, err := o.Transition(ctx, app, user); err != nil {
		t.Fatalf("step 0: %v", err)
	}

	bad := app
	bad.CurrentPhraseIndex = 5
	if _, err := o.Transition(ctx, bad, model.NewUserState()); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	doc, err := o.Document(ctx)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	if doc.TotalSteps != 2 {
		t.Fatalf("expected total_steps 2, got %d", doc.TotalSteps)
	}
	if doc.TestConfig["app"] != "pronunciation_practice" {
		t.Fatalf("expected run config carried into document, got %v", doc.TestConfig)
	}
	if len(doc.BugsFound) != 1 || doc.BugsFound[0].Step != 1 {
		t.Fatalf("expected one bug from step 1, got %v", doc.BugsFound)
	}
	if len(doc.StateHistory) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(doc.StateHistory))
	}

	snap := doc.StateHistory[0]
	if snap.TestStep != 0 || snap.TimeSinceLast != 0 {
		t.Fatalf("unexpected first snapshot metadata: %+v", snap)
	}
	if snap.AppState.PhraseListSize != 2 || snap.AppState.CurrentPhraseIndex != 1 {
		t.Fatalf("unexpected app doc: %+v", snap.AppState)
	}
	// 集合字段按名称排序
	wantVisible := []model.UIElement{model.ElemAudioRecorder, model.ElemPhraseDisplayBold}
	if len(snap.AppState.VisibleElements) != 2 ||
		snap.AppState.VisibleElements[0] != wantVisible[0] ||
		snap.AppState.VisibleElements[1] != wantVisible[1] {
		t.Fatalf("visible elements not sorted: %v", snap.AppState.VisibleElements)
	}
	if len(snap.SatisfiedInteractions) != 1 ||
		snap.SatisfiedInteractions[0] != [2]string{"want_record_audio", "accept_audio_recording"} {
		t.Fatalf("unexpected satisfied interactions: %v", snap.SatisfiedInteractions)
	}
	if len(snap.UnusedAppCapabilities) != 1 || snap.UnusedAppCapabilities[0] != model.CapAcceptNavigationPrev {
		t.Fatalf("unexpected unused capabilities: %v", snap.UnusedAppCapabilities)
	}
	if snap.BugsFoundCount != 0 || len(snap.InvariantViolations) != 0 {
		t.Fatalf("first snapshot should be clean: %+v", snap)
	}

	second := doc.StateHistory[1]
	if second.BugsFoundCount != 1 || len(second.InvariantViolations) != 1 {
		t.Fatalf("second snapshot must carry the violation: %+v", second)
	}
}
