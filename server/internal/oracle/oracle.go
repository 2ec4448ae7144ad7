package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ccs-probe/server/internal/history"
	"ccs-probe/server/internal/model"
)

var (
	// ErrNoCurrentStep 表示历史为空，还没有可验证/可汇报的步。
	ErrNoCurrentStep = errors.New("no current step")
	// ErrAlreadyValidated 表示本步判定已给出。每步恰好验证一次。
	ErrAlreadyValidated = errors.New("current step already validated")
)

// Oracle 驱动一次测试运行：维护只追加的交互历史、执行端口配对
// 与不变量检查、汇总缺陷、产出可审计的会话文档。
//
// 职责与契约：
// - append-first：每次 transition 新建快照先配对、先检查，再入历史。
// - 决策集中：自动缺陷（不变量）与人工缺陷（感知判定）都在这里落账，
//   缺陷一经追加不可变、不重排。
// - 单写者：一个 Oracle 服务一个测试者、一条历史；并发运行各建实例，
//   核心自身不加锁（服务层用互斥量把 HTTP 并发串行化）。
type Oracle struct {
	config  map[string]any
	history history.Store
	now     func() time.Time
}

// New 创建一次测试运行的 oracle。config 是自由格式的运行配置，
// 原样写进导出文档；now 可注入固定时钟便于测试。
func New(config map[string]any, hist history.Store, now func() time.Time) *Oracle {
	if config == nil {
		config = map[string]any{}
	}
	if now == nil {
		now = time.Now
	}
	return &Oracle{
		config:  config,
		history: hist,
		now:     now,
	}
}

// Initialize 用给定模式建立首条历史记录（空 UserState）。
// 种子记录不做不变量检查：guided_list 运行完全可以在列表加载前开始，
// 检查从第一次真正的 transition 起生效。
func (o *Oracle) Initialize(ctx context.Context, mode model.PracticeMode) (*model.Interaction, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown practice mode %q", mode)
	}
	step, err := o.history.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	inter := &model.Interaction{
		App: model.AppState{
			Mode:               mode,
			VisibleElements:    map[model.UIElement]bool{},
			ActiveCapabilities: map[model.AppCapability]bool{},
		},
		User:      model.NewUserState(),
		Step:      step,
		Timestamp: o.now(),
	}
	Match(inter)

	if err := o.history.Append(ctx, inter); err != nil {
		return nil, fmt.Errorf("append step %d: %w", step, err)
	}
	return inter, nil
}

// Transition 记录一次状态转移。宿主应在每次影响界面的操作之后调用。
//
// 副作用说明：
// - 步号 = 当前历史长度，与时钟无关；时间戳只是附加元数据。
// - 端口配对与不变量检查都在入账前完成；不变量违反不会中断运行
//   （中断会终止测试者的会话、销毁证据），而是变成一条
//   invariant_violation 缺陷随快照入历史。
func (o *Oracle) Transition(ctx context.Context, app model.AppState, user model.UserState) (*model.Interaction, error) {
	step, err := o.history.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	now := o.now()
	var sinceLast time.Duration
	if step > 0 {
		prev, err := o.history.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("load previous step: %w", err)
		}
		sinceLast = now.Sub(prev.Timestamp)
	}

	normalizeApp(&app)
	normalizeUser(&user)

	inter := &model.Interaction{
		App:       app,
		User:      user,
		Step:      step,
		Timestamp: now,
		SinceLast: sinceLast,
	}

	Match(inter)

	// 不变量检查独立于端口配对：结构坏了也照常入账，留证据。
	if violations := inter.App.CheckInvariants(); len(violations) > 0 {
		inter.Bugs = append(inter.Bugs, model.Bug{
			Step:       step,
			Kind:       model.BugInvariantViolation,
			Violations: violations,
			Notes:      "automated invariant check",
		})
	}

	if err := o.history.Append(ctx, inter); err != nil {
		return nil, fmt.Errorf("append step %d: %w", step, err)
	}
	return inter, nil
}

// UserValidation 是追加之后唯一的修改路径：把测试者的判定补记到
// 最新一条历史上，并对其重跑一致性检查。
// 每步只允许验证一次；unknown 不是错误，但也不能重复覆盖已有判定。
func (o *Oracle) UserValidation(ctx context.Context, matches bool, notes string) (ConsistencyResult, error) {
	latest, err := o.history.Latest(ctx)
	if err != nil {
		if errors.Is(err, history.ErrEmpty) {
			return "", ErrNoCurrentStep
		}
		return "", fmt.Errorf("load current step: %w", err)
	}
	if latest.User.Perception.Known() {
		return "", ErrAlreadyValidated
	}

	if matches {
		latest.User.Perception = model.PerceptionMatch
	} else {
		latest.User.Perception = model.PerceptionMismatch
	}
	latest.User.PerceptionNotes = notes

	return CheckConsistency(latest), nil
}

// Bugs 按步号顺序拼接全历史的缺陷列表。确定性、可重复。
func (o *Oracle) Bugs(ctx context.Context) ([]model.Bug, error) {
	entries, err := o.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	bugs := []model.Bug{}
	for _, inter := range entries {
		bugs = append(bugs, inter.Bugs...)
	}
	return bugs, nil
}

// Steps 返回当前历史长度。
func (o *Oracle) Steps(ctx context.Context) (int, error) {
	return o.history.Count(ctx)
}

// normalizeApp 把 nil 集合补成空集合，让后续集合运算不用到处判 nil。
func normalizeApp(app *model.AppState) {
	if app.VisibleElements == nil {
		app.VisibleElements = map[model.UIElement]bool{}
	}
	if app.ActiveCapabilities == nil {
		app.ActiveCapabilities = map[model.AppCapability]bool{}
	}
}

func normalizeUser(user *model.UserState) {
	if user.ActiveIntents == nil {
		user.ActiveIntents = map[model.UserIntent]bool{}
	}
	if user.ExpectedVisible == nil {
		user.ExpectedVisible = map[model.UIElement]bool{}
	}
	if user.Perception == "" {
		user.Perception = model.PerceptionUnknown
	}
}
