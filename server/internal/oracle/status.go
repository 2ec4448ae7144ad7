package oracle

import (
	"context"
	"fmt"

	"ccs-probe/server/internal/model"
)

// StatusReport 是当前步的结构化状态报告，供宿主侧边栏展示
// 与 watch 长连接推送。集合字段按名称排序。
type StatusReport struct {
	Step int                `json:"step"`
	Mode model.PracticeMode `json:"mode"`

	VisibleElements []model.UIElement  `json:"visible_elements"`
	ActiveIntents   []model.UserIntent `json:"active_intents"`

	Satisfied              [][2]string           `json:"satisfied"`
	UnsatisfiedUserIntents []model.UserIntent    `json:"unsatisfied_user_intents"`
	UnusedAppCapabilities  []model.AppCapability `json:"unused_app_capabilities"`

	Perception      model.PerceptionVerdict `json:"perception"`
	PerceptionNotes string                  `json:"perception_notes,omitempty"`

	BugsThisStep int `json:"bugs_this_step"`
	TotalBugs    int `json:"total_bugs"`
}

// Status 汇报最新一步的交互状况。历史为空返回 ErrNoCurrentStep。
func (o *Oracle) Status(ctx context.Context) (*StatusReport, error) {
	latest, err := o.history.Latest(ctx)
	if err != nil {
		return nil, ErrNoCurrentStep
	}
	bugs, err := o.Bugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect bugs: %w", err)
	}

	satisfied := make([][2]string, 0, len(latest.Satisfied))
	for _, intent := range model.SortedKeys(satisfiedSet(latest)) {
		satisfied = append(satisfied, [2]string{string(intent), string(latest.Satisfied[intent])})
	}

	return &StatusReport{
		Step:                   latest.Step,
		Mode:                   latest.App.Mode,
		VisibleElements:        model.SortedKeys(latest.App.VisibleElements),
		ActiveIntents:          model.SortedKeys(latest.User.ActiveIntents),
		Satisfied:              satisfied,
		UnsatisfiedUserIntents: model.SortedKeys(latest.Unsatisfied),
		UnusedAppCapabilities:  model.SortedKeys(latest.UnusedCapabilities),
		Perception:             latest.User.Perception,
		PerceptionNotes:        latest.User.PerceptionNotes,
		BugsThisStep:           len(latest.Bugs),
		TotalBugs:              len(bugs),
	}, nil
}
