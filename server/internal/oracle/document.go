package oracle

import (
	"context"
	"fmt"
	"time"

	"ccs-probe/server/internal/model"
)

// Document 是一次测试运行的完整持久化文档。
// 字段名是给下游分析工具的稳定契约，不要改名。
type Document struct {
	TestConfig   map[string]any  `json:"test_config"`
	TotalSteps   int             `json:"total_steps"`
	BugsFound    []model.Bug     `json:"bugs_found"`
	StateHistory []StateSnapshot `json:"state_history"`
}

// StateSnapshot 是文档里的一步快照。集合字段一律按名称排序导出，
// 保证相同历史得到逐字节相同的文档。
type StateSnapshot struct {
	TestStep      int       `json:"test_step"`
	Timestamp     time.Time `json:"timestamp"`
	TimeSinceLast float64   `json:"time_since_last_transition"`

	AppState  AppStateDoc  `json:"app_state"`
	UserState UserStateDoc `json:"user_state"`

	// SatisfiedInteractions 已配对交互，[意图, 能力] 二元组，按意图排序。
	SatisfiedInteractions  [][2]string           `json:"satisfied_interactions"`
	UnsatisfiedUserIntents []model.UserIntent    `json:"unsatisfied_user_intents"`
	UnusedAppCapabilities  []model.AppCapability `json:"unused_app_capabilities"`

	BugsFoundCount      int      `json:"bugs_found_count"`
	InvariantViolations []string `json:"invariant_violations"`
}

// AppStateDoc 是 AppState 的文档形态。
type AppStateDoc struct {
	Mode                model.PracticeMode    `json:"mode"`
	CurrentText         string                `json:"current_text"`
	PhraseListSize      int                   `json:"phrase_list_size"`
	CurrentPhraseIndex  int                   `json:"current_phrase_index"`
	HasRecording        bool                  `json:"has_recording"`
	HasResults          bool                  `json:"has_results"`
	DisplayedPhraseText *string               `json:"displayed_phrase_text"`
	CurrentScore        *float64              `json:"current_score"`
	RecognizedText      *string               `json:"recognized_text"`
	Settings            map[string]any        `json:"settings"`
	VisibleElements     []model.UIElement     `json:"visible_elements"`
	ActiveCapabilities  []model.AppCapability `json:"active_capabilities"`
}

// UserStateDoc 是 UserState 的文档形态。
type UserStateDoc struct {
	ActiveIntents   []model.UserIntent      `json:"active_intents"`
	ExpectedVisible []model.UIElement       `json:"expected_visible"`
	Perception      model.PerceptionVerdict `json:"perception"`
	PerceptionNotes string                  `json:"perception_notes"`
}

// Document 把整条历史固化为持久化文档。
// 只读操作：失败或之后的写盘失败都不影响内存里的历史，可随时重试。
func (o *Oracle) Document(ctx context.Context) (*Document, error) {
	entries, err := o.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	doc := &Document{
		TestConfig:   o.config,
		TotalSteps:   len(entries),
		BugsFound:    []model.Bug{},
		StateHistory: make([]StateSnapshot, 0, len(entries)),
	}
	for _, inter := range entries {
		doc.BugsFound = append(doc.BugsFound, inter.Bugs...)
		doc.StateHistory = append(doc.StateHistory, snapshotDoc(inter))
	}
	return doc, nil
}

func snapshotDoc(inter *model.Interaction) StateSnapshot {
	satisfied := make([][2]string, 0, len(inter.Satisfied))
	for _, intent := range model.SortedKeys(satisfiedSet(inter)) {
		satisfied = append(satisfied, [2]string{string(intent), string(inter.Satisfied[intent])})
	}

	return StateSnapshot{
		TestStep:      inter.Step,
		Timestamp:     inter.Timestamp,
		TimeSinceLast: inter.SinceLast.Seconds(),
		AppState: AppStateDoc{
			Mode:                inter.App.Mode,
			CurrentText:         inter.App.CurrentText,
			PhraseListSize:      len(inter.App.PhraseList),
			CurrentPhraseIndex:  inter.App.CurrentPhraseIndex,
			HasRecording:        inter.App.HasRecording,
			HasResults:          inter.App.HasResults,
			DisplayedPhraseText: inter.App.DisplayedPhraseText,
			CurrentScore:        inter.App.CurrentScore,
			RecognizedText:      inter.App.RecognizedText,
			Settings:            inter.App.Settings,
			VisibleElements:     model.SortedKeys(inter.App.VisibleElements),
			ActiveCapabilities:  model.SortedKeys(inter.App.ActiveCapabilities),
		},
		UserState: UserStateDoc{
			ActiveIntents:   model.SortedKeys(inter.User.ActiveIntents),
			ExpectedVisible: model.SortedKeys(inter.User.ExpectedVisible),
			Perception:      inter.User.Perception,
			PerceptionNotes: inter.User.PerceptionNotes,
		},
		SatisfiedInteractions:  satisfied,
		UnsatisfiedUserIntents: model.SortedKeys(inter.Unsatisfied),
		UnusedAppCapabilities:  model.SortedKeys(inter.UnusedCapabilities),
		BugsFoundCount:         len(inter.Bugs),
		InvariantViolations:    inter.App.CheckInvariants(),
	}
}

func satisfiedSet(inter *model.Interaction) map[model.UserIntent]bool {
	set := make(map[model.UserIntent]bool, len(inter.Satisfied))
	for intent := range inter.Satisfied {
		set[intent] = true
	}
	return set
}
