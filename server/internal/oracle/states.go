package oracle

import "ccs-probe/server/internal/model"

// BuildFreeTextState 构造自由输入模式的参考 AppState。
// 测试与宿主都可以拿它当"界面应该长这样"的基线。
func BuildFreeTextState() model.AppState {
	return model.AppState{
		Mode: model.ModeFreeText,
		VisibleElements: model.SetOf(
			model.ElemTextInputFree,
			model.ElemPhraseListUploader,
		),
		ActiveCapabilities: model.SetOf(
			model.CapAcceptTextInput,
			model.CapAcceptFileUpload,
		),
	}
}

// BuildGuidedListState 构造列表引导模式的参考 AppState。
func BuildGuidedListState(phrases []string, currentIdx int) model.AppState {
	state := model.AppState{
		Mode:               model.ModeGuidedList,
		PhraseList:         phrases,
		CurrentPhraseIndex: currentIdx,
		VisibleElements: model.SetOf(
			model.ElemPhraseDisplayBold,
			model.ElemPrevButton,
			model.ElemNextButton,
			model.ElemJumpSelector,
			model.ElemEditButton,
			model.ElemProgressBar,
			model.ElemPhraseListUploader,
		),
		ActiveCapabilities: model.SetOf(
			model.CapAcceptNavigationPrev,
			model.CapAcceptNavigationNext,
			model.CapAcceptJumpToPhrase,
			model.CapAcceptModeToggle,
			model.CapAcceptFileUpload,
		),
	}
	if currentIdx >= 0 && currentIdx < len(phrases) {
		state.CurrentText = phrases[currentIdx]
	}
	return state
}
