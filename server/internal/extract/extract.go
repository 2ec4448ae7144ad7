package extract

import "ccs-probe/server/internal/model"

// RawSession 是宿主 UI 会话的原始键值快照，由宿主在每次界面操作后上报。
// 核心只认这个契约，不直接读宿主的可变会话状态。
type RawSession struct {
	// PhraseList/CurrentPhraseIndex 已加载的短语列表与当前位置。
	PhraseList         []string `json:"phrase_list"`
	CurrentPhraseIndex int      `json:"current_phrase_index"`
	// EditMode 是否处于编辑模式。
	EditMode bool `json:"edit_mode"`

	// PracticeTextFree/EditPhraseInput 两个输入框的当前内容。
	PracticeTextFree string `json:"practice_text_free"`
	EditPhraseInput  string `json:"edit_phrase_input"`

	// DisplayedText 屏幕上实际渲染的短语；nil 表示宿主本步没有上报。
	DisplayedText *string `json:"displayed_text,omitempty"`

	// LastResult 最近一次发音分析结果；nil 表示还没有结果。
	LastResult *LastResult `json:"last_result,omitempty"`

	// Settings 宿主设置，原样透传进 AppState 便于复现。
	Settings map[string]any `json:"settings,omitempty"`
}

// LastResult 是宿主上报的一次分析结果。
type LastResult struct {
	Similarity *float64 `json:"similarity"`
	Recognized *string  `json:"recognized"`
}

// Extractor 是唯一的入站依赖契约：把一份原始会话快照同步、
// 非阻塞地转换为一个 AppState。适配器自身不做合法性裁决——
// 它违约产出的坏状态会被核心的不变量检查抓住，检查因此也是
// 适配器正确性的闸门。
type Extractor interface {
	Extract(raw RawSession) model.AppState
}

// SessionExtractor 是默认实现：从键值快照推导模式、当前文本、
// 可见元素与激活能力。
//
// 注意：宿主的状态更新是异步的——录音时展示的短语和"检查发音"
// 时拿去比对的短语可能不一致（录完之后又导航/选择了）。这正是
// 快照式建模要捕捉的竞态，所以展示文本必须取宿主实际渲染值，
// 而不是由我们推断。
type SessionExtractor struct{}

// Extract 执行转换。
func (SessionExtractor) Extract(raw RawSession) model.AppState {
	mode := deriveMode(raw)

	app := model.AppState{
		Mode:               mode,
		PhraseList:         raw.PhraseList,
		CurrentPhraseIndex: raw.CurrentPhraseIndex,
		Settings:           raw.Settings,
	}

	// 当前文本按模式取源：自由输入/编辑框/列表当前项。
	switch mode {
	case model.ModeFreeText:
		app.CurrentText = raw.PracticeTextFree
	case model.ModeGuidedEdit:
		app.CurrentText = raw.EditPhraseInput
	case model.ModeGuidedList:
		if raw.CurrentPhraseIndex >= 0 && raw.CurrentPhraseIndex < len(raw.PhraseList) {
			app.CurrentText = raw.PhraseList[raw.CurrentPhraseIndex]
		}
	}

	// 展示文本：优先用宿主实际渲染值；没上报就退回推导值。
	if raw.DisplayedText != nil {
		app.DisplayedPhraseText = raw.DisplayedText
	} else if app.CurrentText != "" {
		text := app.CurrentText
		app.DisplayedPhraseText = &text
	}

	if raw.LastResult != nil {
		app.HasRecording = true
		app.HasResults = true
		app.CurrentScore = raw.LastResult.Similarity
		app.RecognizedText = raw.LastResult.Recognized
	}

	app.VisibleElements = inferVisibleElements(&app)
	app.ActiveCapabilities = inferCapabilities(&app)
	return app
}

// deriveMode 推导练习模式：有列表且在编辑 → guided_edit；
// 有列表 → guided_list；否则 free_text。
func deriveMode(raw RawSession) model.PracticeMode {
	if len(raw.PhraseList) > 0 {
		if raw.EditMode {
			return model.ModeGuidedEdit
		}
		return model.ModeGuidedList
	}
	return model.ModeFreeText
}

// inferVisibleElements 按状态推导应当可见的 UI 元素。
// 这张表编码了我们对宿主界面的预期。
func inferVisibleElements(app *model.AppState) map[model.UIElement]bool {
	visible := model.SetOf(
		// 上传组件始终可见
		model.ElemPhraseListUploader,
	)

	switch app.Mode {
	case model.ModeFreeText:
		visible[model.ElemTextInputFree] = true

	case model.ModeGuidedList:
		visible[model.ElemPhraseDisplayBold] = true
		visible[model.ElemPrevButton] = true
		visible[model.ElemNextButton] = true
		visible[model.ElemJumpSelector] = true
		visible[model.ElemProgressBar] = true
		visible[model.ElemEditButton] = true
		visible[model.ElemClearListButton] = true
		// 引导模式下练习区常驻：手动输入框 + 录音组件
		visible[model.ElemTextInputFree] = true
		visible[model.ElemAudioRecorder] = true

	case model.ModeGuidedEdit:
		visible[model.ElemTextInputEdit] = true
		visible[model.ElemBackToListButton] = true
		visible[model.ElemPrevButton] = true
		visible[model.ElemNextButton] = true
		visible[model.ElemJumpSelector] = true
		visible[model.ElemProgressBar] = true
	}

	if app.CurrentText != "" {
		visible[model.ElemAudioPlayerTargetPractice] = true
		visible[model.ElemAudioRecorder] = true
	}
	if app.HasRecording {
		visible[model.ElemAudioPlayerUserLive] = true
		visible[model.ElemCheckButton] = true
		visible[model.ElemClearButton] = true
	}
	if app.HasResults {
		visible[model.ElemResultsPanel] = true
		visible[model.ElemAudioPlayerTargetResults] = true
		visible[model.ElemAudioPlayerUserResults] = true
		visible[model.ElemAudioPlayerRecognizedTTS] = true
	}

	return visible
}

// inferCapabilities 按状态推导应用应当提供的能力。
func inferCapabilities(app *model.AppState) map[model.AppCapability]bool {
	caps := model.SetOf(
		// 上传始终可用
		model.CapAcceptFileUpload,
	)

	switch app.Mode {
	case model.ModeFreeText:
		caps[model.CapAcceptTextInput] = true

	case model.ModeGuidedList:
		caps[model.CapAcceptNavigationPrev] = true
		caps[model.CapAcceptNavigationNext] = true
		if len(app.PhraseList) > 1 {
			caps[model.CapAcceptJumpToPhrase] = true
		}
		caps[model.CapAcceptModeToggle] = true
		caps[model.CapAcceptClearList] = true
		caps[model.CapAcceptTextInput] = true
		caps[model.CapAcceptAudioRecording] = true

	case model.ModeGuidedEdit:
		caps[model.CapAcceptTextInput] = true
		caps[model.CapAcceptModeToggle] = true
	}

	if app.CurrentText != "" {
		caps[model.CapProvideTargetAudioPractice] = true
		caps[model.CapAcceptAudioRecording] = true
	}
	if app.HasRecording {
		caps[model.CapProvideUserAudioLive] = true
		caps[model.CapAcceptClearRecording] = true
	}
	if app.HasResults {
		caps[model.CapProvideAnalysisResults] = true
		caps[model.CapProvideTargetAudioResults] = true
		caps[model.CapProvideUserAudioResults] = true
		caps[model.CapProvideRecognizedAudio] = true
		caps[model.CapProvidePhonemeAudioCorrect] = true
		caps[model.CapProvidePhonemeAudioUser] = true
	}

	return caps
}
