package model

// PracticeMode 表示发音练习的顶层模式。
// 封闭枚举：所有生产者/消费者都从这里取值，不允许运行时扩展。
type PracticeMode string

const (
	// ModeFreeText 自由输入模式：用户随意输入任何短语练习。
	ModeFreeText PracticeMode = "free_text"
	// ModeGuidedList 列表引导模式：用户在已加载的短语列表中逐条练习。
	ModeGuidedList PracticeMode = "guided_list"
	// ModeGuidedEdit 编辑模式：用户修改列表中的当前短语后再练习。
	ModeGuidedEdit PracticeMode = "guided_edit"
)

// AllPracticeModes 返回全部练习模式。
func AllPracticeModes() []PracticeMode {
	return []PracticeMode{ModeFreeText, ModeGuidedList, ModeGuidedEdit}
}

// Valid 检查模式是否属于封闭枚举。
func (m PracticeMode) Valid() bool {
	switch m {
	case ModeFreeText, ModeGuidedList, ModeGuidedEdit:
		return true
	}
	return false
}

// UIElement 表示宿主界面上可见/不可见的一个 UI 元素。
// 新增界面元素时必须同步登记在这里；若该元素有宿主侧效果，
// 还要同步登记对应的 AppCapability。
type UIElement string

const (
	// 输入类元素
	ElemTextInputFree UIElement = "text_input_free" // 自由输入框
	ElemTextInputEdit UIElement = "text_input_edit" // 编辑模式输入框
	ElemAudioRecorder UIElement = "audio_recorder"  // 录音组件

	// 展示类元素
	ElemPhraseDisplayBold UIElement = "phrase_display_bold" // 当前短语（加粗大字）
	ElemResultsPanel      UIElement = "results_panel"       // 发音分析结果面板

	// 音频播放器——按用途区分，不能混用
	ElemAudioPlayerTargetPractice UIElement = "audio_player_target_practice" // 练习区目标发音
	ElemAudioPlayerUserLive       UIElement = "audio_player_user_live"       // 刚录完的用户录音
	ElemAudioPlayerTargetResults  UIElement = "audio_player_target_results"  // 结果面板目标发音
	ElemAudioPlayerUserResults    UIElement = "audio_player_user_results"    // 结果面板用户录音
	ElemAudioPlayerRecognizedTTS  UIElement = "audio_player_recognized_tts"  // 识别文本的 TTS
	ElemAudioPlayerPhonemeCorrect UIElement = "audio_player_phoneme_correct" // 标准音素发音（按需）
	ElemAudioPlayerPhonemeUser    UIElement = "audio_player_phoneme_user"    // 用户音素发音（按需）

	// 导航类元素
	ElemPhraseListUploader UIElement = "phrase_list_uploader" // 短语列表上传组件
	ElemPrevButton         UIElement = "prev_button"          // 上一条
	ElemNextButton         UIElement = "next_button"          // 下一条
	ElemJumpSelector       UIElement = "jump_selector"        // 跳转下拉框
	ElemProgressBar        UIElement = "progress_bar"         // 进度指示

	// 控制按钮
	ElemCheckButton      UIElement = "check_button"        // 检查发音
	ElemClearButton      UIElement = "clear_button"        // 清除录音
	ElemEditButton       UIElement = "edit_button"         // 进入编辑模式
	ElemBackToListButton UIElement = "back_to_list_button" // 返回列表模式
	ElemClearListButton  UIElement = "clear_list_button"   // 清空短语列表
)

// AllUIElements 返回全部 UI 元素（顺序固定，便于测试做完备性断言）。
func AllUIElements() []UIElement {
	return []UIElement{
		ElemTextInputFree, ElemTextInputEdit, ElemAudioRecorder,
		ElemPhraseDisplayBold, ElemResultsPanel,
		ElemAudioPlayerTargetPractice, ElemAudioPlayerUserLive,
		ElemAudioPlayerTargetResults, ElemAudioPlayerUserResults,
		ElemAudioPlayerRecognizedTTS, ElemAudioPlayerPhonemeCorrect,
		ElemAudioPlayerPhonemeUser,
		ElemPhraseListUploader, ElemPrevButton, ElemNextButton,
		ElemJumpSelector, ElemProgressBar,
		ElemCheckButton, ElemClearButton, ElemEditButton,
		ElemBackToListButton, ElemClearListButton,
	}
}

var uiElements = func() map[UIElement]bool {
	set := make(map[UIElement]bool)
	for _, e := range AllUIElements() {
		set[e] = true
	}
	return set
}()

// Valid 检查元素是否属于封闭枚举。
func (e UIElement) Valid() bool {
	return uiElements[e]
}

// AppCapability 表示应用当前能接受/提供的一种能力（CCS 里的输入端口）。
type AppCapability string

const (
	CapAcceptTextInput      AppCapability = "accept_text_input"
	CapAcceptAudioRecording AppCapability = "accept_audio_recording"
	CapAcceptFileUpload     AppCapability = "accept_file_upload"
	CapAcceptNavigationPrev AppCapability = "accept_navigation_prev"
	CapAcceptNavigationNext AppCapability = "accept_navigation_next"
	CapAcceptJumpToPhrase   AppCapability = "accept_jump_to_phrase"
	CapAcceptModeToggle     AppCapability = "accept_mode_toggle"
	CapAcceptClearRecording AppCapability = "accept_clear_recording"
	CapAcceptClearList      AppCapability = "accept_clear_list"

	// 音频提供能力——与播放器元素一一对应
	CapProvideTargetAudioPractice AppCapability = "provide_target_audio_practice"
	CapProvideUserAudioLive       AppCapability = "provide_user_audio_live"
	CapProvideTargetAudioResults  AppCapability = "provide_target_audio_results"
	CapProvideUserAudioResults    AppCapability = "provide_user_audio_results"
	CapProvideRecognizedAudio     AppCapability = "provide_recognized_audio"
	CapProvidePhonemeAudioCorrect AppCapability = "provide_phoneme_audio_correct"
	CapProvidePhonemeAudioUser    AppCapability = "provide_phoneme_audio_user"
	CapProvideAnalysisResults     AppCapability = "provide_analysis_results"
)

// AllAppCapabilities 返回全部应用能力。
func AllAppCapabilities() []AppCapability {
	return []AppCapability{
		CapAcceptTextInput, CapAcceptAudioRecording, CapAcceptFileUpload,
		CapAcceptNavigationPrev, CapAcceptNavigationNext, CapAcceptJumpToPhrase,
		CapAcceptModeToggle, CapAcceptClearRecording, CapAcceptClearList,
		CapProvideTargetAudioPractice, CapProvideUserAudioLive,
		CapProvideTargetAudioResults, CapProvideUserAudioResults,
		CapProvideRecognizedAudio, CapProvidePhonemeAudioCorrect,
		CapProvidePhonemeAudioUser, CapProvideAnalysisResults,
	}
}

var appCapabilities = func() map[AppCapability]bool {
	set := make(map[AppCapability]bool)
	for _, c := range AllAppCapabilities() {
		set[c] = true
	}
	return set
}()

// Valid 检查能力是否属于封闭枚举。
func (c AppCapability) Valid() bool {
	return appCapabilities[c]
}

// UserIntent 表示测试者当前想做的一件事（CCS 里的输出端口）。
type UserIntent string

const (
	IntentEnterText      UserIntent = "want_enter_text"
	IntentRecordAudio    UserIntent = "want_record_audio"
	IntentUploadFile     UserIntent = "want_upload_file"
	IntentGoPrevious     UserIntent = "want_go_previous"
	IntentGoNext         UserIntent = "want_go_next"
	IntentJumpToPhrase   UserIntent = "want_jump_to_phrase"
	IntentToggleMode     UserIntent = "want_toggle_mode"
	IntentClearRecording UserIntent = "want_clear_recording"
	IntentClearList      UserIntent = "want_clear_list"
	IntentSeeResults     UserIntent = "want_see_results"

	// 听音意图——与提供能力一一对应
	IntentHearTargetPractice UserIntent = "want_hear_target_practice"
	IntentHearUserLive       UserIntent = "want_hear_user_live"
	IntentHearTargetResults  UserIntent = "want_hear_target_results"
	IntentHearUserResults    UserIntent = "want_hear_user_results"
	IntentHearRecognized     UserIntent = "want_hear_recognized"
	IntentHearPhonemeCorrect UserIntent = "want_hear_phoneme_correct"
	IntentHearPhonemeUser    UserIntent = "want_hear_phoneme_user"
)

// AllUserIntents 返回全部用户意图。
func AllUserIntents() []UserIntent {
	return []UserIntent{
		IntentEnterText, IntentRecordAudio, IntentUploadFile,
		IntentGoPrevious, IntentGoNext, IntentJumpToPhrase,
		IntentToggleMode, IntentClearRecording, IntentClearList,
		IntentSeeResults,
		IntentHearTargetPractice, IntentHearUserLive,
		IntentHearTargetResults, IntentHearUserResults,
		IntentHearRecognized, IntentHearPhonemeCorrect, IntentHearPhonemeUser,
	}
}

var userIntents = func() map[UserIntent]bool {
	set := make(map[UserIntent]bool)
	for _, i := range AllUserIntents() {
		set[i] = true
	}
	return set
}()

// Valid 检查意图是否属于封闭枚举。
func (i UserIntent) Valid() bool {
	return userIntents[i]
}
