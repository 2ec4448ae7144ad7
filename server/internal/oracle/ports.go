package oracle

import "ccs-probe/server/internal/model"

// portPairs 互补端口总表：每个用户意图恰好对应一个应用能力。
//
// 这是一份静态契约：运行时不可配置，完备性（每个意图都有搭档）
// 由测试断言。历史上出现过一份缺条目的副本（漏掉了几个听音意图），
// 以这份全表为准。
var portPairs = map[model.UserIntent]model.AppCapability{
	// 控制类交互
	model.IntentEnterText:      model.CapAcceptTextInput,
	model.IntentRecordAudio:    model.CapAcceptAudioRecording,
	model.IntentUploadFile:     model.CapAcceptFileUpload,
	model.IntentGoPrevious:     model.CapAcceptNavigationPrev,
	model.IntentGoNext:         model.CapAcceptNavigationNext,
	model.IntentJumpToPhrase:   model.CapAcceptJumpToPhrase,
	model.IntentToggleMode:     model.CapAcceptModeToggle,
	model.IntentClearRecording: model.CapAcceptClearRecording,
	model.IntentClearList:      model.CapAcceptClearList,
	model.IntentSeeResults:     model.CapProvideAnalysisResults,

	// 听音交互——按播放器用途一一对应
	model.IntentHearTargetPractice: model.CapProvideTargetAudioPractice,
	model.IntentHearUserLive:       model.CapProvideUserAudioLive,
	model.IntentHearTargetResults:  model.CapProvideTargetAudioResults,
	model.IntentHearUserResults:    model.CapProvideUserAudioResults,
	model.IntentHearRecognized:     model.CapProvideRecognizedAudio,
	model.IntentHearPhonemeCorrect: model.CapProvidePhonemeAudioCorrect,
	model.IntentHearPhonemeUser:    model.CapProvidePhonemeAudioUser,
}

// Partner 返回意图的互补能力。
func Partner(intent model.UserIntent) (model.AppCapability, bool) {
	cap, ok := portPairs[intent]
	return cap, ok
}
