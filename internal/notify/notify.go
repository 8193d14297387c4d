// Package notify holds deterministic user-facing text used whenever the
// language model cannot produce its own. The same template family backs
// match results, casual handshakes and conversational fallbacks so the
// product voice stays consistent across degraded paths.
package notify

// LangZH and LangEN are the supported template languages. Unknown
// languages fall back to English.
const (
	LangEN = "en"
	LangZH = "zh"
)

func pick(lang, en, zh string) string {
	if lang == LangZH {
		return zh
	}
	return en
}

// MatchReason is the generic explanation attached to a candidate when
// the assessor degraded to similarity ordering.
func MatchReason(lang string) string {
	return pick(lang,
		"Your profiles show strong overlap in interests and background.",
		"你们的资料在兴趣和背景上有很高的重合度。")
}

// KeyStrength is the single generic strength used by the degraded
// assessor path.
func KeyStrength(lang string) string {
	return pick(lang, "shared interests", "共同兴趣")
}

// ReceiverNotification tells a matched user that someone is looking for
// a person like them.
func ReceiverNotification(lang string) string {
	return pick(lang,
		"Someone is looking for a person like you and you came up as a great match. Say hi?",
		"有人在寻找像你这样的人，你们的匹配度很高，要不要打个招呼？")
}

// CasualNotification tells a user that another member wants company for
// an activity right now. activity may be empty.
func CasualNotification(lang, activity string) string {
	if activity == "" {
		return pick(lang,
			"Someone nearby is looking for company right now and you seem like a great fit.",
			"附近有人正在找人一起活动，你看起来非常合适。")
	}
	return pick(lang,
		"Someone nearby wants company for "+activity+" and you seem like a great fit.",
		"附近有人想找人一起"+activity+"，你看起来非常合适。")
}

// CasualReceipt confirms that a casual request was stored. matched
// controls whether a partner was found in the same pass.
func CasualReceipt(lang string, matched bool) string {
	if matched {
		return pick(lang,
			"Got it. Your request is live and we already found someone who might join you.",
			"收到。你的请求已经发布，我们还找到了一位可能加入你的人。")
	}
	return pick(lang,
		"Got it. Your request is live and we will keep an eye out for company.",
		"收到。你的请求已经发布，我们会持续帮你留意合适的人。")
}

// ChatFallback is the canned conversational reply used when the model
// is unavailable.
func ChatFallback(lang string) string {
	return pick(lang,
		"I'm having trouble thinking right now. Tell me who you'd like to meet and I'll get searching.",
		"我现在有点反应不过来。告诉我你想认识什么样的人，我马上去找。")
}

// InquiryFallback is returned when a profile question cannot be
// answered.
func InquiryFallback(lang string) string {
	return pick(lang,
		"I couldn't pull up that profile just now. Please try again in a moment.",
		"我暂时没能查看那份资料，请稍后再试。")
}

// NoMatches is the answer used when a search exhausted every tier
// without a usable candidate.
func NoMatches(lang string) string {
	return pick(lang,
		"I searched widely but nobody fits well enough yet. Try rephrasing what matters most to you.",
		"我找了很大范围，但暂时没有足够合适的人。试着换个说法描述你最在意的条件吧。")
}
