package conversation

import "unicode"

// hanThreshold is the share of Han runes above which a message is
// treated as Chinese.
const hanThreshold = 0.15

// DetectLanguage returns "zh" when the message is predominantly Chinese,
// otherwise "en". Punctuation and whitespace do not count toward the
// ratio.
func DetectLanguage(text string) string {
	var total, han int
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total == 0 {
		return "en"
	}
	if float64(han)/float64(total) >= hanThreshold {
		return "zh"
	}
	return "en"
}
