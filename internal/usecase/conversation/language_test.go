package conversation

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "find me someone who likes hiking", "en"},
		{"chinese", "帮我找一个喜欢爬山的朋友", "zh"},
		{"mostly chinese with latin brand", "我想找会用 Photoshop 的设计师", "zh"},
		{"mostly english with one han rune", "my friend says 好 a lot and I want to learn why she keeps saying it", "en"},
		{"empty", "", "en"},
		{"punctuation only", "?!... 123", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
