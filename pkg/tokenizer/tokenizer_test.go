package tokenizer

import "testing"

func TestCountTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  int
		max  int
	}{
		{"empty", "", 0, 0},
		{"blank", "  \n", 0, 0},
		{"single word", "hello", 1, 2},
		{"sentence", "the quick brown fox jumps over the lazy dog", 9, 14},
		{"cjk", "今日はいい天気ですね今日はいい天気ですね", 4, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountTokens(tt.text)
			if got < tt.min || got > tt.max {
				t.Errorf("CountTokens(%q) = %d, want in [%d, %d]", tt.text, got, tt.min, tt.max)
			}
		})
	}
}

func TestCountMessages(t *testing.T) {
	if got := CountMessages(); got != 0 {
		t.Errorf("CountMessages() = %d, want 0", got)
	}
	if got := CountMessages("hello", "world"); got != CountTokens("hello")+CountTokens("world")+8 {
		t.Errorf("CountMessages = %d", got)
	}
}
