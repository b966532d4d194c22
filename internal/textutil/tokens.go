package textutil

import (
	"fmt"
	"strings"
)

// CharsPerToken is calibrated for Cyrillic text on subword tokenizers.
const CharsPerToken = 3.5

// EstimateTokens returns floor(len(text) / 3.5). Length is counted in runes.
func EstimateTokens(text string) int {
	return int(float64(runeLen(text)) / CharsPerToken)
}

// Truncate cuts text so its estimate fits maxTokens and appends a notice.
// Text already within budget is returned unchanged with false. The notice is
// counted against the budget, so truncating the result again is a no-op.
func Truncate(text string, maxTokens int) (string, bool) {
	estimated := EstimateTokens(text)
	if estimated <= maxTokens {
		return text, false
	}

	budget := int(float64(maxTokens) * CharsPerToken)
	if budget < 0 {
		budget = 0
	}
	notice := truncationNotice(estimated, maxTokens)
	target := budget - runeLen(notice)
	if target < 0 {
		// budget too small to carry the notice
		notice, target = "", budget
	}

	runes := []rune(text)
	if target > len(runes) {
		target = len(runes)
	}
	cut := string(runes[:target])

	// back off to a line boundary when one is close to the end
	if i := strings.LastIndex(cut, "\n"); i >= 0 && runeLen(cut[:i]) >= int(float64(target)*0.8) {
		cut = cut[:i]
	}

	return cut + notice, true
}

func truncationNotice(original, limit int) string {
	return fmt.Sprintf("\n\n[УВАГА: Текст було скорочено через перевищення ліміту токенів. Оригінальний розмір: ~%d токенів, ліміт: %d токенів.]", original, limit)
}

func runeLen(s string) int {
	return len([]rune(s))
}
