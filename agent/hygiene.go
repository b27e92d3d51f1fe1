package agent

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// credentialPatterns match secrets that must not reach the model.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redacted = "[REDACTED]"

// ScrubCredentials replaces known credential patterns in text.
func ScrubCredentials(text string) string {
	for _, pat := range credentialPatterns {
		text = pat.ReplaceAllString(text, redacted)
	}
	return text
}

// TruncateOutput keeps the head and tail of output when it has more than
// maxChars characters, with a marker in place of the removed middle. A
// non-positive limit disables truncation.
func TruncateOutput(output string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(output) <= maxChars {
		return output
	}
	runes := []rune(output)
	half := maxChars / 2
	removed := len(runes) - 2*half
	return string(runes[:half]) +
		fmt.Sprintf("\n\n[output truncated: %d characters removed from the middle]\n\n", removed) +
		string(runes[len(runes)-half:])
}
