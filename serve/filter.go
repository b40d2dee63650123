package main

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	clipime "github.com/Paranoid-AF/clipime"
)

// defaultMaxLength matches the chatbox message limit.
const defaultMaxLength = 140

var urlPattern = regexp.MustCompile(`(http://|https://){1}[\w\.\-/:\#\?=\&;%\~\+]+`)

// skipReason reports why text should be left unconverted, or "" to convert
// it.
func skipReason(cfg *clipime.Config, text string) string {
	if text == "" {
		return "empty text"
	}

	maxLength := defaultMaxLength
	if cfg != nil && cfg.Conversion.MaxLength != 0 {
		maxLength = cfg.Conversion.MaxLength
	}
	if n := utf8.RuneCountInString(text); n > maxLength {
		return fmt.Sprintf("text is %d characters, limit is %d", n, max(maxLength, 0))
	}

	if clipime.SkipURL(cfg) && urlPattern.MatchString(text) {
		return "text contains a URL"
	}
	return ""
}
