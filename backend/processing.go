package backend

import (
	"strings"
	"unicode/utf8"

	clipime "github.com/Paranoid-AF/clipime"
)

// Sentinel is appended to composing text so the engine does not offer
// predictive continuations past the end of the input.
const Sentinel = '§'

// MaxEngineCandidates caps the list returned by RequestCandidates.
const MaxEngineCandidates = 8

// fullWidth maps ASCII punctuation to the Japanese full-width forms the
// engine expects.
var fullWidth = map[rune]string{
	'-':  "ー",
	'=':  "＝",
	'[':  "「",
	']':  "」",
	';':  "；",
	'@':  "＠",
	',':  "、",
	'.':  "。",
	'/':  "・",
	'!':  "！",
	'#':  "＃",
	'$':  "＄",
	'%':  "％",
	'^':  "＾",
	'&':  "＆",
	'*':  "＊",
	'(':  "（",
	')':  "）",
	'_':  "＿",
	'+':  "＋",
	'{':  "｛",
	'}':  "｝",
	'|':  "｜",
	':':  "：",
	'"':  "”",
	'<':  "＜",
	'>':  "＞",
	'?':  "？",
	'\\': "￥",
}

// PreProcess prepares raw text for the composing buffer: punctuation is
// widened, a lone trailing "n" is doubled so it reads as ん, and the
// sentinel is appended.
func PreProcess(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + 4)
	for _, r := range text {
		if w, ok := fullWidth[r]; ok {
			sb.WriteString(w)
		} else {
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	if strings.HasSuffix(result, "n") {
		rs := []rune(result)
		if len(rs) > 1 && rs[len(rs)-2] != 'n' {
			result += "n"
		}
	}

	return result + string(Sentinel)
}

// PostProcessText strips a single trailing sentinel.
func PostProcessText(text string) string {
	if r, size := utf8.DecodeLastRuneInString(text); r == Sentinel {
		return text[:len(text)-size]
	}
	return text
}

// PostProcessCandidates keeps the first MaxEngineCandidates entries, strips
// the sentinel from each, and drops later duplicates of the same text.
func PostProcessCandidates(candidates []clipime.Candidate) []clipime.Candidate {
	if len(candidates) > MaxEngineCandidates {
		candidates = candidates[:MaxEngineCandidates]
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]clipime.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Text = PostProcessText(c.Text)
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		out = append(out, c)
	}
	return out
}
