// Package kana is a small reference conversion engine: romaji is read as
// kana, and a user dictionary supplies kanji and other replacements for
// whole readings.
package kana

import "unicode"

// maxSyllable is the longest romaji key in the table ("xtsu", "ltsu").
const maxSyllable = 4

var romaji = map[string]string{
	"a": "あ", "i": "い", "u": "う", "e": "え", "o": "お",

	"ka": "か", "ki": "き", "ku": "く", "ke": "け", "ko": "こ",
	"ga": "が", "gi": "ぎ", "gu": "ぐ", "ge": "げ", "go": "ご",
	"sa": "さ", "si": "し", "shi": "し", "su": "す", "se": "せ", "so": "そ",
	"za": "ざ", "zi": "じ", "ji": "じ", "zu": "ず", "ze": "ぜ", "zo": "ぞ",
	"ta": "た", "ti": "ち", "chi": "ち", "tu": "つ", "tsu": "つ", "te": "て", "to": "と",
	"da": "だ", "di": "ぢ", "du": "づ", "de": "で", "do": "ど",
	"na": "な", "ni": "に", "nu": "ぬ", "ne": "ね", "no": "の",
	"ha": "は", "hi": "ひ", "hu": "ふ", "fu": "ふ", "he": "へ", "ho": "ほ",
	"ba": "ば", "bi": "び", "bu": "ぶ", "be": "べ", "bo": "ぼ",
	"pa": "ぱ", "pi": "ぴ", "pu": "ぷ", "pe": "ぺ", "po": "ぽ",
	"ma": "ま", "mi": "み", "mu": "む", "me": "め", "mo": "も",
	"ya": "や", "yu": "ゆ", "yo": "よ",
	"ra": "ら", "ri": "り", "ru": "る", "re": "れ", "ro": "ろ",
	"wa": "わ", "wi": "うぃ", "we": "うぇ", "wo": "を",
	"va": "ゔぁ", "vi": "ゔぃ", "vu": "ゔ", "ve": "ゔぇ", "vo": "ゔぉ",
	"fa": "ふぁ", "fi": "ふぃ", "fe": "ふぇ", "fo": "ふぉ",

	"kya": "きゃ", "kyu": "きゅ", "kyo": "きょ",
	"gya": "ぎゃ", "gyu": "ぎゅ", "gyo": "ぎょ",
	"sya": "しゃ", "syu": "しゅ", "syo": "しょ",
	"sha": "しゃ", "shu": "しゅ", "she": "しぇ", "sho": "しょ",
	"ja": "じゃ", "ju": "じゅ", "je": "じぇ", "jo": "じょ",
	"jya": "じゃ", "jyu": "じゅ", "jyo": "じょ",
	"zya": "じゃ", "zyu": "じゅ", "zyo": "じょ",
	"tya": "ちゃ", "tyu": "ちゅ", "tyo": "ちょ",
	"cha": "ちゃ", "chu": "ちゅ", "che": "ちぇ", "cho": "ちょ",
	"dya": "ぢゃ", "dyu": "ぢゅ", "dyo": "ぢょ",
	"thi": "てぃ", "dhi": "でぃ",
	"nya": "にゃ", "nyu": "にゅ", "nyo": "にょ",
	"hya": "ひゃ", "hyu": "ひゅ", "hyo": "ひょ",
	"bya": "びゃ", "byu": "びゅ", "byo": "びょ",
	"pya": "ぴゃ", "pyu": "ぴゅ", "pyo": "ぴょ",
	"mya": "みゃ", "myu": "みゅ", "myo": "みょ",
	"rya": "りゃ", "ryu": "りゅ", "ryo": "りょ",

	"xa": "ぁ", "xi": "ぃ", "xu": "ぅ", "xe": "ぇ", "xo": "ぉ",
	"la": "ぁ", "li": "ぃ", "lu": "ぅ", "le": "ぇ", "lo": "ぉ",
	"xya": "ゃ", "xyu": "ゅ", "xyo": "ょ",
	"lya": "ゃ", "lyu": "ゅ", "lyo": "ょ",
	"xtu": "っ", "ltu": "っ", "xtsu": "っ", "ltsu": "っ",
	"xwa": "ゎ", "lwa": "ゎ",

	"-": "ー",
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}

func isConsonant(r rune) bool {
	return r >= 'a' && r <= 'z' && !isVowel(r)
}

// ToHiragana reads romaji in s as hiragana. ASCII letters are matched case
// insensitively; anything that is not romaji passes through unchanged.
func ToHiragana(s string) string {
	rs := []rune(s)
	lower := make([]rune, len(rs))
	for i, r := range rs {
		if r < unicode.MaxASCII {
			lower[i] = unicode.ToLower(r)
		} else {
			lower[i] = r
		}
	}
	at := func(i int) rune {
		if i < len(lower) {
			return lower[i]
		}
		return 0
	}

	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		r := lower[i]

		if r == 'n' {
			next := at(i + 1)
			switch {
			case isVowel(next) || next == 'y':
				// na, nya: table lookup below
			case next == 'n':
				out = append(out, 'ん')
				if isVowel(at(i+2)) || at(i+2) == 'y' {
					i++
				} else {
					i += 2
				}
				continue
			case next == '\'':
				out = append(out, 'ん')
				i += 2
				continue
			default:
				out = append(out, 'ん')
				i++
				continue
			}
		}

		if isConsonant(r) && r != 'n' && (at(i+1) == r || r == 't' && at(i+1) == 'c' && at(i+2) == 'h') {
			out = append(out, 'っ')
			i++
			continue
		}

		matched := false
		for n := min(maxSyllable, len(rs)-i); n > 0; n-- {
			if kana, ok := romaji[string(lower[i:i+n])]; ok {
				out = append(out, []rune(kana)...)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, rs[i])
			i++
		}
	}
	return string(out)
}

// ToKatakana shifts every hiragana rune in s to its katakana counterpart.
func ToKatakana(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'ぁ' && r <= 'ゖ' {
			out[i] = r + ('ァ' - 'ぁ')
		}
	}
	return string(out)
}
