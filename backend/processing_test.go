package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	clipime "github.com/Paranoid-AF/clipime"
)

func TestPreProcess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "kyou", "kyou§"},
		{"empty", "", "§"},
		{"punctuation", "a-b,c.", "aーb、c。§"},
		{"brackets", "[x]", "「x」§"},
		{"backslash", `a\`, "a￥§"},
		{"trailing n doubled", "henkan", "henkann§"},
		{"double n kept", "konn", "konn§"},
		{"lone n kept", "n", "n§"},
		{"already full width", "日本", "日本§"},
		{"question", "nani?", "nani？§"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreProcess(tt.in))
		})
	}
}

func TestPostProcessText(t *testing.T) {
	assert.Equal(t, "変換", PostProcessText("変換§"))
	assert.Equal(t, "変換", PostProcessText("変換"))
	assert.Equal(t, "§", PostProcessText("§§"))
	assert.Equal(t, "", PostProcessText(""))
}

func TestPreProcessRoundTrip(t *testing.T) {
	// Text without punctuation or a trailing n survives pre then post
	// processing unchanged.
	for _, s := range []string{"", "a", "kyouha", "今日は", "nihongo", "tenki"} {
		assert.Equal(t, s, PostProcessText(PreProcess(s)), "input %q", s)
	}
}

func TestPostProcessCandidatesDedupes(t *testing.T) {
	in := []clipime.Candidate{
		{Text: "変換§", Rank: 1},
		{Text: "返還§", Rank: 2},
		{Text: "変換", Rank: 3},
		{Text: "へんかん§", Rank: 4},
	}
	got := PostProcessCandidates(in)
	assert.Equal(t, []string{"変換", "返還", "へんかん"}, clipime.Texts(got))
	assert.Equal(t, 1, got[0].Rank, "first occurrence wins")
}

func TestPostProcessCandidatesCaps(t *testing.T) {
	var in []clipime.Candidate
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		in = append(in, clipime.Candidate{Text: s + "§"})
	}
	got := PostProcessCandidates(in)
	assert.Len(t, got, MaxEngineCandidates)
	assert.Equal(t, "h", got[len(got)-1].Text)
}

func TestPostProcessCandidatesCapBeforeDedupe(t *testing.T) {
	// Duplicates inside the first eight shrink the list; entries past the
	// cap are never promoted.
	in := []clipime.Candidate{
		{Text: "a"}, {Text: "a"}, {Text: "b"}, {Text: "c"},
		{Text: "d"}, {Text: "e"}, {Text: "f"}, {Text: "g"},
		{Text: "h"},
	}
	got := PostProcessCandidates(in)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, clipime.Texts(got))
}
