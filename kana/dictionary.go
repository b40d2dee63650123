package kana

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"

	"github.com/BurntSushi/toml"

	clipime "github.com/Paranoid-AF/clipime"
	defaults "github.com/Paranoid-AF/clipime/default"
)

// Entry is one user dictionary rule.
type Entry struct {
	// Input is the reading to match: exact text, or a regular expression
	// when UseRegex is set.
	Input  string `toml:"input" json:"input"`
	Output string `toml:"output" json:"output"`
	// UseRegex makes Output a replacement template ($1 etc.) applied to the
	// matched text.
	UseRegex bool `toml:"use_regex" json:"use_regex"`
	// Priority orders matches; higher comes first.
	Priority int `toml:"priority" json:"priority"`

	re *regexp.Regexp
}

// Dictionary is an ordered set of entries.
type Dictionary struct {
	Entries []Entry `toml:"entries" json:"entries"`
}

// ParseDictionary decodes TOML dictionary data and compiles its regular
// expressions.
func ParseDictionary(data string) (*Dictionary, error) {
	var d Dictionary
	if _, err := toml.Decode(data, &d); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	for i := range d.Entries {
		e := &d.Entries[i]
		if e.Input == "" {
			return nil, fmt.Errorf("dictionary entry %d: empty input", i+1)
		}
		if !e.UseRegex {
			continue
		}
		re, err := regexp.Compile(e.Input)
		if err != nil {
			return nil, fmt.Errorf("dictionary entry %d: %w", i+1, err)
		}
		e.re = re
	}
	return &d, nil
}

// DefaultDictionary returns the embedded default dictionary.
func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(defaults.DefaultDictionaryTOML)
	if err != nil {
		panic("kana: embedded dictionary: " + err.Error())
	}
	return d
}

// LoadDictionary reads the dictionary at path. A missing file yields the
// embedded default.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultDictionary(), nil
		}
		return nil, err
	}
	return ParseDictionary(string(data))
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries)
}

// Lookup returns the outputs of every entry matching reading or raw,
// highest priority first. Entries of equal priority keep file order.
func (d *Dictionary) Lookup(reading, raw string) []clipime.Candidate {
	if d == nil {
		return nil
	}

	type match struct {
		text     string
		priority int
	}
	var matches []match
	for _, e := range d.Entries {
		if text, ok := e.apply(reading, raw); ok {
			matches = append(matches, match{text, e.Priority})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		return cmp.Compare(b.priority, a.priority)
	})

	out := make([]clipime.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, clipime.Candidate{Text: m.text, Reading: reading})
	}
	return out
}

func (e *Entry) apply(reading, raw string) (string, bool) {
	if e.re == nil {
		if e.Input == reading || e.Input == raw {
			return e.Output, true
		}
		return "", false
	}
	for _, s := range []string{reading, raw} {
		if e.re.MatchString(s) {
			return e.re.ReplaceAllString(s, e.Output), true
		}
	}
	return "", false
}
