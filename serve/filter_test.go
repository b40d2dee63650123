package main

import (
	"strings"
	"testing"

	clipime "github.com/Paranoid-AF/clipime"
)

func TestSkipReason(t *testing.T) {
	no := false
	tests := []struct {
		name string
		cfg  func(*clipime.Config)
		text string
		skip bool
	}{
		{"plain", nil, "kyouhaiitenki", false},
		{"empty", nil, "", true},
		{"at limit", nil, strings.Repeat("あ", 140), false},
		{"over limit", nil, strings.Repeat("あ", 141), true},
		{"custom limit", func(c *clipime.Config) { c.Conversion.MaxLength = 3 }, "abcd", true},
		{"negative limit", func(c *clipime.Config) { c.Conversion.MaxLength = -1 }, "a", true},
		{"url", nil, "mite http://example.com/x?y=1", true},
		{"https url", nil, "https://example.com", true},
		{"scheme only", nil, "http://", false},
		{"url allowed", func(c *clipime.Config) { c.Conversion.SkipURL = &no }, "https://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clipime.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			reason := skipReason(cfg, tt.text)
			if (reason != "") != tt.skip {
				t.Errorf("skipReason(%q) = %q, want skip=%v", tt.text, reason, tt.skip)
			}
		})
	}
}

func TestSkipReasonNilConfig(t *testing.T) {
	if r := skipReason(nil, "kyou"); r != "" {
		t.Errorf("unexpected skip %q", r)
	}
	if r := skipReason(nil, strings.Repeat("a", 141)); r == "" {
		t.Error("default limit not applied")
	}
}
