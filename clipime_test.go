package clipime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConvertResponseErrorOmitted(t *testing.T) {
	resp := ConvertResponse{RequestID: 3, Original: "ka", Converted: "か"}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error key, got %s", data)
	}
}

func TestConvertRequestIDJSONRoundTrip(t *testing.T) {
	req := ConvertRequest{RequestID: 42, SessionID: "s", Text: "henkan"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"request_id"`) {
		t.Errorf("expected request_id key in JSON, got %s", data)
	}

	var decoded ConvertRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != req {
		t.Errorf("round trip mismatch: %+v != %+v", decoded, req)
	}
}

func TestTexts(t *testing.T) {
	got := Texts([]Candidate{{Text: "変換"}, {Text: "返還", Rank: 1}})
	if len(got) != 2 || got[0] != "変換" || got[1] != "返還" {
		t.Errorf("unexpected texts: %v", got)
	}
	if got := Texts(nil); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Conversion.Backend != BackendWorker {
		t.Errorf("expected worker backend, got %q", cfg.Conversion.Backend)
	}
	if cfg.Conversion.MaxLength != 140 {
		t.Errorf("expected max_length 140, got %d", cfg.Conversion.MaxLength)
	}
	if !SkipURL(cfg) {
		t.Error("expected skip_url default true")
	}
	if cfg.Output.Mode != OutputStdout {
		t.Errorf("expected stdout output, got %q", cfg.Output.Mode)
	}
	if w := ValidateConfig(cfg); len(w) != 0 {
		t.Errorf("expected no warnings for defaults, got %v", w)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CLIPIME_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Conversion.Backend != BackendWorker {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLIPIME_CONFIG_DIR", dir)
	data := "[conversion]\nbackend = \"direct\"\nskip_url = false\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Conversion.Backend != BackendDirect {
		t.Errorf("expected direct backend, got %q", cfg.Conversion.Backend)
	}
	if SkipURL(cfg) {
		t.Error("expected skip_url false to survive defaults")
	}
	if cfg.Conversion.MaxLength != 140 {
		t.Errorf("expected default max_length, got %d", cfg.Conversion.MaxLength)
	}
	if cfg.Output.OSCAddress != "127.0.0.1:9000" {
		t.Errorf("expected default osc address, got %q", cfg.Output.OSCAddress)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLIPIME_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[conversion\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("CLIPIME_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != "/xdg/clipime" {
		t.Errorf("expected /xdg/clipime, got %s", got)
	}
	t.Setenv("CLIPIME_CONFIG_DIR", "/custom")
	if got := ConfigDir(); got != "/custom" {
		t.Errorf("expected /custom, got %s", got)
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("CLIPIME_BACKEND", "direct")
	t.Setenv("CLIPIME_OUTPUT_MODE", "chatbox")
	t.Setenv("CLIPIME_WORKER_COMMAND", "clipime-worker --quiet")
	if got := ResolveBackend(cfg); got != BackendDirect {
		t.Errorf("expected direct, got %s", got)
	}
	if got := ResolveOutputMode(cfg); got != OutputChatbox {
		t.Errorf("expected chatbox, got %s", got)
	}
	if got := ResolveWorkerCommand(cfg); got != "clipime-worker --quiet" {
		t.Errorf("unexpected worker command %q", got)
	}
}

func TestValidateConfigWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Conversion.Backend = "tsf"
	cfg.Output.Mode = "clipboard"
	cfg.Conversion.MaxLength = -1
	warnings := ValidateConfig(cfg)
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", warnings)
	}
}

func TestTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	if got := HandshakeTimeout(cfg); got != 10*time.Second {
		t.Errorf("expected 10s handshake timeout, got %v", got)
	}
	if got := RequestTimeout(cfg); got != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %v", got)
	}
	cfg.Worker.RequestTimeoutMS = -1
	if got := RequestTimeout(cfg); got != 0 {
		t.Errorf("expected unbounded request timeout, got %v", got)
	}
}
