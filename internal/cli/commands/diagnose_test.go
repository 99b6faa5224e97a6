package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/model"
)

func TestCheckConfigExists_NotFound(t *testing.T) {
	result := checkConfigExists("/nonexistent/config.yaml")

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "not found") {
		t.Errorf("Expected 'not found' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Empty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	result := checkConfigExists(configPath)

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "empty") {
		t.Errorf("Expected 'empty' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Directory(t *testing.T) {
	result := checkConfigExists(t.TempDir())

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "directory") {
		t.Errorf("Expected 'directory' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("format: auto"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	result := checkConfigExists(configPath)

	if result.Status != "ok" {
		t.Errorf("Expected ok status, got %s", result.Status)
	}
}

func TestCheckConfigParseable(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", "invalid: yaml: content: bad", "error"},
		{"invalid format", "format: xml\n", "error"},
		{"invalid filter", "filter:\n  levels: [LOUD]\n", "error"},
		{"valid", "format: json\nmax_entries: 10\n", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to create file: %v", err)
			}

			cfg, result := checkConfigParseable(context.Background(), configPath)
			if result.Status != tt.want {
				t.Errorf("Status = %s, want %s (%s)", result.Status, tt.want, result.Message)
			}
			if (cfg != nil) != (tt.want == "ok") {
				t.Errorf("config returned = %v, want %v", cfg != nil, tt.want == "ok")
			}
		})
	}
}

func TestCheckLogSources_DirectFile(t *testing.T) {
	logPath := writeLog(t, "app.log", plainLog)
	emptyPath := writeLog(t, "empty.log", "")

	cfg := &config.Config{LogSources: []string{logPath, emptyPath, "/nonexistent/app.log"}}
	files, results := checkLogSources(cfg)

	if len(files) != 1 || files[0] != logPath {
		t.Errorf("files = %v, want [%s]", files, logPath)
	}

	want := []string{"ok", "warning", "error"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, status := range want {
		if results[i].Status != status {
			t.Errorf("results[%d].Status = %s, want %s (%s)", i, results[i].Status, status, results[i].Message)
		}
	}
}

func TestCheckLogSources_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.log", "nested/b.log"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(plainLog), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{LogSources: []string{filepath.Join(dir, "**", "*.log")}}
	files, results := checkLogSources(cfg)

	if len(files) != 2 {
		t.Errorf("files = %v, want 2 files", files)
	}
	if results[0].Status != "ok" || !strings.Contains(results[0].Message, "2 file(s)") {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestCheckLogSources_GlobNoMatch(t *testing.T) {
	cfg := &config.Config{LogSources: []string{filepath.Join(t.TempDir(), "*.log")}}
	files, results := checkLogSources(cfg)

	if len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
	if results[0].Status != "warning" {
		t.Errorf("Status = %s, want warning", results[0].Status)
	}
	// Summary error follows when nothing is readable
	if last := results[len(results)-1]; last.Status != "error" || last.Check != "Log Files Summary" {
		t.Errorf("unexpected summary: %+v", last)
	}
}

func TestCheckLogSources_InvalidGlob(t *testing.T) {
	cfg := &config.Config{LogSources: []string{"logs/[unclosed"}}
	_, results := checkLogSources(cfg)

	if results[0].Status != "error" {
		t.Errorf("Status = %s, want error", results[0].Status)
	}
}

func TestCheckLogSources_None(t *testing.T) {
	files, results := checkLogSources(&config.Config{})

	if files != nil {
		t.Errorf("files = %v, want nil", files)
	}
	if len(results) != 1 || results[0].Status != "warning" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestCheckFormats(t *testing.T) {
	jsonPath := writeLog(t, "app.jsonl", jsonLog)
	mixedPath := writeLog(t, "mixed.log", jsonLog+"plain tail line\n")

	tests := []struct {
		name   string
		format model.Format
		file   string
		want   string
	}{
		{"auto on uniform file", model.FormatAuto, jsonPath, "ok"},
		{"auto on mixed file", model.FormatAuto, mixedPath, "warning"},
		{"forced matching format", model.FormatJSON, jsonPath, "ok"},
		{"forced wrong format", model.FormatNginxError, jsonPath, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Format = tt.format.String()
			if err := config.Validate(cfg); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			results := checkFormats(context.Background(), cfg, []string{tt.file}, &DiagnoseOptions{})
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0].Status != tt.want {
				t.Errorf("Status = %s, want %s (%s)", results[0].Status, tt.want, results[0].Message)
			}
		})
	}
}

func TestCheckFormats_EmptyFile(t *testing.T) {
	emptyPath := writeLog(t, "empty.log", "\n\n")
	cfg := config.Defaults()

	results := checkFormats(context.Background(), cfg, []string{emptyPath}, &DiagnoseOptions{})
	if results[0].Status != "warning" {
		t.Errorf("Status = %s, want warning", results[0].Status)
	}
}

func TestCheckWebhooks_NoWebhooks(t *testing.T) {
	cfg := &config.Config{}

	if results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{}); len(results) != 0 {
		t.Errorf("Expected no results in non-verbose mode, got %d", len(results))
	}

	results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{Verbose: true})
	if len(results) != 1 || results[0].Status != "ok" {
		t.Errorf("unexpected verbose results: %+v", results)
	}
}

func TestCheckWebhooks_Configured(t *testing.T) {
	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "alerts", URL: "https://example.com/hook", Token: "x", Trigger: config.WebhookTriggerAlways},
			{URL: "https://example.com/other", Trigger: config.WebhookTriggerOnErrors},
		},
	}

	results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Check != "Webhook: alerts" {
		t.Errorf("Check = %q", results[0].Check)
	}
	if results[1].Check != "Webhook: https://example.com/other" {
		t.Errorf("unnamed webhook should use its URL: %q", results[1].Check)
	}
	if !strings.Contains(results[1].Message, "no token") {
		t.Errorf("expected missing token note, got %q", results[1].Message)
	}
}

func TestCheckWebhookConnectivity(t *testing.T) {
	var gotMethod, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result := checkWebhookConnectivity(context.Background(), config.WebhookConfig{
		URL:     server.URL,
		Token:   "secret",
		Timeout: time.Second,
	})

	if result.Status != "ok" {
		t.Errorf("Status = %s, want ok (%s)", result.Status, result.Message)
	}
	if gotMethod != http.MethodHead {
		t.Errorf("method = %s, want HEAD", gotMethod)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestCheckWebhookConnectivity_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	result := checkWebhookConnectivity(context.Background(), config.WebhookConfig{URL: server.URL})
	if result.Status != "warning" {
		t.Errorf("Status = %s, want warning", result.Status)
	}
}

func TestPrintDiagnostics(t *testing.T) {
	results := []DiagnosticResult{
		{Check: "Config File", Status: "ok", Message: "Found", Details: []string{"hidden unless verbose"}},
		{Check: "Format: app.log", Status: "warning", Message: "mixed", Details: []string{"plain_text: x"}},
		{Check: "Log Source: x", Status: "error", Message: "missing", Suggests: []string{"check the path"}},
	}

	var out bytes.Buffer
	printDiagnostics(&out, results, &DiagnoseOptions{})
	got := out.String()

	for _, want := range []string{
		"=== logcat Configuration Diagnostics ===",
		"[PASS] Config File",
		"[WARN] Format: app.log",
		"      - plain_text: x",
		"[FAIL] Log Source: x",
		"      Hint: check the path",
		"Summary: 1 passed, 1 warnings, 1 errors",
		"Fix the errors above",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "hidden unless verbose") {
		t.Error("details of passing checks shown without verbose")
	}
}

func TestRunDiagnose_MissingConfig(t *testing.T) {
	var out bytes.Buffer
	if err := runDiagnose(context.Background(), &out, "/nonexistent/config.yaml", &DiagnoseOptions{}); err != nil {
		t.Fatalf("runDiagnose should not fail: %v", err)
	}
	if !strings.Contains(out.String(), "[FAIL] Config File") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunDiagnose_ValidConfig(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)
	configPath := filepath.Join(t.TempDir(), "logcat.yaml")
	content := "log_sources:\n  - " + logPath + "\nformat: auto\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	cmd := NewDiagnoseCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"[PASS] Config Syntax", "[PASS] Log Source: " + logPath, "All 3 sampled lines are json", "Profile looks good!"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
