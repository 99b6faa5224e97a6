package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/output"
)

const plainLog = `2024-01-15 10:00:00 INFO server started
2024-01-15 10:05:00 WARN disk usage high
2024-01-15 10:10:00 ERROR connection refused
2024-01-15 10:15:00 INFO request handled
`

const jsonLog = `{"timestamp":"2024-01-15T10:00:00Z","level":"INFO","message":"started","source":"api"}
{"timestamp":"2024-01-15T10:30:00Z","level":"ERROR","message":"query failed","source":"db","stack_trace":"at db.go:42"}
{"timestamp":"2024-01-15T11:00:00Z","level":"WARN","message":"slow request","source":"api"}
`

// writeLog writes a log file into a fresh temp dir and returns its path.
func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	return path
}

// withProfile returns a context carrying a runtime built from YAML.
func withProfile(t *testing.T, yaml string) context.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logcat.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return WithRuntime(context.Background(), &Runtime{Logger: zap.NewNop(), Config: cfg, NoColor: true})
}

func TestNewCommands(t *testing.T) {
	tests := []struct {
		use   string
		new   func() *cobra.Command
		flags []string
	}{
		{"parse [log-file...]", NewParseCommand, []string{"format", "max-entries", "output", "verbose", "quiet"}},
		{"filter [log-file...]", NewFilterCommand, []string{"format", "max-entries", "output", "level", "search", "since", "until", "source", "stack-trace"}},
		{"stream [log-file...]", NewStreamCommand, []string{"format", "as", "limit", "level", "search"}},
		{"export [log-file...]", NewExportCommand, []string{"format", "as", "out", "limit", "level"}},
		{"stats [log-file...]", NewStatsCommand, []string{"format", "output", "fail-on-errors", "webhook-url", "webhook-token", "webhook-trigger"}},
		{"detect <log-file>", NewDetectCommand, []string{"output", "sample", "write-config"}},
		{"validate <config-file>", NewValidateCommand, nil},
		{"diagnose <config-file>", NewDiagnoseCommand, []string{"verbose"}},
		{"version", NewVersionCommand, nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			cmd := tt.new()
			if cmd.Use != tt.use {
				t.Errorf("Unexpected Use: %s", cmd.Use)
			}
			for _, flag := range tt.flags {
				if cmd.Flags().Lookup(flag) == nil {
					t.Errorf("Missing flag: %s", flag)
				}
			}
		})
	}
}

func TestNewStreamCommand_NoMaxEntriesFlag(t *testing.T) {
	if NewStreamCommand().Flags().Lookup("max-entries") != nil {
		t.Error("stream should not cap entries with --max-entries")
	}
}

func TestRunParse_Text(t *testing.T) {
	logPath := writeLog(t, "app.log", plainLog)

	cmd := NewParseCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"=== logcat Report ===", "connection refused", "Format: plain_text", "4 total entries"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunParse_JSON(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	cmd := NewParseCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "json", "--max-entries", "2", logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var report struct {
		Entries []struct {
			Message string `json:"message"`
			Level   string `json:"level"`
		} `json:"entries"`
		DetectedFormat      string `json:"detected_format"`
		TotalLinesProcessed int    `json:"total_lines_processed"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}

	if len(report.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(report.Entries))
	}
	if report.Entries[1].Level != "ERROR" {
		t.Errorf("entries[1].level = %q, want ERROR", report.Entries[1].Level)
	}
	if report.DetectedFormat != "json" {
		t.Errorf("detected_format = %q, want json", report.DetectedFormat)
	}
	if report.TotalLinesProcessed != 2 {
		t.Errorf("total_lines_processed = %d, want 2", report.TotalLinesProcessed)
	}
}

func TestRunParse_Errors(t *testing.T) {
	logPath := writeLog(t, "app.log", plainLog)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		substr  string
	}{
		{"missing file", []string{"/nonexistent/app.log"}, model.ErrNotFound, ""},
		{"unknown format", []string{"--format", "xml", logPath}, model.ErrUnsupportedFormat, ""},
		{"max entries too small", []string{"--max-entries", "0", logPath}, nil, "--max-entries"},
		{"max entries too large", []string{"--max-entries", "100001", logPath}, nil, "--max-entries"},
		{"unknown output", []string{"-o", "yaml", logPath}, nil, "unknown output format"},
		{"no sources", []string{}, errNoSources, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewParseCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should contain %q", err, tt.substr)
			}
		})
	}
}

func TestRunParse_ProfileSources(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)
	ctx := withProfile(t, "log_sources:\n  - "+logPath+"\noutput: json\nmax_entries: 1\n")

	cmd := NewParseCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var report struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("profile output should be json: %v\n%s", err, out.String())
	}
	if len(report.Entries) != 1 {
		t.Errorf("got %d entries, want the profile cap of 1", len(report.Entries))
	}
}

func TestRunParse_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	first := "2024-01-15 10:00:00 INFO one\n2024-01-15 10:20:00 INFO three\n"
	second := "2024-01-15 10:10:00 INFO two\n"
	if err := os.WriteFile(filepath.Join(dir, "a.log"), []byte(first), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.log"), []byte(second), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := NewParseCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "json", filepath.Join(dir, "*.log")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var report struct {
		Entries []struct {
			Message string `json:"message"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	var got []string
	for _, e := range report.Entries {
		got = append(got, e.Message)
	}
	want := []string{"INFO one", "INFO two", "INFO three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("merged order = %v, want %v", got, want)
	}
}

func TestRunFilter(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"level", []string{"--level", "error"}, []string{"query failed"}},
		{"repeated level", []string{"--level", "error", "--level", "WARN"}, []string{"query failed", "slow request"}},
		{"search", []string{"--search", "^s"}, []string{"started", "slow request"}},
		{"since", []string{"--since", "2024-01-15T10:30:00Z"}, []string{"query failed", "slow request"}},
		{"until", []string{"--until", "2024-01-15T10:30:00Z"}, []string{"started", "query failed"}},
		{"source", []string{"--source", "api"}, []string{"started", "slow request"}},
		{"stack trace", []string{"--stack-trace", "yes"}, []string{"query failed"}},
		{"no stack trace", []string{"--stack-trace", "no"}, []string{"started", "slow request"}},
		{"combined", []string{"--source", "api", "--level", "warn"}, []string{"slow request"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewFilterCommand()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(append(append([]string{"-o", "json"}, tt.args...), logPath))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("filter failed: %v", err)
			}

			var report struct {
				Entries []struct {
					Message string `json:"message"`
				} `json:"entries"`
			}
			if err := json.Unmarshal(out.Bytes(), &report); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			var got []string
			for _, e := range report.Entries {
				got = append(got, e.Message)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunFilter_InvalidCriteria(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	tests := []struct {
		name string
		args []string
	}{
		{"bad level", []string{"--level", "loud"}},
		{"bad search", []string{"--search", "("}},
		{"bad since", []string{"--since", "yesterday"}},
		{"bad stack trace", []string{"--stack-trace", "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewFilterCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, logPath))

			err := cmd.Execute()
			if !errors.Is(err, model.ErrInvalidFilter) {
				t.Errorf("error = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestRunFilter_ProfileDefaults(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)
	ctx := withProfile(t, "filter:\n  source: api\n  levels: [INFO]\n")

	cmd := NewFilterCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	// --level overrides the profile levels; the profile source still applies
	cmd.SetArgs([]string{"-o", "json", "--level", "warn", logPath})

	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("filter failed: %v", err)
	}

	var report struct {
		Entries []struct {
			Message string `json:"message"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(report.Entries) != 1 || report.Entries[0].Message != "slow request" {
		t.Errorf("got %+v, want only slow request", report.Entries)
	}
}

func TestRunStream_NDJSON(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	cmd := NewStreamCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	var levels []string
	for scanner.Scan() {
		var e struct {
			Level      string `json:"level"`
			LineNumber int    `json:"line_number"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line is not JSON: %q: %v", scanner.Text(), err)
		}
		levels = append(levels, e.Level)
	}

	if strings.Join(levels, ",") != "INFO,ERROR,WARN" {
		t.Errorf("levels = %v", levels)
	}
}

func TestRunStream_FilterAndLimit(t *testing.T) {
	logPath := writeLog(t, "app.log", plainLog)

	cmd := NewStreamCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--level", "info", "--limit", "1", logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "server started") {
		t.Errorf("unexpected entry: %s", lines[0])
	}
}

func TestRunStream_Text(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	cmd := NewStreamCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--as", "text", logPath})

	// The profile runtime disables color
	if err := cmd.ExecuteContext(withProfile(t, "format: auto\n")); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	want := "2024-01-15 10:30:00.000 ERROR [db] query failed\n    at db.go:42\n"
	if !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
}

func TestRunStream_NegativeLimit(t *testing.T) {
	logPath := writeLog(t, "app.log", plainLog)

	cmd := NewStreamCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--limit", "-1", logPath})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestRunExport_CSV(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)
	outPath := filepath.Join(t.TempDir(), "out.csv")

	cmd := NewExportCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--as", "csv", "--out", outPath, logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header plus 3", len(records))
	}
	if strings.Join(records[0], ",") != "timestamp,level,message,source,line_number" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"2024-01-15 10:30:00.000", "ERROR", "query failed", "db", "2"}
	if strings.Join(records[2], ",") != strings.Join(want, ",") {
		t.Errorf("records[2] = %v, want %v", records[2], want)
	}
}

func TestRunExport_JSONStdout(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	cmd := NewExportCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--level", "fatal", logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("empty export = %q, want []", out.String())
	}
}

func TestRunExport_Msgpack(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	cmd := NewExportCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--as", "msgpack", "--source", "db", logPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var record map[string]any
	if err := msgpack.NewDecoder(&out).Decode(&record); err != nil {
		t.Fatalf("invalid msgpack: %v", err)
	}
	if record["message"] != "query failed" {
		t.Errorf("message = %v, want query failed", record["message"])
	}
}

func TestRunExport_UnknownFormat(t *testing.T) {
	logPath := writeLog(t, "app.jsonl", jsonLog)

	for _, as := range []string{"ndjson", "text", "xml"} {
		cmd := NewExportCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--as", as, logPath})

		if err := cmd.Execute(); err == nil {
			t.Errorf("export --as %s: expected error", as)
		}
	}
}

func TestRunValidate_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	logPath := filepath.Join(tmpDir, "test.log")

	if err := os.WriteFile(logPath, []byte(plainLog), 0644); err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}

	content := `log_sources:
  - ` + logPath + `
  - ` + filepath.Join(tmpDir, "missing.log") + `
format: plain_text
filter:
  levels: [ERROR]
  source: api
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	cmd := NewValidateCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{configPath})

	if err := cmd.Execute(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Configuration valid!", "Format:      plain_text", "levels: ERROR", "source: api", "missing.log (warning: not found)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("max_entries: 0\n"), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{configPath})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Expected error for invalid config")
	}
	if !strings.Contains(err.Error(), "max_entries") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/config.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunVersion(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out.String() != "logcat dev\n" {
		t.Errorf("version output = %q", out.String())
	}
}

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"text", "text", false},
		{"json", "json", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := createFormatter(tt.name, output.FormatOptions{})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("createFormatter() error = %v", err)
			}
			if f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogSources = []string{"from-profile.log"}

	got, err := resolvePaths([]string{"given.log"}, cfg)
	if err != nil {
		t.Fatalf("resolvePaths() error = %v", err)
	}
	if len(got) != 1 || got[0] != "given.log" {
		t.Errorf("arguments should win over the profile: %v", got)
	}

	got, err = resolvePaths(nil, cfg)
	if err != nil {
		t.Fatalf("resolvePaths() error = %v", err)
	}
	if len(got) != 1 || got[0] != "from-profile.log" {
		t.Errorf("profile sources should be used without arguments: %v", got)
	}

	if _, err := resolvePaths(nil, config.DefaultConfig()); !errors.Is(err, errNoSources) {
		t.Errorf("error = %v, want errNoSources", err)
	}
}

func TestRuntimeFrom_Defaults(t *testing.T) {
	rt := runtimeFrom(NewParseCommand())
	if rt.Logger == nil {
		t.Error("Logger should default to a no-op logger")
	}
	if rt.Config == nil || rt.Config.MaxEntries != config.DefaultMaxEntries {
		t.Errorf("Config should default to DefaultConfig, got %+v", rt.Config)
	}
	if rt.Config.CompiledFilter() == nil {
		t.Error("default config should be validated")
	}
}

func TestRuntimeOf(t *testing.T) {
	if _, ok := RuntimeOf(context.Background()); ok {
		t.Error("empty context should carry no runtime")
	}

	rt := &Runtime{Config: config.Defaults()}
	got, ok := RuntimeOf(WithRuntime(context.Background(), rt))
	if !ok || got != rt {
		t.Errorf("RuntimeOf() = %v, %v; want the attached runtime", got, ok)
	}
}
