package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/config"
)

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		wantEnabled bool
		wantAddr    string
	}{
		{
			name:        "defaults",
			wantEnabled: true,
			wantAddr:    ":9090",
		},
		{
			name:        "env disables metrics",
			env:         map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9999"},
			wantEnabled: false,
			wantAddr:    ":9999",
		},
		{
			name:        "flags win over env",
			env:         map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": ":9999"},
			args:        []string{"--metrics-enabled=true", "--metrics-addr=:7070"},
			wantEnabled: true,
			wantAddr:    ":7070",
		},
		{
			name:        "unrecognized value keeps default",
			env:         map[string]string{"METRICS_ENABLED": "yes"},
			wantEnabled: true,
			wantAddr:    ":9090",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("METRICS_ENABLED", "")
			t.Setenv("METRICS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var cfg MetricsConfig
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().BoolVar(&cfg.Enabled, "metrics-enabled", true, "")
			cmd.Flags().StringVar(&cfg.Addr, "metrics-addr", ":9090", "")
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			loadMetricsEnvVars(cmd, &cfg)

			if cfg.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.wantEnabled)
			}
			if cfg.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", cfg.Addr, tt.wantAddr)
			}
		})
	}
}

func TestRunServe_UnsupportedTransport(t *testing.T) {
	err := runServe(validTestConfig(t), serveOptions{transport: "sse"})
	if err == nil || !strings.Contains(err.Error(), "unsupported transport type") {
		t.Errorf("runServe() error = %v, want unsupported transport", err)
	}
}

func TestCreate_DryRun(t *testing.T) {
	clearGoogleEnv(t)

	cmd := newCreateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--name", "Ada",
		"--datetime", "tomorrow at 5pm",
		"--title", "Project Sync",
		"--duration", "45",
		"--event-timezone", "Europe/Berlin",
		"--invitee", "grace@example.com,alan@example.com",
		"--dry-run",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out.String())
	}

	var preview struct {
		Title           string   `json:"title"`
		Start           string   `json:"start"`
		DurationMinutes int      `json:"durationMinutes"`
		TimeZone        string   `json:"timezone"`
		Attendees       []string `json:"attendees"`
		RequestID       string   `json:"requestId"`
	}
	if err := json.Unmarshal(out.Bytes(), &preview); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}

	if preview.Title != "Project Sync" {
		t.Errorf("title = %q", preview.Title)
	}
	if preview.DurationMinutes != 45 {
		t.Errorf("durationMinutes = %d", preview.DurationMinutes)
	}
	if preview.TimeZone != "Europe/Berlin" {
		t.Errorf("timezone = %q", preview.TimeZone)
	}
	if !strings.Contains(preview.Start, "T17:00:00+0") {
		t.Errorf("start = %q, want 17:00 with an offset", preview.Start)
	}
	if len(preview.Attendees) != 2 {
		t.Errorf("attendees = %v", preview.Attendees)
	}
	if len(preview.RequestID) != 16 {
		t.Errorf("requestId = %q", preview.RequestID)
	}
}

func TestCreate_DryRunTimeParseError(t *testing.T) {
	clearGoogleEnv(t)

	cmd := newCreateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--name", "Ada", "--datetime", "whenever suits you", "--dry-run"})

	err := cmd.Execute()
	if err == nil || !strings.HasPrefix(err.Error(), "time_parse:") {
		t.Fatalf("Execute() error = %v, want time_parse", err)
	}

	var desc map[string]any
	if err := json.Unmarshal(out.Bytes(), &desc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if desc["ok"] != false || desc["error"] != "time_parse" {
		t.Errorf("descriptor = %v", desc)
	}
}

func TestCreate_RequiresCredentials(t *testing.T) {
	clearGoogleEnv(t)

	cmd := newCreateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--name", "Ada", "--datetime", "tomorrow at 5pm"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_REFRESH_TOKEN") {
		t.Errorf("Execute() error = %v, want missing credentials", err)
	}
}

func TestGenerateDocs(t *testing.T) {
	var out bytes.Buffer
	if err := runGenerateDocs(&out, ""); err != nil {
		t.Fatalf("runGenerateDocs() error = %v", err)
	}

	doc := out.String()
	for _, want := range []string{
		"# Tools Reference",
		"- [Calendar Tools](#calendar-tools)",
		"## HTTP Endpoints",
		"### calendar_create_event",
		"### calendar_preview_event",
		"- `name` (string, required): Name of the person booking",
		"- `durationMinutes` (number, optional):",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("generated docs missing %q", want)
		}
	}
	if strings.Index(doc, "### calendar_create_event") > strings.Index(doc, "### calendar_preview_event") {
		t.Error("tools are not sorted by name")
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("calendar_example",
		mcp.WithDescription("Example tool"),
		mcp.WithString("required_arg", mcp.Required(), mcp.Description("Must be set")),
		mcp.WithBoolean("flag"),
	)

	got := generateToolMarkdown(tool)

	for _, want := range []string{
		"### calendar_example\n\nExample tool\n\n",
		"- `flag` (boolean, optional): boolean parameter\n",
		"- `required_arg` (string, required): Must be set\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("generateToolMarkdown() missing %q in:\n%s", want, got)
		}
	}
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := map[string]string{
		"calendar_create_event": "Calendar Tools",
		"calendar":              "Calendar Tools",
		"createEvent":           "Other",
		"":                      "Other",
	}
	for name, want := range tests {
		if got := getCategoryFromToolName(name); got != want {
			t.Errorf("getCategoryFromToolName(%q) = %q, want %q", name, got, want)
		}
	}
}

// clearGoogleEnv isolates tests from credentials in the developer's shell.
func clearGoogleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REFRESH_TOKEN",
		"CALENDAR_ID", "DEFAULT_TIMEZONE", "DEFAULT_EVENT_TITLE", "DEFAULT_DURATION_MINUTES",
		"TOKEN_CACHE",
	} {
		t.Setenv(key, "")
	}
}

func validTestConfig(t *testing.T) config.Config {
	t.Helper()
	clearGoogleEnv(t)
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "refresh")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}
