package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/klytics/sheetgraph/internal/config"
)

func setup(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(viper.Reset)
	if _, err := config.Load(""); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSetThenGet(t *testing.T) {
	setup(t)
	if _, err := run(t, "set", "server.addr", ":9090"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "get", "server.addr")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ":9090") {
		t.Errorf("expected :9090, got %q", out)
	}
}

func TestGetUnset(t *testing.T) {
	setup(t)
	out, _ := run(t, "get", "s3.endpoint")
	if !strings.Contains(out, "(not set)") {
		t.Errorf("expected (not set), got %q", out)
	}
}

func TestValidateFailsOnErrors(t *testing.T) {
	setup(t)
	viper.Set("output.format", "xml")
	out, err := run(t, "validate")
	if err == nil {
		t.Error("expected validate to fail")
	}
	if !strings.Contains(out, "xml") {
		t.Errorf("expected the bad value in output, got %q", out)
	}
}

func TestValidateJSON(t *testing.T) {
	setup(t)
	out, err := run(t, "validate", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"ok": true`) || !strings.Contains(out, "s3.endpoint") {
		t.Errorf("unexpected JSON %q", out)
	}
}

func TestEnvIsSorted(t *testing.T) {
	setup(t)
	out, err := run(t, "env")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			t.Fatalf("env output not sorted at %q", lines[i])
		}
	}
	if !strings.HasPrefix(lines[0], "export SHEETGRAPH_") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestInitNonInteractive(t *testing.T) {
	setup(t)
	out, err := run(t, "init", "--no-interactive")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, config.ConfigPath()) {
		t.Errorf("expected config path in output, got %q", out)
	}
}
