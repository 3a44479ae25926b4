package serve

import (
	"testing"
	"time"

	"github.com/klytics/sheetgraph/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Addr = "127.0.0.1:9000"
	cfg.Server.MaxUploadMB = 4
	cfg.Server.Timeout = 5 * time.Second

	opts := options(cfg, nil)
	if opts.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected addr %q", opts.Addr)
	}
	if opts.MaxUploadBytes != 4<<20 {
		t.Errorf("expected 4 MiB, got %d", opts.MaxUploadBytes)
	}
	if opts.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout %v", opts.Timeout)
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewCommand()
	for _, name := range []string{"addr", "mcp"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
}
