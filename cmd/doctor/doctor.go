// Package doctor provides the "sheetgraph doctor" command for checking the setup.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/source"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// pinger is satisfied by *source.S3Store.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, decoders and object storage",
		Long:  "Run diagnostic checks to verify sheetgraph is properly configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}

			var store pinger
			if cfg.S3.Endpoint != "" {
				s, err := source.NewS3Store(cfg.S3)
				if err != nil {
					return err
				}
				store = s
			}

			checks := runChecks(cmd.Context(), store)
			out := cmd.OutOrStdout()
			if jsonOut {
				return output.PrintJSON(out, "doctor", checks)
			}
			return report(out, checks)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func report(out io.Writer, checks []Check) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(out, "sheetgraph doctor")
	fmt.Fprintln(out, "=================")
	fmt.Fprintln(out)

	okCount, warnCount, errCount := 0, 0, 0
	for _, c := range checks {
		var icon string
		switch c.Status {
		case "ok":
			icon = green("✓")
			okCount++
		case "warning":
			icon = yellow("!")
			warnCount++
		case "error":
			icon = red("✗")
			errCount++
		}
		fmt.Fprintf(out, "  %s %s: %s\n", icon, c.Name, c.Message)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		return fmt.Errorf("%d check(s) failed", errCount)
	}
	return nil
}

func runChecks(ctx context.Context, store pinger) []Check {
	if ctx == nil {
		ctx = context.Background()
	}
	var checks []Check

	checks = append(checks, Check{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	configFile := config.ConfigPath()
	if _, err := os.Stat(configFile); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: configFile})
	} else {
		checks = append(checks, Check{
			Name:    "Config File",
			Status:  "warning",
			Message: fmt.Sprintf("%s not found, using defaults (run 'sheetgraph config init')", configFile),
		})
	}

	checks = append(checks, configCheck())
	checks = append(checks, decoderCheck())
	checks = append(checks, s3Check(ctx, store))

	if _, err := exec.LookPath("less"); err == nil || os.Getenv("PAGER") != "" {
		checks = append(checks, Check{Name: "Pager", Status: "ok", Message: "Available for --format pretty"})
	} else {
		checks = append(checks, Check{Name: "Pager", Status: "warning", Message: "less not found and PAGER unset"})
	}

	return checks
}

func configCheck() Check {
	errs := 0
	first := ""
	for _, issue := range config.Validate() {
		if issue.Severity == "error" {
			if errs == 0 {
				first = issue.Message
			}
			errs++
		}
	}
	if errs > 0 {
		return Check{
			Name:    "Config Values",
			Status:  "error",
			Message: fmt.Sprintf("%d invalid setting(s), first: %s (run 'sheetgraph config validate')", errs, first),
		}
	}
	return Check{Name: "Config Values", Status: "ok", Message: "Valid"}
}

// decoderCheck writes a one-cell workbook to a temp file and extracts it.
func decoderCheck() Check {
	dir, err := os.MkdirTemp("", "sheetgraph-doctor-")
	if err != nil {
		return Check{Name: "Workbook Decoder", Status: "error", Message: err.Error()}
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "probe.xlsx")
	if err := xlsx.WriteFile(path, xlsx.Sheet{Name: "Probe", Rows: [][]any{{"A"}, {1}}}); err != nil {
		return Check{Name: "Workbook Decoder", Status: "error", Message: err.Error()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Check{Name: "Workbook Decoder", Status: "error", Message: err.Error()}
	}
	resp, err := pipeline.New().Extract(data, "probe.xlsx")
	if err != nil || len(resp.Tables) != 1 || len(resp.Tables[0].Nodes) != 1 {
		return Check{Name: "Workbook Decoder", Status: "error", Message: fmt.Sprintf("probe extraction failed: %v", err)}
	}
	return Check{Name: "Workbook Decoder", Status: "ok", Message: "OOXML round trip succeeded"}
}

func s3Check(ctx context.Context, store pinger) Check {
	if store == nil {
		return Check{Name: "Object Storage", Status: "ok", Message: "Not configured (s3:// inputs disabled)"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return Check{Name: "Object Storage", Status: "error", Message: err.Error()}
	}
	return Check{Name: "Object Storage", Status: "ok", Message: "Reachable"}
}
