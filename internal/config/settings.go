package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

var secretKeys = map[string]bool{
	"s3.access_key": true,
	"s3.secret_key": true,
}

// Wizard asks for the settings most users change and saves them.
// If in is nil, reads from os.Stdin.
func Wizard(in io.Reader, out io.Writer) error {
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)
	ask := func(prompt, key string) {
		fmt.Fprintf(out, "  %s [%s]: ", prompt, viper.GetString(key))
		if !scanner.Scan() {
			return
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			viper.Set(key, v)
		}
	}

	fmt.Fprintln(out, "sheetgraph setup")
	fmt.Fprintln(out, strings.Repeat("-", 48))
	ask("Default output format (json, yaml, pretty)", "output.format")
	ask("HTTP listen address", "server.addr")
	ask("S3 endpoint (blank to skip)", "s3.endpoint")
	if viper.GetString("s3.endpoint") != "" {
		ask("S3 access key", "s3.access_key")
		ask("S3 secret key", "s3.secret_key")
	}

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	fmt.Fprintf(out, "\nConfig file: %s\n", ConfigPath())
	return nil
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	switch f := viper.GetString("output.format"); f {
	case "json", "yaml", "pretty":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "output.format",
			Severity: "error",
			Message:  fmt.Sprintf("unknown output format %q", f),
			Fix:      "sheetgraph config set output.format json",
		})
	}

	switch l := strings.ToLower(viper.GetString("log.level")); l {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "log.level",
			Severity: "error",
			Message:  fmt.Sprintf("unknown log level %q", l),
			Fix:      "sheetgraph config set log.level info",
		})
	}

	if d, err := time.ParseDuration(viper.GetString("server.timeout")); err != nil || d <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "server.timeout",
			Severity: "error",
			Message:  fmt.Sprintf("server.timeout %q is not a positive duration", viper.GetString("server.timeout")),
			Fix:      "sheetgraph config set server.timeout 60s",
		})
	}

	if viper.GetInt64("server.max_upload_mb") <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "server.max_upload_mb",
			Severity: "error",
			Message:  "server.max_upload_mb must be positive",
			Fix:      "sheetgraph config set server.max_upload_mb 32",
		})
	}

	if viper.GetString("s3.endpoint") == "" {
		issues = append(issues, ConfigIssue{
			Key:      "s3.endpoint",
			Severity: "info",
			Message:  "S3 endpoint is not set; s3:// inputs are disabled",
			Fix:      "sheetgraph config set s3.endpoint play.min.io",
		})
	} else if viper.GetString("s3.access_key") == "" || viper.GetString("s3.secret_key") == "" {
		issues = append(issues, ConfigIssue{
			Key:      "s3.access_key",
			Severity: "warning",
			Message:  "S3 endpoint is set without credentials; only public buckets are readable",
			Fix:      "export SHEETGRAPH_S3_ACCESS_KEY=... SHEETGRAPH_S3_SECRET_KEY=...",
		})
	}

	return issues
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	for k, v := range defaults {
		viper.Set(k, v)
	}
	return nil
}

// SaveConfig writes the current config to ~/.sheetgraph/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	// Credentials may be stored here
	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
// Credentials are masked.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	section := ""
	for _, k := range keys {
		group, name, _ := strings.Cut(k, ".")
		if group != section {
			if section != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(group + "\n")
			section = group
		}
		v := viper.GetString(k)
		if secretKeys[k] && v != "" {
			v = mask(v)
		}
		sb.WriteString(fmt.Sprintf("  %-14s %s\n", name+":", v))
	}

	return sb.String()
}

func mask(s string) string {
	return s[:min(4, len(s))] + "****"
}

// ToEnv returns every setting as SHEETGRAPH_* environment variables.
// Credentials are included unmasked.
func ToEnv() map[string]string {
	env := make(map[string]string, len(defaults))
	for k := range defaults {
		name := "SHEETGRAPH_" + strings.ToUpper(strings.ReplaceAll(k, ".", "_"))
		env[name] = viper.GetString(k)
	}
	return env
}
