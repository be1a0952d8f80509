package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"portwatch/internal/classify"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "portwatch" {
		t.Errorf("Expected Use to be 'portwatch', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	for _, name := range []string{"list", "kill", "watch", "version"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected root command to have subcommand %q", name)
		}
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "portwatch version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	if !strings.Contains(buf.String(), "portwatch version 1.0.0") {
		t.Errorf("Unexpected version output: %q", buf.String())
	}
}

func TestParsePortArg(t *testing.T) {
	if _, err := parsePortArg("0"); err == nil {
		t.Error("Expected error for port 0")
	}
	if _, err := parsePortArg("65536"); err == nil {
		t.Error("Expected error for port 65536")
	}
	if _, err := parsePortArg("http"); err == nil {
		t.Error("Expected error for non-numeric port")
	}
	port, err := parsePortArg("8080")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if port != 8080 {
		t.Errorf("Expected port 8080, got %d", port)
	}
}

func TestTruncateCell(t *testing.T) {
	if got := truncateCell("short", 10); got != "short" {
		t.Errorf("Expected short strings untouched, got %q", got)
	}
	if got := truncateCell("a-very-long-process-name", 10); got != "a-very-lo…" {
		t.Errorf("Unexpected truncation: %q", got)
	}
	// Multi-byte process names must not be split mid-rune.
	got := truncateCell("日本語のプロセス", 8)
	for _, r := range got {
		if r == '�' {
			t.Fatalf("Truncation produced an invalid rune: %q", got)
		}
	}
}

func TestParseCategories(t *testing.T) {
	set := parseCategories([]string{"web", "DB", "bogus"})
	if !set[classify.CategoryWebServer] {
		t.Error("Expected web to map to the web server category")
	}
	if !set[classify.CategoryDatabase] {
		t.Error("Expected db to map to the database category")
	}
	if len(set) != 2 {
		t.Errorf("Expected unknown names to be dropped, got %v", set)
	}

	if parseCategories(nil) != nil {
		t.Error("Expected nil for no category flags")
	}
	if parseCategories([]string{"bogus"}) != nil {
		t.Error("Expected nil when no name is recognized")
	}
}
