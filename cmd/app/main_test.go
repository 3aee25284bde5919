package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/testutil"
)

// writeConfig points outputs and themes at temporary directories.
func writeConfig(t *testing.T) (cfgPath, outputs string) {
	t.Helper()
	dir := t.TempDir()
	outputs = filepath.Join(dir, "Outputs")
	themes := testutil.TestThemes(t, "paper-theme", "dark")
	cfgPath = filepath.Join(dir, "quire.yaml")
	cfg := "build:\n  outputs_dir: " + outputs + "\n  themes_dir: " + themes + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, outputs
}

func TestBuildCommand_ThemeAfterVault(t *testing.T) {
	cfgPath, outputs := writeConfig(t)
	vault := testutil.TestVault(t, "Garden", map[string]string{
		"Garden.md": "# Home\n",
		"Idea.md":   "An idea.\n",
	})

	for _, theme := range []string{"--dark", "-dark"} {
		err := newCommand().Run(context.Background(), []string{"quire", "--config", cfgPath, "build", vault, theme})
		if err != nil {
			t.Fatalf("build %s: %v", theme, err)
		}
		site := filepath.Join(outputs, "Garden")
		if _, err := os.Stat(filepath.Join(site, "index.html")); err != nil {
			t.Fatalf("build %s: %v", theme, err)
		}
		if css := testutil.ReadFile(t, site, "style.css"); !strings.Contains(css, "/* dark */") {
			t.Errorf("build %s: stylesheet = %q, want dark theme", theme, css)
		}
	}
}

func TestBuildCommand_ExplicitOutput(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	vault := testutil.TestVault(t, "Garden", map[string]string{"Garden.md": "# Home\n"})
	out := filepath.Join(t.TempDir(), "site")

	err := newCommand().Run(context.Background(), []string{"quire", "-c", cfgPath, "build", vault, out, "dark"})
	if err != nil {
		t.Fatal(err)
	}
	if css := testutil.ReadFile(t, out, "style.css"); !strings.Contains(css, "/* dark */") {
		t.Errorf("stylesheet = %q, want dark theme", css)
	}
}

func TestBuildCommand_MissingVault(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	err := newCommand().Run(context.Background(), []string{"quire", "--config", cfgPath, "build"})
	if !errors.Is(err, apperr.ErrVaultNotFound) {
		t.Errorf("err = %v, want ErrVaultNotFound", err)
	}
}

func TestParseBuildArgs(t *testing.T) {
	tests := []struct {
		args []string
		want buildArgs
	}{
		{nil, buildArgs{}},
		{[]string{"vault"}, buildArgs{vault: "vault"}},
		{[]string{"vault", "out"}, buildArgs{vault: "vault", output: "out"}},
		{[]string{"vault", "out", "dark"}, buildArgs{vault: "vault", output: "out", theme: "dark"}},
		{[]string{"vault", "--dark"}, buildArgs{vault: "vault", theme: "dark"}},
	}
	for _, tc := range tests {
		if got := parseBuildArgs(tc.args); got != tc.want {
			t.Errorf("parseBuildArgs(%v) = %+v, want %+v", tc.args, got, tc.want)
		}
	}
}

func TestParseServeArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    serveArgs
		wantErr bool
	}{
		{[]string{"vault"}, serveArgs{vault: "vault"}, false},
		{[]string{"vault", "dark"}, serveArgs{vault: "vault", theme: "dark"}, false},
		{[]string{"vault", "dark", "--port", "9000", "--host", "0.0.0.0"},
			serveArgs{vault: "vault", theme: "dark", port: "9000", host: "0.0.0.0"}, false},
		{[]string{"vault", "--port", "abc"}, serveArgs{vault: "vault", port: "abc"}, false},
		{[]string{"vault", "--verbose"}, serveArgs{vault: "vault"}, true},
	}
	for _, tc := range tests {
		got, err := parseServeArgs(tc.args)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseServeArgs(%v) err = %v, wantErr %v", tc.args, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseServeArgs(%v) = %+v, want %+v", tc.args, got, tc.want)
		}
	}
}

func TestParsePort(t *testing.T) {
	if p, err := parsePort("8000"); err != nil || p != 8000 {
		t.Errorf("parsePort(8000) = %d, %v", p, err)
	}
	for _, s := range []string{"abc", "0", "70000", ""} {
		if _, err := parsePort(s); !errors.Is(err, apperr.ErrInvalidPort) {
			t.Errorf("parsePort(%q) err = %v, want ErrInvalidPort", s, err)
		}
	}
}
