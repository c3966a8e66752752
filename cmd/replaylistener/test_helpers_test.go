package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"replaylistener/internal/config"
	"replaylistener/internal/replay"
	"replaylistener/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	api        *testsupport.ReplayAPI
	configPath string
	envPath    string
}

func setupCLITestEnv(t *testing.T, pages map[int][]replay.ID) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	api := testsupport.NewReplayAPI(t, "2025-01-02", pages)
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPI(api.URL(), api.DownloadURL()),
		testsupport.WithMaxEmptyPages(1),
	)

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		api:        api,
		configPath: configPath,
		envPath:    filepath.Join(base, "missing.env"),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath, e.envPath)
}

func runCLI(t *testing.T, args []string, configPath, envPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	if envPath != "" {
		flags = append(flags, "--env-file", envPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
