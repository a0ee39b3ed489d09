package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/threadbench/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func load(t *testing.T, dir string, input config.LoadInput) (config.Config, error) {
	t.Helper()

	input.WorkDirOverride = dir
	if input.Env == nil {
		// Keep the caller's real ~/.config out of the picture.
		input.Env = map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")}
	}

	return config.Load(input)
}

func Test_Load_Returns_Defaults_When_No_Files_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := load(t, dir, config.LoadInput{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff([]int{1, 2, 4, 8}, cfg.Threads); diff != "" {
		t.Errorf("threads mismatch (-want +got):\n%s", diff)
	}

	if cfg.Repetitions != 5 {
		t.Errorf("repetitions = %d, want 5", cfg.Repetitions)
	}

	if cfg.ThreadEnv != "OMP_NUM_THREADS" {
		t.Errorf("thread env = %q, want OMP_NUM_THREADS", cfg.ThreadEnv)
	}

	if cfg.ResultsFileAbs != filepath.Join(dir, "results.txt") {
		t.Errorf("results file = %q", cfg.ResultsFileAbs)
	}

	if cfg.HistoryDBAbs != "" {
		t.Errorf("history db should be disabled by default, got %q", cfg.HistoryDBAbs)
	}

	if cfg.Timeout != 0 {
		t.Errorf("timeout = %v, want 0", cfg.Timeout)
	}

	if cfg.Sources.Global != "" || cfg.Sources.Project != "" {
		t.Errorf("no sources expected, got %+v", cfg.Sources)
	}
}

func Test_Load_Reads_Project_File_With_Comments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{
		// benchmark only the small configs
		"threads": [2, 1],
		"repetitions": 3,
		"trial_timeout": "90s",
		"env": {"OMP_PROC_BIND": "true"},
	}`)

	cfg, err := load(t, dir, config.LoadInput{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff([]int{2, 1}, cfg.Threads); diff != "" {
		t.Errorf("threads mismatch (-want +got):\n%s", diff)
	}

	if cfg.Repetitions != 3 {
		t.Errorf("repetitions = %d, want 3", cfg.Repetitions)
	}

	if cfg.Timeout != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Timeout)
	}

	if cfg.Env["OMP_PROC_BIND"] != "true" {
		t.Errorf("env = %v", cfg.Env)
	}

	if cfg.Sources.Project != filepath.Join(dir, config.FileName) {
		t.Errorf("project source = %q", cfg.Sources.Project)
	}
}

func Test_Load_Applies_Precedence_Global_Project_Overrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")

	writeFile(t, filepath.Join(xdg, "threadbench", "config.json"), `{
		"thread_env": "GLOBAL_THREADS",
		"repetitions": 7,
		"env": {"A": "global", "B": "global"}
	}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{
		"repetitions": 9,
		"env": {"B": "project"}
	}`)

	cfg, err := load(t, dir, config.LoadInput{
		Env:       map[string]string{"XDG_CONFIG_HOME": xdg},
		Overrides: config.Overrides{Threads: []int{16}},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ThreadEnv != "GLOBAL_THREADS" {
		t.Errorf("thread env = %q, want GLOBAL_THREADS", cfg.ThreadEnv)
	}

	if cfg.Repetitions != 9 {
		t.Errorf("repetitions = %d, want 9", cfg.Repetitions)
	}

	if diff := cmp.Diff([]int{16}, cfg.Threads); diff != "" {
		t.Errorf("threads mismatch (-want +got):\n%s", diff)
	}

	wantEnv := map[string]string{"A": "global", "B": "project"}
	if diff := cmp.Diff(wantEnv, cfg.Env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}

	if cfg.Sources.Global == "" || cfg.Sources.Project == "" {
		t.Errorf("both sources expected, got %+v", cfg.Sources)
	}
}

func Test_Load_Uses_Explicit_Config_Instead_Of_Project_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"repetitions": 2}`)
	writeFile(t, filepath.Join(dir, "ci.json"), `{"results_file": "out/ci.txt", "history_db": "hist.db"}`)

	cfg, err := load(t, dir, config.LoadInput{ConfigPath: "ci.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Repetitions != 5 {
		t.Errorf("project file should be ignored, repetitions = %d", cfg.Repetitions)
	}

	if cfg.ResultsFileAbs != filepath.Join(dir, "out", "ci.txt") {
		t.Errorf("results file = %q", cfg.ResultsFileAbs)
	}

	if cfg.HistoryDBAbs != filepath.Join(dir, "hist.db") {
		t.Errorf("history db = %q", cfg.HistoryDBAbs)
	}
}

func Test_Load_Timeout_Override_Wins_Over_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"trial_timeout": "1m"}`)

	zero := time.Duration(0)

	cfg, err := load(t, dir, config.LoadInput{Overrides: config.Overrides{TrialTimeout: &zero}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timeout != 0 {
		t.Errorf("timeout = %v, want 0", cfg.Timeout)
	}
}

func Test_Load_Rejects_Invalid_Config(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		input   config.LoadInput
		wantErr error
	}{
		{
			name:    "explicit file missing",
			input:   config.LoadInput{ConfigPath: "missing.json"},
			wantErr: config.ErrConfigFileNotFound,
		},
		{
			name:    "malformed JSON",
			file:    `{"threads": [1,`,
			wantErr: config.ErrConfigInvalid,
		},
		{
			name:    "empty threads",
			file:    `{"threads": []}`,
			wantErr: config.ErrThreadsEmpty,
		},
		{
			name:    "negative thread count",
			file:    `{"threads": [1, -2]}`,
			wantErr: config.ErrThreadsInvalid,
		},
		{
			name:    "repeated thread count",
			file:    `{"threads": [1, 2, 1]}`,
			wantErr: config.ErrThreadsDuplicate,
		},
		{
			name:    "repeated thread count override",
			input:   config.LoadInput{Overrides: config.Overrides{Threads: []int{4, 4}}},
			wantErr: config.ErrThreadsDuplicate,
		},
		{
			name:    "zero repetitions",
			file:    `{"repetitions": 0}`,
			wantErr: config.ErrRepetitionsInvalid,
		},
		{
			name:    "empty thread env",
			file:    `{"thread_env": ""}`,
			wantErr: config.ErrThreadEnvInvalid,
		},
		{
			name:    "thread env with equals",
			input:   config.LoadInput{Overrides: config.Overrides{ThreadEnv: "A=B"}},
			wantErr: config.ErrThreadEnvInvalid,
		},
		{
			name:    "empty results file",
			file:    `{"results_file": ""}`,
			wantErr: config.ErrResultsFileEmpty,
		},
		{
			name:    "bad timeout",
			file:    `{"trial_timeout": "soon"}`,
			wantErr: config.ErrTimeoutInvalid,
		},
		{
			name:    "bad env key",
			file:    `{"env": {"X=Y": "1"}}`,
			wantErr: config.ErrEnvKeyInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tc.file != "" {
				writeFile(t, filepath.Join(dir, config.FileName), tc.file)
			}

			_, err := load(t, dir, tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
