// Package config loads threadbench configuration from JSONC files and CLI overrides.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Threads      []int             `json:"threads"`
	Repetitions  int               `json:"repetitions"`
	ThreadEnv    string            `json:"thread_env"`
	ResultsFile  string            `json:"results_file"`
	TrialTimeout string            `json:"trial_timeout,omitempty"`
	HistoryDB    string            `json:"history_db,omitempty"`
	Env          map[string]string `json:"env,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd   string        `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	ResultsFileAbs string        `json:"-"` // Absolute path to the results log
	HistoryDBAbs   string        `json:"-"` // Absolute path to the history database, empty if disabled
	Timeout        time.Duration `json:"-"` // Parsed TrialTimeout, 0 means no timeout

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultThreads is the thread-count sequence benchmarked when nothing overrides it.
var DefaultThreads = []int{1, 2, 4, 8}

// Defaults for the remaining options.
const (
	DefaultRepetitions = 5
	DefaultThreadEnv   = "OMP_NUM_THREADS"
	DefaultResultsFile = "results.txt"
)

// FileName is the default project config file name.
const FileName = ".threadbench.json"

// Default returns the default configuration.
func Default() Config {
	return Config{
		Threads:     slices.Clone(DefaultThreads),
		Repetitions: DefaultRepetitions,
		ThreadEnv:   DefaultThreadEnv,
		ResultsFile: DefaultResultsFile,
	}
}

// Overrides holds values set on the command line. Zero values mean "not set".
type Overrides struct {
	Threads      []int
	Repetitions  int
	ThreadEnv    string
	ResultsFile  string
	TrialTimeout *time.Duration
	HistoryDB    string
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Overrides         // command flags
	Env             map[string]string // environment variables
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/threadbench/config.json if set, otherwise
// ~/.config/threadbench/config.json. Returns empty string if home cannot be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "threadbench", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "threadbench", "config.json")
	}

	return ""
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.threadbench.json in the working directory, if exists)
// 4. Explicit config file via ConfigPath (replaces 3, must exist)
// 5. CLI overrides.
//
// Relative paths in the returned Config are resolved against the working directory.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	globalCfg, globalFile, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalFile
	cfg = merge(cfg, globalCfg)

	projectCfg, projectFile, err := loadProject(absWorkDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectFile
	cfg = merge(cfg, projectCfg)

	cfg = applyOverrides(cfg, input.Overrides)

	timeout, err := validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.Timeout = timeout
	cfg.EffectiveCwd = absWorkDir
	cfg.ResultsFileAbs = resolve(absWorkDir, cfg.ResultsFile)

	if cfg.HistoryDB != "" {
		cfg.HistoryDBAbs = resolve(absWorkDir, cfg.HistoryDB)
	}

	return cfg, nil
}

// Format renders the config as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads the project config file or an explicit config file.
func loadProject(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = resolve(workDir, configPath)
		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, FileName)
	}

	cfg, loaded, err := loadFile(cfgFile, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, cfgFile, nil
}

// loadFile loads a config file. If mustExist is false, missing files return zero config.
// Returns the config, whether the file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	// A key that is present but empty is a mistake, not a request for the default.
	var raw map[string]json.RawMessage

	_ = json.Unmarshal(standardized, &raw)

	if val, ok := raw["threads"]; ok && isEmptyJSON(val) {
		return Config{}, ErrThreadsEmpty
	}

	if val, ok := raw["thread_env"]; ok && isEmptyJSON(val) {
		return Config{}, ErrThreadEnvInvalid
	}

	if val, ok := raw["results_file"]; ok && isEmptyJSON(val) {
		return Config{}, ErrResultsFileEmpty
	}

	if val, ok := raw["repetitions"]; ok && strings.TrimSpace(string(val)) == "0" {
		return Config{}, ErrRepetitionsInvalid
	}

	return cfg, nil
}

func isEmptyJSON(val json.RawMessage) bool {
	switch strings.TrimSpace(string(val)) {
	case `""`, `[]`, `null`:
		return true
	default:
		return false
	}
}

func merge(base, overlay Config) Config {
	if len(overlay.Threads) > 0 {
		base.Threads = slices.Clone(overlay.Threads)
	}

	if overlay.Repetitions != 0 {
		base.Repetitions = overlay.Repetitions
	}

	if overlay.ThreadEnv != "" {
		base.ThreadEnv = overlay.ThreadEnv
	}

	if overlay.ResultsFile != "" {
		base.ResultsFile = overlay.ResultsFile
	}

	if overlay.TrialTimeout != "" {
		base.TrialTimeout = overlay.TrialTimeout
	}

	if overlay.HistoryDB != "" {
		base.HistoryDB = overlay.HistoryDB
	}

	if len(overlay.Env) > 0 {
		env := make(map[string]string, len(base.Env)+len(overlay.Env))
		maps.Copy(env, base.Env)
		maps.Copy(env, overlay.Env)
		base.Env = env
	}

	return base
}

func applyOverrides(cfg Config, o Overrides) Config {
	if len(o.Threads) > 0 {
		cfg.Threads = slices.Clone(o.Threads)
	}

	if o.Repetitions != 0 {
		cfg.Repetitions = o.Repetitions
	}

	if o.ThreadEnv != "" {
		cfg.ThreadEnv = o.ThreadEnv
	}

	if o.ResultsFile != "" {
		cfg.ResultsFile = o.ResultsFile
	}

	if o.TrialTimeout != nil {
		cfg.TrialTimeout = o.TrialTimeout.String()
	}

	if o.HistoryDB != "" {
		cfg.HistoryDB = o.HistoryDB
	}

	return cfg
}

// validate checks the merged config and returns the parsed trial timeout.
func validate(cfg Config) (time.Duration, error) {
	if len(cfg.Threads) == 0 {
		return 0, ErrThreadsEmpty
	}

	seen := make(map[int]bool, len(cfg.Threads))

	for _, n := range cfg.Threads {
		if n <= 0 {
			return 0, fmt.Errorf("%w: %d", ErrThreadsInvalid, n)
		}

		if seen[n] {
			return 0, fmt.Errorf("%w: %d", ErrThreadsDuplicate, n)
		}

		seen[n] = true
	}

	if cfg.Repetitions < 1 {
		return 0, fmt.Errorf("%w: %d", ErrRepetitionsInvalid, cfg.Repetitions)
	}

	if cfg.ThreadEnv == "" || strings.Contains(cfg.ThreadEnv, "=") {
		return 0, ErrThreadEnvInvalid
	}

	if cfg.ResultsFile == "" {
		return 0, ErrResultsFileEmpty
	}

	for key := range cfg.Env {
		if key == "" || strings.Contains(key, "=") {
			return 0, fmt.Errorf("%w: %q", ErrEnvKeyInvalid, key)
		}
	}

	if cfg.TrialTimeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(cfg.TrialTimeout)
	if err != nil || timeout < 0 {
		return 0, fmt.Errorf("%w: %q", ErrTimeoutInvalid, cfg.TrialTimeout)
	}

	return timeout, nil
}
