package config

import "errors"

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrThreadsEmpty       = errors.New("threads cannot be empty")
	ErrThreadsInvalid     = errors.New("thread counts must be positive")
	ErrThreadsDuplicate   = errors.New("thread counts must not repeat")
	ErrRepetitionsInvalid = errors.New("repetitions must be at least 1")
	ErrThreadEnvInvalid   = errors.New("thread_env must be a non-empty name without '='")
	ErrResultsFileEmpty   = errors.New("results_file cannot be empty")
	ErrTimeoutInvalid     = errors.New("trial_timeout must be a non-negative duration")
	ErrEnvKeyInvalid      = errors.New("env keys must be non-empty and contain no '='")
)
