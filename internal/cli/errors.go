package cli

import "errors"

// Error variables for the command layer.
var (
	errRunArgs         = errors.New("run requires <test_dir> and <executable>")
	errLabelEOF        = errors.New("no label given: end of input")
	errLabelAborted    = errors.New("label prompt aborted")
	errHistoryDisabled = errors.New("no history database configured (set history_db or pass --history)")
	errLimitNegative   = errors.New("--limit must be non-negative")
)
