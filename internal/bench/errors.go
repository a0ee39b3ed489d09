package bench

import "errors"

// Error variables for benchmark runs.
var (
	ErrTestDirNotFound    = errors.New("test directory not found")
	ErrTestDirNotDir      = errors.New("test path is not a directory")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrExecutableIsDir    = errors.New("executable path is a directory")
	ErrInstallFailed      = errors.New("cannot install executable")
	ErrStartFailed        = errors.New("cannot start executable")
	ErrLogOpen            = errors.New("cannot open results log")
	ErrLogWrite           = errors.New("cannot write results log")
	ErrInvalidPlan        = errors.New("invalid plan")
)
