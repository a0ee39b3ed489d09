package bench

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// CheckTarget verifies that testDir is an existing directory and executable an
// existing non-directory file. It has no side effects.
func CheckTarget(testDir, executable string) error {
	info, err := os.Stat(testDir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTestDirNotFound, testDir)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrTestDirNotDir, testDir)
	}

	info, err = os.Stat(executable)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, executable)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrExecutableIsDir, executable)
	}

	return nil
}

// Install copies executable into dir under its base name and returns that name.
// The copy is written atomically and gets the source's permission bits, so a
// reader never sees a half-written binary. If the destination already is the
// source file, nothing is copied.
func Install(executable, dir string) (string, error) {
	name := filepath.Base(executable)
	dst := filepath.Join(dir, name)

	srcInfo, err := os.Stat(executable)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	if dstInfo, statErr := os.Stat(dst); statErr == nil && os.SameFile(srcInfo, dstInfo) {
		return name, nil
	}

	src, err := os.Open(executable)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	defer func() { _ = src.Close() }()

	err = atomic.WriteFile(dst, src)
	if err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrInstallFailed, dst, err)
	}

	err = os.Chmod(dst, srcInfo.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("%w: chmod %s: %w", ErrInstallFailed, dst, err)
	}

	return name, nil
}
