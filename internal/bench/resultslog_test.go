package bench_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/threadbench/internal/bench"
)

func TestResultsLog_Appends_Without_Truncating(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.txt")
	require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0o600))

	log, err := bench.OpenResultsLog(context.Background(), path)
	require.NoError(t, err)

	_, err = log.Write([]byte("new line\n"))
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.NoError(t, log.Close(), "second close is a no-op")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier run\nnew line\n", string(content))
}

func TestResultsLog_Write_After_Close_Fails(t *testing.T) {
	t.Parallel()

	log, err := bench.OpenResultsLog(context.Background(), filepath.Join(t.TempDir(), "results.txt"))
	require.NoError(t, err)
	require.NoError(t, log.Close())

	_, err = log.Write([]byte("late\n"))
	assert.ErrorIs(t, err, bench.ErrLogWrite)
}

func TestResultsLog_Missing_Parent_Dir_Fails(t *testing.T) {
	t.Parallel()

	_, err := bench.OpenResultsLog(context.Background(), filepath.Join(t.TempDir(), "missing", "results.txt"))
	assert.ErrorIs(t, err, bench.ErrLogOpen)
}

func TestResultsLog_Second_Opener_Waits_For_Lock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.txt")

	first, err := bench.OpenResultsLog(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = bench.OpenResultsLog(ctx, path)
	require.ErrorIs(t, err, bench.ErrLogOpen)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Close())

	second, err := bench.OpenResultsLog(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
