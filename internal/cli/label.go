package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

const labelPrompt = "Enter program label: "

// readLabel prompts for the run label and reads one line.
//
// On an interactive terminal the prompt gets line editing and a history of
// earlier labels. Otherwise the prompt is written to out and a plain line is
// read from in. A final line without a newline is accepted; end of input with
// nothing read is an error.
func readLabel(in io.Reader, out io.Writer, env map[string]string) (string, error) {
	if in == nil {
		return "", errLabelEOF
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return promptTerminal(labelHistoryFile(env))
	}

	_, _ = fmt.Fprint(out, labelPrompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading label: %w", err)
		}

		if line == "" {
			return "", errLabelEOF
		}
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	return line, nil
}

// labelHistoryFile returns the path to the prompt history, or "" without a home.
func labelHistoryFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".threadbench_history")
}

func promptTerminal(historyPath string) (string, error) {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}

	line, err := state.Prompt(labelPrompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", errLabelAborted
		}

		if errors.Is(err, io.EOF) {
			return "", errLabelEOF
		}

		return "", fmt.Errorf("reading label: %w", err)
	}

	if strings.TrimSpace(line) != "" && historyPath != "" {
		state.AppendHistory(line)

		if f, err := os.Create(historyPath); err == nil {
			_, _ = state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return line, nil
}
