package console

import (
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/killallgit/cognilink/pkg/logger"
)

// LineReader reads one line of input
type LineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// LinerReader is a line editor with persistent history
type LinerReader struct {
	line        *liner.State
	historyFile string
}

// NewLinerReader creates a line editor, loading history from historyFile when it exists
func NewLinerReader(historyFile string) *LinerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	r := &LinerReader{line: line, historyFile: historyFile}
	r.loadHistory()
	return r
}

// SetCompleter installs tab completion for slash commands
func (r *LinerReader) SetCompleter(words []string) {
	r.line.SetCompleter(func(line string) []string {
		var matches []string
		for _, w := range words {
			if strings.HasPrefix(w, line) {
				matches = append(matches, w)
			}
		}
		return matches
	})
}

// Prompt reads a line and records non-empty input in history
func (r *LinerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal
func (r *LinerReader) Close() error {
	r.saveHistory()
	return r.line.Close()
}

func (r *LinerReader) loadHistory() {
	if r.historyFile == "" {
		return
	}
	f, err := os.Open(r.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := r.line.ReadHistory(f); err != nil {
		logger.Debug("Failed to read input history: %v", err)
	}
}

func (r *LinerReader) saveHistory() {
	if r.historyFile == "" {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logger.Debug("Failed to save input history: %v", err)
		return
	}
	defer f.Close()
	if _, err := r.line.WriteHistory(f); err != nil {
		logger.Debug("Failed to write input history: %v", err)
	}
}
