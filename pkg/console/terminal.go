package console

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdin is a terminal, so interactive prompts are possible
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ColorEnabled reports whether stdout is a terminal and NO_COLOR is unset
func ColorEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or 80 when unknown
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
