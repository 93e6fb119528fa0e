package headless

import (
	"fmt"
	"io"

	"github.com/killallgit/cognilink/pkg/logger"
)

// Output handles error output for headless mode
type Output struct {
	errOut io.Writer
}

// NewOutput creates a new output handler
func NewOutput(errOut io.Writer) *Output {
	return &Output{errOut: errOut}
}

// Error logs msg and prints it to the error stream
func (o *Output) Error(msg string) {
	logger.Error("%s", msg)
	fmt.Fprintln(o.errOut, msg)
}
