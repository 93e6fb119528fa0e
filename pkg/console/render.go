package console

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/killallgit/cognilink/pkg/logger"
)

const fence = "```"

// Renderer writes streamed Markdown to a terminal, highlighting fenced code
// line by line. Prose is written as soon as it arrives; lines inside a fence,
// and lines that may open one, are held until their newline.
type Renderer struct {
	out       io.Writer
	color     bool
	formatter chroma.Formatter
	style     *chroma.Style

	line    strings.Builder // unwritten part of the current line
	started bool            // part of the current line was already written
	inFence bool
	lexer   chroma.Lexer
}

func NewRenderer(out io.Writer, color bool) *Renderer {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Renderer{
		out:       out,
		color:     color,
		formatter: formatter,
		style:     styles.Get("monokai"),
	}
}

// Write implements io.Writer
func (r *Renderer) Write(p []byte) (int, error) {
	text := string(p)
	for text != "" {
		segment, rest, newline := strings.Cut(text, "\n")
		r.line.WriteString(segment)
		if newline {
			if err := r.endLine(); err != nil {
				return 0, err
			}
		} else if err := r.maybeWritePartial(); err != nil {
			return 0, err
		}
		text = rest
	}
	return len(p), nil
}

// Flush writes any held partial line and resets fence state
func (r *Renderer) Flush() error {
	defer r.reset()
	if r.line.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(r.out, r.line.String())
	return err
}

func (r *Renderer) reset() {
	r.line.Reset()
	r.started = false
	r.inFence = false
	r.lexer = nil
}

// maybeWritePartial writes the pending text unless it could still be a fence line
func (r *Renderer) maybeWritePartial() error {
	if r.inFence {
		return nil
	}
	pending := r.line.String()
	if !r.started && mayOpenFence(pending) {
		return nil
	}
	r.line.Reset()
	r.started = true
	_, err := io.WriteString(r.out, pending)
	return err
}

func mayOpenFence(partial string) bool {
	trimmed := strings.TrimLeft(partial, " \t")
	if len(trimmed) < len(fence) {
		return strings.HasPrefix(fence, trimmed)
	}
	return strings.HasPrefix(trimmed, fence)
}

func (r *Renderer) endLine() error {
	line := r.line.String()
	started := r.started
	r.line.Reset()
	r.started = false

	if started {
		_, err := io.WriteString(r.out, line+"\n")
		return err
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, fence) && !r.inFence:
		r.inFence = true
		r.lexer = lexerFor(strings.TrimSpace(strings.TrimPrefix(trimmed, fence)))
		return r.writeStyled(fenceStyle, line)
	case trimmed == fence && r.inFence:
		r.inFence = false
		r.lexer = nil
		return r.writeStyled(fenceStyle, line)
	case r.inFence:
		_, err := io.WriteString(r.out, r.highlight(line)+"\n")
		return err
	default:
		_, err := io.WriteString(r.out, line+"\n")
		return err
	}
}

func (r *Renderer) writeStyled(style interface{ Render(...string) string }, line string) error {
	if r.color {
		line = style.Render(line)
	}
	_, err := io.WriteString(r.out, line+"\n")
	return err
}

func lexerFor(language string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// highlight renders one code line, falling back to plain text
func (r *Renderer) highlight(line string) string {
	if !r.color || r.lexer == nil {
		return line
	}
	iterator, err := r.lexer.Tokenise(nil, line)
	if err != nil {
		logger.Debug("Failed to tokenize code, using plain text: %v", err)
		return line
	}
	var buf strings.Builder
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		logger.Debug("Failed to format code, using plain text: %v", err)
		return line
	}
	return strings.TrimRight(buf.String(), "\n")
}
