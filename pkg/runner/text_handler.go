package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
)

// ContentRenderer transforms assistant text before it is printed
// (markdown to ANSI, for instance).
type ContentRenderer func(string) (string, error)

// TextHandler implements the interactive terminal interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	// Style decorates system messages; identity when nil.
	Style  func(string) string
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStyle configures how system messages are decorated.
func WithTextHandlerStyle(style func(string) string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Style = style
	}
}

// WithTextHandlerPrompt replaces the "> " input prompt.
func WithTextHandlerPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Output prints the text outputs. Confirmations are left to the Approver.
func (h *TextHandler) Output(_ context.Context, outputs []domain.Output) error {
	for _, out := range outputs {
		if out.Type != domain.OutputText || strings.TrimSpace(out.Text) == "" {
			continue
		}
		text := out.Text
		if h.Renderer != nil {
			if rendered, err := h.Renderer(text); err == nil {
				text = rendered
			}
		}
		if _, err := fmt.Fprintln(h.Writer, strings.TrimRight(text, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// Input reads the next non-empty, sanitized line. Invalid lines are reported
// and read again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, h.Prompt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(res.text)
			if err == ErrEmptyInput {
				continue
			}
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// SystemOutput prints a meta-message on its own paragraph.
func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	if h.Style != nil {
		msg = h.Style(msg)
	}
	_, err := fmt.Fprintf(h.Writer, "\n%s\n", msg)
	return err
}
