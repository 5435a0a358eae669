package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
)

// JSONEvent is one line written by the JSONHandler.
type JSONEvent struct {
	Type   string         `json:"type"`
	Output *domain.Output `json:"output,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// JSONInput is the object form of an input line. Plain JSON strings and raw
// text lines are accepted too.
type JSONInput struct {
	Text string `json:"text"`
}

// JSONHandler implements IOHandler over JSON lines, for scripting and tests.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Output emits one "output" event per assistant output, confirmations included.
func (h *JSONHandler) Output(_ context.Context, outputs []domain.Output) error {
	for i := range outputs {
		if err := h.Encoder.Encode(JSONEvent{Type: "output", Output: &outputs[i]}); err != nil {
			return err
		}
	}
	return nil
}

// Input reads one line and decodes it as {"text": ...}, a JSON string, or raw text.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return "", err
		}

		text := decodeJSONInput(strings.TrimSpace(line))
		clean, serr := SanitizeInput(text)
		if serr == ErrEmptyInput {
			continue
		}
		if serr != nil {
			if encErr := h.Encoder.Encode(JSONEvent{Type: "error", Text: serr.Error()}); encErr != nil {
				return "", encErr
			}
			continue
		}
		return clean, nil
	}
}

func decodeJSONInput(line string) string {
	var obj JSONInput
	if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &obj) == nil {
		return obj.Text
	}
	var s string
	if json.Unmarshal([]byte(line), &s) == nil {
		return s
	}
	return line
}

// SystemOutput emits a "system" event.
func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	if err := h.Encoder.Encode(JSONEvent{Type: "system", Text: msg}); err != nil {
		return fmt.Errorf("failed to encode system message: %w", err)
	}
	return nil
}
