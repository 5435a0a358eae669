package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/concierge/pkg/domain"
)

// DefaultMaxInputSize bounds a single user message, in bytes.
const DefaultMaxInputSize = 4096

// EnvMaxInputSize overrides DefaultMaxInputSize.
const EnvMaxInputSize = "CONCIERGE_MAX_INPUT_SIZE"

// Input errors wrap domain.ErrInvalidInput so transports map them to a 400.
var (
	ErrInputTooLarge = fmt.Errorf("%w: message exceeds maximum allowed size", domain.ErrInvalidInput)
	ErrInvalidUTF8   = fmt.Errorf("%w: message contains invalid UTF-8", domain.ErrInvalidInput)
	ErrEmptyInput    = fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
)

// SanitizeInput enforces the size limit, rejects invalid UTF-8 and drops
// control characters other than newline and tab. CRLF becomes LF and
// surrounding whitespace is trimmed; a message with nothing left is rejected.
func SanitizeInput(input string) (string, error) {
	// Reject rather than truncate: half a message is a different message.
	if limit := MaxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w (size=%d limit=%d)", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	if strings.IndexFunc(input, unsafeControl) >= 0 {
		input = strings.Map(func(r rune) rune {
			if unsafeControl(r) {
				return -1
			}
			return r
		}, input)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	return input, nil
}

// IsInputError reports whether err came from SanitizeInput.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput)
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}

// MaxInputSize is the active limit.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
