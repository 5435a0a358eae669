package tools

import (
	"strings"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
	dps "github.com/markusmobius/go-dateparser"
)

// layouts are tried before natural-language parsing, in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime reads a date argument. Exact layouts are interpreted in loc;
// anything else ("tomorrow at 10am", "next monday 14:30") is parsed relative
// to now, preferring future dates. The field name is echoed in the failure.
func ParseTime(field, value string, now time.Time, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, domain.NewToolError(domain.ErrInvalidArguments, "", "%s is required", field)
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         now.In(loc),
		DefaultTimezone:     loc,
		PreferredDateSource: dps.Future,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil || parsed.IsZero() {
		return time.Time{}, domain.NewToolError(domain.ErrInvalidArguments, "",
			"%s could not be parsed as a date: %q (use YYYY-MM-DD HH:MM)", field, value)
	}
	return parsed.Time.In(loc), nil
}

// optionalTime is ParseTime for arguments that may be omitted.
func optionalTime(field, value string, now time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return ParseTime(field, value, now, loc)
}

const displayLayout = "2006-01-02 15:04"
