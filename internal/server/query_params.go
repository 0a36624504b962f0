package server

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. A bare date is read in
// loc; with endOfDay it means the start of the following day, so ranges
// stay half-open.
func parseOptionalTime(value string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc); err == nil {
		if endOfDay {
			parsed = parsed.AddDate(0, 0, 1)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseRange requires both bounds.
func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseOptionalTime(from, false, loc)
	if err != nil || start == nil {
		return time.Time{}, time.Time{}, newValidationError("from", "invalid_from", "invalid from")
	}
	end, err := parseOptionalTime(to, true, loc)
	if err != nil || end == nil {
		return time.Time{}, time.Time{}, newValidationError("to", "invalid_to", "invalid to")
	}
	return *start, *end, nil
}
