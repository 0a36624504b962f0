package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

// DefaultTemplate yields PREFIX-YYMMDD-NNN. The sequence pads to three
// digits and keeps growing past 999.
const DefaultTemplate = "{PREFIX}-{YY}{MM}{DD}-{SEQ3}"

// DateKey is the per-day partition of a counter in the business location.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("060102")
}

// FormatNumber renders template for prefix, the business day of at and
// seq. It has no side effects.
func FormatNumber(template, prefix string, at time.Time, loc *time.Location, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("document number template is empty")
	}
	if strings.TrimSpace(prefix) == "" {
		return "", fmt.Errorf("document prefix is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)

	out := strings.ReplaceAll(template, "{PREFIX}", prefix)
	out = strings.ReplaceAll(out, "{YYYY}", local.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", local.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", local.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", local.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in document format: %s", out)
	}
	return out, nil
}

// Parse splits a PREFIX-YYMMDD-NNN number into its parts.
func Parse(number string) (prefix, dateKey string, seq int64, err error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) != 3 || parts[0] == "" || len(parts[1]) != 6 || len(parts[2]) < 3 {
		return "", "", 0, fmt.Errorf("malformed document number %q", number)
	}
	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq <= 0 {
		return "", "", 0, fmt.Errorf("malformed document number %q", number)
	}
	return parts[0], parts[1], seq, nil
}
