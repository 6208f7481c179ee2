package heartbeat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuietHours is a daily window during which heartbeats are skipped.
// Written "HH:MM-HH:MM" (24-hour); a start after the end wraps midnight,
// as in "23:00-07:00".
type QuietHours struct {
	Start time.Duration
	End   time.Duration
}

// ParseQuietHours parses "HH:MM-HH:MM".
func ParseQuietHours(s string) (QuietHours, error) {
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return QuietHours{}, fmt.Errorf("%w: expected HH:MM-HH:MM, got %q", ErrInvalidQuiet, s)
	}
	start, err := parseClock(strings.TrimSpace(startStr))
	if err != nil {
		return QuietHours{}, fmt.Errorf("%w: start: %w", ErrInvalidQuiet, err)
	}
	end, err := parseClock(strings.TrimSpace(endStr))
	if err != nil {
		return QuietHours{}, fmt.Errorf("%w: end: %w", ErrInvalidQuiet, err)
	}
	return QuietHours{Start: start, End: end}, nil
}

func parseClock(s string) (time.Duration, error) {
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q", hs)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, fmt.Errorf("invalid minute %q", ms)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range: %02d:%02d", h, m)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// Contains reports whether t's wall-clock time falls in the window.
// Convert t to the intended timezone first.
func (q QuietHours) Contains(t time.Time) bool {
	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second

	if q.Start == q.End {
		return false
	}
	if q.Start < q.End {
		return offset >= q.Start && offset < q.End
	}
	return offset >= q.Start || offset < q.End
}
