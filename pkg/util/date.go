package util

import (
    "fmt"
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// FormatCountdown renders whole seconds as zero padded HH:MM:SS.
// Negative input renders as 00:00:00.
func FormatCountdown(seconds int) string {
    if seconds < 0 {
        seconds = 0
    }
    h := seconds / 3600
    m := (seconds % 3600) / 60
    s := seconds % 60
    return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ClockLabel renders the wall clock as H:MM, hours unpadded.
func ClockLabel(t time.Time) string {
    return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}
