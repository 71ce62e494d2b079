package timeparser

import (
	"fmt"
	"time"
)

// ParseReadingTimestamp attempts to parse a device-reported timestamp with
// multiple formats. Timestamps without a zone offset are assumed to be UTC.
// The result is always normalized to UTC.
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,          // 2026-01-02T15:04:05.999Z or with offset
		time.RFC3339,              // 2026-01-02T15:04:05+07:00
		"2006-01-02T15:04:05.999", // naive with fractional seconds
		"2006-01-02T15:04:05",     // naive, assumed UTC
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}
