package timeparser_test

import (
	"testing"
	"time"

	"github.com/kosmed/glucose-monitoring-service/tools/timeparser"
)

func TestParseReadingTimestamp_RFC3339(t *testing.T) {
	ts, err := timeparser.ParseReadingTimestamp("2026-08-27T10:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts)
	}
}

func TestParseReadingTimestamp_OffsetNormalizedToUTC(t *testing.T) {
	ts, err := timeparser.ParseReadingTimestamp("2026-08-27T12:30:00+02:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts)
	}
	if ts.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", ts.Location())
	}
}

func TestParseReadingTimestamp_NaiveAssumedUTC(t *testing.T) {
	ts, err := timeparser.ParseReadingTimestamp("2026-08-27T10:30:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts)
	}
}

func TestParseReadingTimestamp_Invalid(t *testing.T) {
	_, err := timeparser.ParseReadingTimestamp("27/08/2026 10:30:00")
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}
