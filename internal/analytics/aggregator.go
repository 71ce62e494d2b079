package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/db"
)

// Clinically normal glucose band in mg/dL. Readings below are "low",
// above are "high".
const (
	NormalBandLow  = 70
	NormalBandHigh = 180
)

// CountStore provides the grouped-by-value reading counts the aggregator
// works from, so large windows never load raw rows.
type CountStore interface {
	GroupedCountsForUserSince(ctx context.Context, userID string, since time.Time) ([]db.GlucoseCount, error)
}

// TimeInRange holds the three distribution buckets as percentages of the
// total reading count, rounded to one decimal place.
type TimeInRange struct {
	Low    float64 `json:"low"`
	Normal float64 `json:"normal"`
	High   float64 `json:"high"`
}

// Summary is the on-demand analytics result for one user and window.
// It is derived, never stored. AlertsTriggered counts readings outside the
// normal band; this is a simplified proxy and intentionally does not replay
// the per-reading alert rules, so rapid-change-only alerts are not counted.
type Summary struct {
	Period          string      `json:"period"`
	AverageGlucose  float64     `json:"averageGlucose"`
	TimeInRange     TimeInRange `json:"timeInRange"`
	TotalReadings   int         `json:"totalReadings"`
	AlertsTriggered int         `json:"alertsTriggered"`
}

// Aggregator computes distribution statistics over a bounded window of a
// user's readings.
type Aggregator struct {
	store CountStore
}

// NewAggregator creates an aggregator backed by the given store.
func NewAggregator(store CountStore) *Aggregator {
	return &Aggregator{store: store}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summarize computes the analytics summary for all of a user's readings with
// timestamp >= windowStart. An empty window yields all-zero statistics, not
// an error.
func (a *Aggregator) Summarize(ctx context.Context, userID, period string, windowStart time.Time) (Summary, error) {
	counts, err := a.store.GroupedCountsForUserSince(ctx, userID, windowStart)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load grouped counts: %w", err)
	}

	summary := Summary{Period: period}

	var total, weightedSum, lowCount, normalCount, highCount int
	for _, c := range counts {
		total += c.Count
		weightedSum += c.GlucoseValue * c.Count
		switch {
		case c.GlucoseValue < NormalBandLow:
			lowCount += c.Count
		case c.GlucoseValue > NormalBandHigh:
			highCount += c.Count
		default:
			normalCount += c.Count
		}
	}

	if total == 0 {
		return summary, nil
	}

	summary.TotalReadings = total
	summary.AverageGlucose = round1(float64(weightedSum) / float64(total))
	summary.TimeInRange = TimeInRange{
		Low:    round1(float64(lowCount) / float64(total) * 100),
		Normal: round1(float64(normalCount) / float64(total) * 100),
		High:   round1(float64(highCount) / float64(total) * 100),
	}
	summary.AlertsTriggered = lowCount + highCount

	return summary, nil
}
