package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosmed/glucose-monitoring-service/internal/db"
)

// ErrDuplicateReading is returned when a reading for the same
// (device_id, timestamp) pair already exists. Duplicates are rejected,
// never overwritten.
var ErrDuplicateReading = errors.New("a reading for this device at this timestamp already exists")

const uniqueViolationCode = "23505"

const readingColumns = `id, user_id, device_id, timestamp, glucose_value,
	       confidence, sensor_data, battery_level, signal_quality, created_at`

// Repository handles database operations for readings, users and devices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserExists reports whether the user is registered.
func (r *Repository) UserExists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM users WHERE user_id = $1`, userID,
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check user existence: %w", err)
}

// DeviceOwnedBy reports whether the device exists and belongs to the user.
func (r *Repository) DeviceOwnedBy(ctx context.Context, deviceID, userID string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM devices WHERE device_id = $1 AND user_id = $2`,
		deviceID, userID,
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check device ownership: %w", err)
}

// InsertReading persists a reading and returns its assigned ID. A unique
// violation on (device_id, timestamp) is reported as ErrDuplicateReading;
// all other failures are generic storage errors.
func (r *Repository) InsertReading(ctx context.Context, reading *db.GlucoseReading) (uuid.UUID, error) {
	query := `
		INSERT INTO glucose_readings (
			id, user_id, device_id, timestamp, glucose_value,
			confidence, sensor_data, battery_level, signal_quality, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id, created_at
	`

	id := uuid.New()
	err := r.pool.QueryRow(ctx, query,
		id,
		reading.UserID,
		reading.DeviceID,
		reading.Timestamp,
		reading.GlucoseValue,
		reading.Confidence,
		reading.SensorData,
		reading.BatteryLevel,
		reading.SignalQuality,
	).Scan(&reading.ID, &reading.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return uuid.Nil, ErrDuplicateReading
		}
		return uuid.Nil, fmt.Errorf("failed to insert glucose reading: %w", err)
	}

	return reading.ID, nil
}

func scanReading(row pgx.Row) (*db.GlucoseReading, error) {
	var reading db.GlucoseReading
	err := row.Scan(
		&reading.ID,
		&reading.UserID,
		&reading.DeviceID,
		&reading.Timestamp,
		&reading.GlucoseValue,
		&reading.Confidence,
		&reading.SensorData,
		&reading.BatteryLevel,
		&reading.SignalQuality,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// MostRecentReading returns the newest reading for a user by timestamp,
// or nil when the user has none.
func (r *Repository) MostRecentReading(ctx context.Context, userID string) (*db.GlucoseReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM glucose_readings
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query most recent reading: %w", err)
	}
	return reading, nil
}

// MostRecentBefore returns the newest reading for a user strictly before the
// given timestamp, or nil when none exists.
func (r *Repository) MostRecentBefore(ctx context.Context, userID string, ts time.Time) (*db.GlucoseReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM glucose_readings
		WHERE user_id = $1 AND timestamp < $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	reading, err := scanReading(r.pool.QueryRow(ctx, query, userID, ts))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading before timestamp: %w", err)
	}
	return reading, nil
}

func (r *Repository) queryReadings(ctx context.Context, query string, args ...interface{}) ([]*db.GlucoseReading, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []*db.GlucoseReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// ReadingsForDevice returns a page of readings for a device, newest first.
func (r *Repository) ReadingsForDevice(ctx context.Context, deviceID string, limit, offset int) ([]*db.GlucoseReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM glucose_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryReadings(ctx, query, deviceID, limit, offset)
}

// ReadingsForUserSince returns all readings for a user with
// timestamp >= since, newest first.
func (r *Repository) ReadingsForUserSince(ctx context.Context, userID string, since time.Time) ([]*db.GlucoseReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM glucose_readings
		WHERE user_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
	`
	return r.queryReadings(ctx, query, userID, since)
}

// GroupedCountsForUserSince returns per-glucose-value reading counts for a
// user since the given time. Grouping in SQL keeps large analytics windows
// from loading raw rows twice.
func (r *Repository) GroupedCountsForUserSince(ctx context.Context, userID string, since time.Time) ([]db.GlucoseCount, error) {
	query := `
		SELECT glucose_value, COUNT(*) AS count
		FROM glucose_readings
		WHERE user_id = $1 AND timestamp >= $2
		GROUP BY glucose_value
		ORDER BY glucose_value
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped counts: %w", err)
	}
	defer rows.Close()

	var counts []db.GlucoseCount
	for rows.Next() {
		var c db.GlucoseCount
		if err := rows.Scan(&c.GlucoseValue, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}
