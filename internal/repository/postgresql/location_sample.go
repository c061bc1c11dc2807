package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/database"
)

type locationSampleRepository struct {
	db *database.DB
}

// Create implements tracking.SampleRepository.
func (r *locationSampleRepository) Create(ctx context.Context, sample tracking.LocationSample) error {
	q := GetQuerier(ctx, r.db)

	device, err := json.Marshal(sample.Device)
	if err != nil {
		return fmt.Errorf("failed to encode device: %w", err)
	}
	window, err := json.Marshal(sample.Window)
	if err != nil {
		return fmt.Errorf("failed to encode working hours: %w", err)
	}

	query := `
		INSERT INTO location_samples (
			id, user_email, user_role, latitude, longitude, altitude, accuracy,
			speed, heading, captured_at, battery_level, is_background, source,
			device, working_hours
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		sample.ID, sample.Email, string(sample.Role), sample.Latitude, sample.Longitude,
		sample.Altitude, sample.Accuracy, sample.Speed, sample.Heading, sample.CapturedAt,
		sample.BatteryLevel, sample.Backgrounded, string(sample.Source), device, window,
	)
	if err != nil {
		return fmt.Errorf("failed to create location sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tracking.ErrSampleExists
	}

	return nil
}

// ListByEmail implements tracking.SampleRepository.
func (r *locationSampleRepository) ListByEmail(ctx context.Context, email string, filter tracking.SampleFilter) ([]tracking.LocationSample, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions = []string{"user_email = $1"}
		args       = []interface{}{email}
	)
	if filter.Date != nil && *filter.Date != "" {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("(captured_at AT TIME ZONE 'UTC')::date = $%d::date", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, user_email, user_role, latitude, longitude, altitude, accuracy,
			   speed, heading, captured_at, battery_level, is_background, source,
			   device, working_hours
		FROM location_samples
		WHERE %s
		ORDER BY captured_at DESC
		LIMIT $%d
	`, strings.Join(conditions, " AND "), len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list location samples: %w", err)
	}
	defer rows.Close()

	var samples []tracking.LocationSample
	for rows.Next() {
		var (
			s              tracking.LocationSample
			role, source   string
			device, window []byte
		)
		if err := rows.Scan(
			&s.ID, &s.Email, &role, &s.Latitude, &s.Longitude, &s.Altitude, &s.Accuracy,
			&s.Speed, &s.Heading, &s.CapturedAt, &s.BatteryLevel, &s.Backgrounded, &source,
			&device, &window,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location sample: %w", err)
		}
		s.Role = tracking.Role(role)
		s.Source = tracking.Source(source)
		if len(device) > 0 {
			if err := json.Unmarshal(device, &s.Device); err != nil {
				return nil, fmt.Errorf("failed to decode device: %w", err)
			}
		}
		if len(window) > 0 {
			if err := json.Unmarshal(window, &s.Window); err != nil {
				return nil, fmt.Errorf("failed to decode working hours: %w", err)
			}
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location samples: %w", err)
	}

	return samples, nil
}

func NewLocationSampleRepository(db *database.DB) tracking.SampleRepository {
	return &locationSampleRepository{db: db}
}
