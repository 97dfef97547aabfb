package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// HourlyAverageRecord is one completed hourly aggregation bucket for a pair.
type HourlyAverageRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Pair      string    `gorm:"type:varchar(20);not null;index:idx_hourly_pair;index:idx_hourly_pair_hour_start,unique"`
	HourStart time.Time `gorm:"not null;index:idx_hourly_pair_hour_start,unique"`

	AvgPrice  float64 `gorm:"type:numeric;not null"`
	TickCount int     `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (HourlyAverageRecord) TableName() string {
	return "hourly_averages"
}

// UpsertHourlyAverage inserts or overwrites the row for (pair, hour_start).
// Idempotent: re-archiving the same bucket just refreshes average and count.
func (p *PostgresClient) UpsertHourlyAverage(ctx context.Context, record *HourlyAverageRecord) error {
	return p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "pair"},
			{Name: "hour_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"avg_price", "tick_count"}),
	}).Create(record).Error
}

// GetLatestForPairs returns the most recent archived bucket for each of the
// given pairs. Pairs with no archived hours are simply absent.
func (p *PostgresClient) GetLatestForPairs(ctx context.Context, pairs []string) ([]HourlyAverageRecord, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	var rows []HourlyAverageRecord
	err := p.DB.WithContext(ctx).
		Where("pair IN ?", pairs).
		Order("hour_start DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string]HourlyAverageRecord, len(pairs))
	for _, row := range rows {
		if _, ok := latest[row.Pair]; !ok {
			latest[row.Pair] = row
		}
	}

	out := make([]HourlyAverageRecord, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	return out, nil
}

// DeleteOldHourlyAverages prunes buckets older than the given time.
func (p *PostgresClient) DeleteOldHourlyAverages(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("hour_start < ?", before).
		Delete(&HourlyAverageRecord{}).Error
}
