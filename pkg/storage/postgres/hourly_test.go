package postgres_test

import (
	"context"
	"testing"
	"time"

	"ratestream/config"
	"ratestream/pkg/storage/postgres"
)

// go test -v --run TestHourlyAverageCRUD
// Requires a local PostgreSQL; the test skips when none is reachable.
func TestHourlyAverageCRUD(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "ratestream_test",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	client, err := postgres.NewClient(cfg.DSN("dev"))
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if !client.IsHealthy(ctx) {
		t.Skip("postgres not healthy")
	}

	if err := client.AutoMigrateHourlyAverage(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	hour := time.Now().UTC().Truncate(time.Hour)

	record := &postgres.HourlyAverageRecord{
		Pair:      "ETH/USDT",
		HourStart: hour,
		AvgPrice:  3100.25,
		TickCount: 42,
	}
	if err := client.UpsertHourlyAverage(ctx, record); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Upsert on the same (pair, hour_start) overwrites
	record2 := &postgres.HourlyAverageRecord{
		Pair:      "ETH/USDT",
		HourStart: hour,
		AvgPrice:  3105.75,
		TickCount: 43,
	}
	if err := client.UpsertHourlyAverage(ctx, record2); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	rows, err := client.GetLatestForPairs(ctx, []string{"ETH/USDT"})
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].AvgPrice != 3105.75 || rows[0].TickCount != 43 {
		t.Errorf("unexpected row after upsert: %+v", rows[0])
	}

	if err := client.DeleteOldHourlyAverages(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Errorf("delete failed: %v", err)
	}

	rows, err = client.GetLatestForPairs(ctx, []string{"ETH/USDT"})
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows after delete, got %d", len(rows))
	}
}
