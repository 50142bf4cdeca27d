//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/PowerQR/config"
	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/policy"
	"github.com/sifan077/PowerQR/internal/infra/database"
	infraPostgres "github.com/sifan077/PowerQR/internal/infra/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

type pgEnv struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

func newPostgresEnv(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("powerqr"),
		postgres.WithUsername("powerqr"),
		postgres.WithPassword("powerqr"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "powerqr",
		Password: "powerqr",
		Database: "powerqr",
		SSLMode:  "disable",
		MaxConns: 10,
	}

	db, err := database.OpenPostgres(cfg)
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	if err := AutoMigrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	pool, err := infraPostgres.NewAnalyticsPool(ctx, cfg)
	if err != nil {
		t.Fatalf("open pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &pgEnv{db: db, pool: pool}
}

func TestPostgres_QuotaHoldsUnderContention(t *testing.T) {
	env := newPostgresEnv(t)
	mappings := NewMappingRepository(env.db, 5*time.Second)
	visits := NewVisitRepository(env.db, 5*time.Second)
	ctx := context.Background()

	m := seedMapping(t, mappings, "owner-1", "pgquota1")
	limit := int64(5)
	m.MaxScans = &limit
	if err := mappings.Update(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}

	guard := func(locked *model.Mapping) error {
		return policy.Evaluate(locked, time.Now()).Err()
	}

	const workers = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		denied  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := &model.Visit{MappingID: m.ID, Fingerprint: fmt.Sprintf("fp-%d", i%3), Success: true}
			_, err := visits.Record(ctx, v, guard)

			mu.Lock()
			defer mu.Unlock()
			var deniedErr *policy.DeniedError
			switch {
			case err == nil:
				granted++
			case errors.As(err, &deniedErr):
				denied++
			default:
				t.Errorf("record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if granted != int(limit) || denied != workers-int(limit) {
		t.Fatalf("expected %d granted and %d denied, got %d and %d", limit, workers-int(limit), granted, denied)
	}

	stored, err := mappings.GetByID(ctx, "owner-1", m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.TotalScans != limit {
		t.Fatalf("expected total %d, got %d", limit, stored.TotalScans)
	}
	if stored.UniqueScans > 3 {
		t.Fatalf("expected at most 3 unique, got %d", stored.UniqueScans)
	}
}

func TestPostgres_DuplicateShortCode(t *testing.T) {
	env := newPostgresEnv(t)
	mappings := NewMappingRepository(env.db, 5*time.Second)

	seedMapping(t, mappings, "owner-1", "pgdup001")
	code := "pgdup001"
	err := mappings.Create(context.Background(), &model.Mapping{
		OwnerID:     "owner-2",
		Name:        "Clash",
		Kind:        model.KindDynamic,
		Destination: "https://example.com",
		ShortCode:   &code,
		Status:      model.StatusActive,
	})
	if !errors.Is(err, ErrDuplicateShortCode) {
		t.Fatalf("expected ErrDuplicateShortCode, got %v", err)
	}
}

func TestPostgres_PgxStatsReaderMatchesGorm(t *testing.T) {
	env := newPostgresEnv(t)
	mappings := NewMappingRepository(env.db, 5*time.Second)
	visits := NewVisitRepository(env.db, 5*time.Second)
	ctx := context.Background()

	m := seedMapping(t, mappings, "owner-1", "pgstats1")
	day1 := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Hour)
	seed := []model.Visit{
		{Fingerprint: "a", DeviceClass: model.DeviceMobile, Browser: "Safari 17", OS: "iOS 17", CreatedAt: day1},
		{Fingerprint: "b", DeviceClass: model.DeviceDesktop, Browser: "Chrome 120", OS: "Windows 10", CreatedAt: day1},
		{Fingerprint: "c", DeviceClass: model.DeviceMobile, Browser: "Safari 17", OS: "iOS 17", CreatedAt: day2},
	}
	for i := range seed {
		v := seed[i]
		v.MappingID = m.ID
		v.Success = true
		if _, err := visits.Record(ctx, &v, nil); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	since := day1.Add(-time.Hour)
	readers := map[string]VisitStatsReader{
		"gorm": NewVisitStatsReader(env.db, 5*time.Second),
		"pgx":  NewPgxVisitStatsReader(env.pool, 5*time.Second),
	}
	for name, reader := range readers {
		t.Run(name, func(t *testing.T) {
			browsers, err := reader.CountBy(ctx, m.ID, since, DimensionBrowser)
			if err != nil {
				t.Fatalf("CountBy: %v", err)
			}
			got := map[string]int64{}
			for _, row := range browsers {
				got[row.Label] = row.Count
			}
			if got["Safari 17"] != 2 || got["Chrome 120"] != 1 {
				t.Fatalf("unexpected browser counts: %v", got)
			}

			days, err := reader.CountByDay(ctx, m.ID, since)
			if err != nil {
				t.Fatalf("CountByDay: %v", err)
			}
			if len(days) != 2 || days[0].Label != "2026-03-01" || days[0].Count != 2 || days[1].Label != "2026-03-02" {
				t.Fatalf("unexpected day buckets: %+v", days)
			}
		})
	}
}
