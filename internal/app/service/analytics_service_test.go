package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/repository"
)

func TestAnalyticsService_Scenario(t *testing.T) {
	store := newTestStore(t)
	r := newTestResolver(store, nil, nil)
	m := store.seed(t, "stats001", nil)

	resolveFrom(t, r, "stats001", "1.1.1.1", iPhoneUA)
	resolveFrom(t, r, "stats001", "2.2.2.2", windowsUA)
	resolveFrom(t, r, "stats001", "3.3.3.3", iPhoneUA)

	svc := NewAnalyticsService(store.stats, fixedClock(resolverNow.Add(time.Hour)))
	report, err := svc.AggregateDays(context.Background(), store.reload(t, m), DefaultWindowDays)
	if err != nil {
		t.Fatalf("AggregateDays: %v", err)
	}

	if report.Total != 3 || report.TotalScans != 3 || report.UniqueScans != 3 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	wantDevices := []Bucket{{Label: "mobile", Count: 2}, {Label: "desktop", Count: 1}}
	if len(report.ByDevice) != len(wantDevices) {
		t.Fatalf("unexpected devices: %+v", report.ByDevice)
	}
	for i, want := range wantDevices {
		if report.ByDevice[i] != want {
			t.Fatalf("device[%d] = %+v, want %+v", i, report.ByDevice[i], want)
		}
	}
	if len(report.ByDay) != 1 || report.ByDay[0].Day != "2026-05-10" || report.ByDay[0].Count != 3 {
		t.Fatalf("unexpected days: %+v", report.ByDay)
	}
	if len(report.ByBrowser) == 0 || report.ByBrowser[0].Count != 2 {
		t.Fatalf("unexpected browsers: %+v", report.ByBrowser)
	}
}

func TestAnalyticsService_WindowExcludesOldVisits(t *testing.T) {
	store := newTestStore(t)
	r := newTestResolver(store, nil, nil)
	m := store.seed(t, "stats002", nil)
	resolveFrom(t, r, "stats002", "1.1.1.1", iPhoneUA)

	svc := NewAnalyticsService(store.stats, fixedClock(resolverNow.Add(10*24*time.Hour)))
	report, err := svc.AggregateDays(context.Background(), m, 7)
	if err != nil {
		t.Fatalf("AggregateDays: %v", err)
	}
	if report.Total != 0 || len(report.ByDevice) != 0 || len(report.ByDay) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestAnalyticsService_RejectsBadWindow(t *testing.T) {
	svc := NewAnalyticsService(nil, nil)
	for _, days := range []int{0, -3, 1000} {
		if _, err := svc.AggregateDays(context.Background(), &model.Mapping{}, days); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("days=%d: expected ErrInvalidInput, got %v", days, err)
		}
	}
}

type mockStatsReader struct {
	countByFn    func(ctx context.Context, mappingID string, since time.Time, dim repository.Dimension) ([]model.LabelCount, error)
	countByDayFn func(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error)
}

func (m *mockStatsReader) CountBy(ctx context.Context, mappingID string, since time.Time, dim repository.Dimension) ([]model.LabelCount, error) {
	if m.countByFn != nil {
		return m.countByFn(ctx, mappingID, since, dim)
	}
	return nil, nil
}

func (m *mockStatsReader) CountByDay(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error) {
	if m.countByDayFn != nil {
		return m.countByDayFn(ctx, mappingID, since)
	}
	return nil, nil
}

func TestAnalyticsService_SortsBuckets(t *testing.T) {
	stats := &mockStatsReader{
		countByFn: func(ctx context.Context, mappingID string, since time.Time, dim repository.Dimension) ([]model.LabelCount, error) {
			return []model.LabelCount{{Label: "b", Count: 1}, {Label: "c", Count: 4}, {Label: "a", Count: 1}}, nil
		},
		countByDayFn: func(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error) {
			return []model.LabelCount{{Label: "2026-01-02", Count: 2}, {Label: "2026-01-01", Count: 4}}, nil
		},
	}

	report, err := NewAnalyticsService(stats, nil).Aggregate(context.Background(), &model.Mapping{ID: "m"}, time.Time{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got := report.ByOS; got[0].Label != "c" || got[1].Label != "a" || got[2].Label != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if report.ByDay[0].Day != "2026-01-01" || report.Total != 6 {
		t.Fatalf("unexpected days: %+v total=%d", report.ByDay, report.Total)
	}
}

func TestAnalyticsService_StoreUnavailable(t *testing.T) {
	stats := &mockStatsReader{
		countByFn: func(ctx context.Context, mappingID string, since time.Time, dim repository.Dimension) ([]model.LabelCount, error) {
			return nil, repository.ErrStoreUnavailable
		},
	}
	_, err := NewAnalyticsService(stats, nil).Aggregate(context.Background(), &model.Mapping{ID: "m"}, time.Time{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
