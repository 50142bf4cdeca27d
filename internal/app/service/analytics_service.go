package service

import (
	"context"
	"sort"
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/repository"
)

const (
	// DefaultWindowDays is the analytics window when the caller does not pick one.
	DefaultWindowDays = 7
	maxWindowDays     = 366
)

// Bucket is one label of a breakdown.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DayBucket counts visits on one UTC calendar day (YYYY-MM-DD).
type DayBucket struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Report is the analytics rollup of one mapping since a point in time.
type Report struct {
	MappingID   string      `json:"mapping_id"`
	Since       time.Time   `json:"since"`
	Total       int64       `json:"total"`
	TotalScans  int64       `json:"total_scans"`
	UniqueScans int64       `json:"unique_scans"`
	ByDevice    []Bucket    `json:"by_device"`
	ByBrowser   []Bucket    `json:"by_browser"`
	ByOS        []Bucket    `json:"by_os"`
	ByDay       []DayBucket `json:"by_day"`
}

// AnalyticsService aggregates recorded visits. It never writes.
type AnalyticsService struct {
	stats repository.VisitStatsReader
	now   func() time.Time
}

// NewAnalyticsService returns an aggregator reading through stats.
func NewAnalyticsService(stats repository.VisitStatsReader, now func() time.Time) *AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{stats: stats, now: now}
}

// AggregateDays reports on the last days*24h.
func (s *AnalyticsService) AggregateDays(ctx context.Context, m *model.Mapping, days int) (*Report, error) {
	if days < 1 || days > maxWindowDays {
		return nil, invalidf("days must be between 1 and %d", maxWindowDays)
	}
	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	return s.Aggregate(ctx, m, since)
}

// Aggregate groups visits of m created at or after since.
func (s *AnalyticsService) Aggregate(ctx context.Context, m *model.Mapping, since time.Time) (*Report, error) {
	report := &Report{
		MappingID:   m.ID,
		Since:       since.UTC(),
		TotalScans:  m.TotalScans,
		UniqueScans: m.UniqueScans,
	}

	dims := []struct {
		dim  repository.Dimension
		dest *[]Bucket
	}{
		{repository.DimensionDevice, &report.ByDevice},
		{repository.DimensionBrowser, &report.ByBrowser},
		{repository.DimensionOS, &report.ByOS},
	}
	for _, d := range dims {
		rows, err := s.stats.CountBy(ctx, m.ID, since, d.dim)
		if err != nil {
			return nil, storeError("aggregate "+string(d.dim), err)
		}
		*d.dest = toBuckets(rows)
	}

	days, err := s.stats.CountByDay(ctx, m.ID, since)
	if err != nil {
		return nil, storeError("aggregate days", err)
	}
	report.ByDay = make([]DayBucket, 0, len(days))
	for _, row := range days {
		report.ByDay = append(report.ByDay, DayBucket{Day: row.Label, Count: row.Count})
		report.Total += row.Count
	}
	sort.Slice(report.ByDay, func(i, j int) bool { return report.ByDay[i].Day < report.ByDay[j].Day })

	return report, nil
}

// toBuckets sorts by count descending, ties broken by label.
func toBuckets(rows []model.LabelCount) []Bucket {
	out := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		out = append(out, Bucket{Label: row.Label, Count: row.Count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
