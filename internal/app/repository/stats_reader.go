package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
	"gorm.io/gorm"
)

// Dimension is a visit column analytics can group by.
type Dimension string

const (
	DimensionDevice  Dimension = "device"
	DimensionBrowser Dimension = "browser"
	DimensionOS      Dimension = "os"
)

// DayLayout formats day buckets.
const DayLayout = "2006-01-02"

var dimensionColumns = map[Dimension]string{
	DimensionDevice:  "device_class",
	DimensionBrowser: "browser",
	DimensionOS:      "operating_system",
}

func columnFor(dim Dimension) (string, error) {
	col, ok := dimensionColumns[dim]
	if !ok {
		return "", fmt.Errorf("repository: unknown dimension %q", dim)
	}
	return col, nil
}

// VisitStatsReader runs the read-only grouped counts behind analytics.
// Results are unordered; callers sort.
type VisitStatsReader interface {
	CountBy(ctx context.Context, mappingID string, since time.Time, dim Dimension) ([]model.LabelCount, error)
	// CountByDay groups by UTC calendar day, labels formatted with DayLayout.
	CountByDay(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error)
}

type gormStatsReader struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewVisitStatsReader returns a GORM-backed VisitStatsReader that works on every supported driver.
func NewVisitStatsReader(db *gorm.DB, timeout time.Duration) VisitStatsReader {
	return &gormStatsReader{db: db, timeout: timeout}
}

func (r *gormStatsReader) CountBy(ctx context.Context, mappingID string, since time.Time, dim Dimension) ([]model.LabelCount, error) {
	col, err := columnFor(dim)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var rows []model.LabelCount
	if err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select(col+" AS label, COUNT(*) AS count").
		Where("mapping_id = ? AND created_at >= ?", mappingID, since.UTC()).
		Group(col).
		Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (r *gormStatsReader) CountByDay(ctx context.Context, mappingID string, since time.Time) ([]model.LabelCount, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	day := dayExpr(r.db.Dialector.Name())
	var rows []model.LabelCount
	if err := r.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select(day+" AS label, COUNT(*) AS count").
		Where("mapping_id = ? AND created_at >= ?", mappingID, since.UTC()).
		Group(day).
		Order("label").
		Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// dayExpr truncates created_at to a UTC day formatted like DayLayout.
func dayExpr(dialect string) string {
	if dialect == "postgres" {
		return "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	}
	return "strftime('%Y-%m-%d', created_at)"
}
