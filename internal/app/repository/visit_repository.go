package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/PowerQR/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VisitGuard re-checks a mapping after its row is locked. A non-nil error aborts the recording.
type VisitGuard func(m *model.Mapping) error

// VisitRepository defines the data access contract for visits.
type VisitRepository interface {
	// Record inserts visit and bumps the mapping counters atomically. It fills visit.ID,
	// visit.IsUnique and returns the mapping as committed.
	Record(ctx context.Context, visit *model.Visit, guard VisitGuard) (*model.Mapping, error)
	ListRecent(ctx context.Context, mappingID string, limit int) ([]model.Visit, error)
}

type visitRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewVisitRepository returns a GORM-backed VisitRepository.
func NewVisitRepository(db *gorm.DB, timeout time.Duration) VisitRepository {
	return &visitRepository{db: db, timeout: timeout}
}

func (r *visitRepository) Record(ctx context.Context, visit *model.Visit, guard VisitGuard) (*model.Mapping, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}

	var mapping model.Mapping
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serialises concurrent recorders of the same mapping, which also makes the
		// first-seen check below race free.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", visit.MappingID).
			First(&mapping).Error; err != nil {
			return err
		}

		if guard != nil {
			if err := guard(&mapping); err != nil {
				return err
			}
		}

		var prior int64
		if err := tx.Model(&model.Visit{}).
			Where("mapping_id = ? AND fingerprint = ?", mapping.ID, visit.Fingerprint).
			Count(&prior).Error; err != nil {
			return err
		}
		visit.IsUnique = prior == 0

		if err := tx.Create(visit).Error; err != nil {
			return err
		}

		var uniqueInc int64
		if visit.IsUnique {
			uniqueInc = 1
		}
		if err := tx.Model(&model.Mapping{}).
			Where("id = ?", mapping.ID).
			UpdateColumns(map[string]interface{}{
				"total_scans":     gorm.Expr("total_scans + ?", 1),
				"unique_scans":    gorm.Expr("unique_scans + ?", uniqueInc),
				"last_scanned_at": visit.CreatedAt,
			}).Error; err != nil {
			return err
		}

		mapping.TotalScans++
		mapping.UniqueScans += uniqueInc
		lastScan := visit.CreatedAt
		mapping.LastScannedAt = &lastScan
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

func (r *visitRepository) ListRecent(ctx context.Context, mappingID string, limit int) ([]model.Visit, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var visits []model.Visit
	if err := r.db.WithContext(ctx).
		Where("mapping_id = ?", mappingID).
		Order("created_at DESC").
		Limit(limit).
		Find(&visits).Error; err != nil {
		return nil, translate(err)
	}
	return visits, nil
}
