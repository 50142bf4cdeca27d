package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/PowerQR/internal/app/model"
	"gorm.io/gorm"
)

// MappingFilter narrows an owner's mapping list.
type MappingFilter struct {
	OwnerID string
	Search  string
	Kind    model.Kind
	Status  model.Status
	Limit   int
	Offset  int
}

// MappingRepository defines the data access contract for mappings.
type MappingRepository interface {
	Create(ctx context.Context, mapping *model.Mapping) error
	GetByID(ctx context.Context, ownerID, id string) (*model.Mapping, error)
	GetByCode(ctx context.Context, code string) (*model.Mapping, error)
	List(ctx context.Context, filter MappingFilter) ([]model.Mapping, error)
	Update(ctx context.Context, mapping *model.Mapping) error
	Delete(ctx context.Context, ownerID, id string) error
	ListShortCodes(ctx context.Context) ([]string, error)
}

type mappingRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewMappingRepository returns a GORM-backed MappingRepository.
func NewMappingRepository(db *gorm.DB, timeout time.Duration) MappingRepository {
	return &mappingRepository{db: db, timeout: timeout}
}

func (r *mappingRepository) Create(ctx context.Context, mapping *model.Mapping) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	return translate(r.db.WithContext(ctx).Create(mapping).Error)
}

func (r *mappingRepository) GetByID(ctx context.Context, ownerID, id string) (*model.Mapping, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var mapping model.Mapping
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

func (r *mappingRepository) GetByCode(ctx context.Context, code string) (*model.Mapping, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var mapping model.Mapping
	if err := r.db.WithContext(ctx).
		Where("short_code = ? AND kind = ?", code, model.KindDynamic).
		First(&mapping).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

func (r *mappingRepository) List(ctx context.Context, filter MappingFilter) ([]model.Mapping, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Where("owner_id = ?", filter.OwnerID)
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(destination) LIKE ? OR LOWER(tags) LIKE ?", pattern, pattern, pattern)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var result []model.Mapping
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// Update writes the owner-editable fields. The short code and counters are never touched here.
func (r *mappingRepository) Update(ctx context.Context, mapping *model.Mapping) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("id = ? AND owner_id = ?", mapping.ID, mapping.OwnerID).
		Updates(map[string]interface{}{
			"name":             mapping.Name,
			"destination":      mapping.Destination,
			"size":             mapping.Size,
			"error_correction": mapping.ErrorCorrection,
			"foreground_color": mapping.ForegroundColor,
			"background_color": mapping.BackgroundColor,
			"status":           mapping.Status,
			"max_scans":        mapping.MaxScans,
			"expires_at":       mapping.ExpiresAt,
			"password_hash":    mapping.PasswordHash,
			"description":      mapping.Description,
			"tags":             mapping.Tags,
		})

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMappingNotFound
	}

	return translate(r.db.WithContext(ctx).Where("id = ?", mapping.ID).First(mapping).Error)
}

// Delete removes the mapping and its visits in one transaction.
func (r *mappingRepository) Delete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Mapping{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMappingNotFound
		}
		return tx.Where("mapping_id = ?", id).Delete(&model.Visit{}).Error
	})
	return translate(err)
}

func (r *mappingRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("short_code IS NOT NULL").
		Pluck("short_code", &codes).Error; err != nil {
		return nil, translate(err)
	}
	return codes, nil
}
