package repository

import (
	"context"
	"fmt"

	"github.com/sifan077/PowerQR/internal/app/model"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the mappings and visits tables.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.Mapping{}, &model.Visit{}); err != nil {
		return fmt.Errorf("repository: auto migrate: %w", err)
	}
	return nil
}
