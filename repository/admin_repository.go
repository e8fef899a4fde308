package repository

import (
	"context"

	"Melodia/model"

	"gorm.io/gorm"
)

// AdminRepository is the data access interface for admins.
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	// First returns the oldest admin. Uploads are attributed to it.
	First(ctx context.Context) (*model.Admin, error)
}

type gormAdminRepository struct {
	db *gorm.DB
}

func NewGormAdminRepository(db *gorm.DB) AdminRepository {
	return &gormAdminRepository{db: db}
}

func (r *gormAdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	return translate(r.db.WithContext(ctx).Create(admin).Error)
}

func (r *gormAdminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (r *gormAdminRepository) First(ctx context.Context) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}
