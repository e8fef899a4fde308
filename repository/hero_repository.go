package repository

import (
	"context"

	"Melodia/model"

	"gorm.io/gorm"
)

// HeroRepository is the data access interface for the landing banner.
type HeroRepository interface {
	// Latest returns the most recently created banner or ErrNotFound.
	Latest(ctx context.Context) (*model.HeroImage, error)
	GetByID(ctx context.Context, id string) (*model.HeroImage, error)
	Create(ctx context.Context, hero *model.HeroImage) error
	Update(ctx context.Context, hero *model.HeroImage) error
	Delete(ctx context.Context, id string) error
}

type gormHeroRepository struct {
	db *gorm.DB
}

func NewGormHeroRepository(db *gorm.DB) HeroRepository {
	return &gormHeroRepository{db: db}
}

func (r *gormHeroRepository) Latest(ctx context.Context) (*model.HeroImage, error) {
	var hero model.HeroImage
	if err := r.db.WithContext(ctx).Order("created_at DESC").First(&hero).Error; err != nil {
		return nil, translate(err)
	}
	return &hero, nil
}

func (r *gormHeroRepository) GetByID(ctx context.Context, id string) (*model.HeroImage, error) {
	var hero model.HeroImage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&hero).Error; err != nil {
		return nil, translate(err)
	}
	return &hero, nil
}

func (r *gormHeroRepository) Create(ctx context.Context, hero *model.HeroImage) error {
	return r.db.WithContext(ctx).Create(hero).Error
}

func (r *gormHeroRepository) Update(ctx context.Context, hero *model.HeroImage) error {
	return r.db.WithContext(ctx).Save(hero).Error
}

func (r *gormHeroRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.HeroImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
