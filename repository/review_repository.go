package repository

import (
	"context"

	"Melodia/model"

	"gorm.io/gorm"
)

// ReviewRepository is the data access interface for visitor reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ListApproved(ctx context.Context) ([]model.Review, error)
	ListAll(ctx context.Context) ([]model.Review, error)
	SetApproved(ctx context.Context, id string, approved bool) (*model.Review, error)
	Delete(ctx context.Context, id string) error
}

type gormReviewRepository struct {
	db *gorm.DB
}

func NewGormReviewRepository(db *gorm.DB) ReviewRepository {
	return &gormReviewRepository{db: db}
}

func (r *gormReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return translate(r.db.WithContext(ctx).Create(review).Error)
}

func (r *gormReviewRepository) ListApproved(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Where("approved = ?", true).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r *gormReviewRepository) ListAll(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r *gormReviewRepository) SetApproved(ctx context.Context, id string, approved bool) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).Model(&review).Update("approved", approved).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *gormReviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Review{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
