package repository

import (
	"context"

	"Melodia/model"

	"gorm.io/gorm"
)

// SongRepository is the data access interface for songs.
type SongRepository interface {
	Create(ctx context.Context, song *model.Song) error
	GetByID(ctx context.Context, id string) (*model.Song, error)
	GetByTitle(ctx context.Context, title string) (*model.Song, error)
	ListPublished(ctx context.Context) ([]model.Song, error)
	ListAll(ctx context.Context) ([]model.Song, error)
	Update(ctx context.Context, song *model.Song) error
	Delete(ctx context.Context, id string) error
	TogglePublished(ctx context.Context, id string) (*model.Song, error)
	// IncrementPlays adds one play in a single UPDATE and returns the new count.
	IncrementPlays(ctx context.Context, id string) (int, error)
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository returns a SongRepository backed by db.
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) Create(ctx context.Context, song *model.Song) error {
	return translate(r.db.WithContext(ctx).Create(song).Error)
}

func (r *gormSongRepository) GetByID(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).Preload("UploadedBy").Where("id = ?", id).First(&song).Error
	if err != nil {
		return nil, translate(err)
	}
	return &song, nil
}

func (r *gormSongRepository) GetByTitle(ctx context.Context, title string) (*model.Song, error) {
	var song model.Song
	if err := r.db.WithContext(ctx).Where("title = ?", title).First(&song).Error; err != nil {
		return nil, translate(err)
	}
	return &song, nil
}

// ListPublished returns published songs, newest first.
func (r *gormSongRepository) ListPublished(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	err := r.db.WithContext(ctx).
		Preload("UploadedBy").
		Where("published = ?", true).
		Order("created_at DESC").
		Find(&songs).Error
	return songs, err
}

// ListAll returns every song, drafts included, newest first.
func (r *gormSongRepository) ListAll(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	err := r.db.WithContext(ctx).
		Preload("UploadedBy").
		Order("created_at DESC").
		Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) Update(ctx context.Context, song *model.Song) error {
	return translate(r.db.WithContext(ctx).Omit("UploadedBy").Save(song).Error)
}

func (r *gormSongRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Song{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormSongRepository) TogglePublished(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&song).Error; err != nil {
			return err
		}
		song.Published = !song.Published
		return tx.Model(&song).Update("published", song.Published).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &song, nil
}

func (r *gormSongRepository) IncrementPlays(ctx context.Context, id string) (int, error) {
	var plays int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Song{}).
			Where("id = ?", id).
			UpdateColumn("plays", gorm.Expr("plays + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Song{}).Select("plays").Where("id = ?", id).Scan(&plays).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return plays, nil
}
