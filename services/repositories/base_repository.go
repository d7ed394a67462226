package repositories

import "gorm.io/gorm"

// BaseRepository provides shared database access for all repositories
type BaseRepository struct {
	db *gorm.DB
}

func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

func (r BaseRepository) DB() *gorm.DB {
	return r.db
}
