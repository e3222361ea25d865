package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hyrx/stargeo_server/internal/model"
)

type LocationCacheRepository struct {
	db *gorm.DB
}

func NewLocationCacheRepository(db *gorm.DB) *LocationCacheRepository {
	return &LocationCacheRepository{db: db}
}

// Get 按归一化文本取缓存，未命中返回 (nil, nil)
func (r *LocationCacheRepository) Get(normalizedText string) (*model.LocationCache, error) {
	var entry model.LocationCache
	err := r.db.Where("location_text = ?", normalizedText).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Put 写入缓存。多个任务可能并发写同一个 key，
// 靠唯一索引 + DO NOTHING 保证幂等。
func (r *LocationCacheRepository) Put(entry *model.LocationCache) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location_text"}},
		DoNothing: true,
	}).Create(entry).Error
}
