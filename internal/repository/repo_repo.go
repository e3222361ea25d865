package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hyrx/stargeo_server/internal/model"
)

type RepoRepository struct {
	db *gorm.DB
}

func NewRepoRepository(db *gorm.DB) *RepoRepository {
	return &RepoRepository{db: db}
}

// GetByFullName 按 "owner/repo" 查快照，未找到返回 (nil, nil)
func (r *RepoRepository) GetByFullName(fullName string) (*model.Repository, error) {
	var repo model.Repository
	err := r.db.Where("full_name = ?", fullName).First(&repo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &repo, nil
}

// GetFresh 返回新鲜度窗口内的快照，过期或不存在返回 (nil, nil)，
// 由调用方触发重新分析。
func (r *RepoRepository) GetFresh(fullName string, window time.Duration) (*model.Repository, error) {
	repo, err := r.GetByFullName(fullName)
	if err != nil || repo == nil {
		return nil, err
	}
	if time.Since(repo.UpdatedAt) >= window {
		return nil, nil
	}
	return repo, nil
}

// GetStats 取一个快照的全部国家分布行
func (r *RepoRepository) GetStats(repositoryID int64) ([]model.CountryStat, error) {
	var stats []model.CountryStat
	err := r.db.Where("repository_id = ?", repositoryID).Find(&stats).Error
	return stats, err
}

// Replace 全量替换快照及其国家分布。已存在则原位更新快照字段，
// 删掉旧的分布行再插入新行；不存在则新建。不做增量合并——
// 上一轮分析的行绝不能留到下一轮。
func (r *RepoRepository) Replace(repo *model.Repository, stats []model.CountryStat) (int64, error) {
	var repositoryID int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Repository
		err := tx.Where("full_name = ?", repo.FullName).First(&existing).Error
		switch {
		case err == nil:
			existing.URL = repo.URL
			existing.StarCount = repo.StarCount
			existing.AnalyzedCount = repo.AnalyzedCount
			existing.UnknownCount = repo.UnknownCount
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			if err := tx.Where("repository_id = ?", existing.ID).
				Delete(&model.CountryStat{}).Error; err != nil {
				return err
			}
			repositoryID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(repo).Error; err != nil {
				return err
			}
			repositoryID = repo.ID
		default:
			return err
		}

		for i := range stats {
			stats[i].ID = 0
			stats[i].RepositoryID = repositoryID
		}
		if len(stats) > 0 {
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return repositoryID, nil
}
