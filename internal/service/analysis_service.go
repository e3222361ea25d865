package service

import (
	"errors"
	"time"

	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/repository"
)

var ErrAnalysisNotFound = errors.New("no analysis found for this repository")

// AnalysisService 已完成分析结果的读取端
type AnalysisService struct {
	repoRepo *repository.RepoRepository
}

func NewAnalysisService(repoRepo *repository.RepoRepository) *AnalysisService {
	return &AnalysisService{repoRepo: repoRepo}
}

// GetByFullName 取一个仓库的最新快照和国家分布
func (s *AnalysisService) GetByFullName(fullName string) (*dto.AnalysisDetail, error) {
	repo, err := s.repoRepo.GetByFullName(fullName)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, ErrAnalysisNotFound
	}

	stats, err := s.repoRepo.GetStats(repo.ID)
	if err != nil {
		return nil, err
	}

	distribution := make([]dto.CountryStatItem, len(stats))
	for i, stat := range stats {
		distribution[i] = dto.CountryStatItem{
			CountryCode: stat.CountryCode,
			CountryName: stat.CountryName,
			Count:       stat.Count,
		}
	}

	return &dto.AnalysisDetail{
		RepositoryID:        repo.ID,
		FullName:            repo.FullName,
		URL:                 repo.URL,
		StarCount:           repo.StarCount,
		AnalyzedCount:       repo.AnalyzedCount,
		UnknownCount:        repo.UnknownCount,
		UpdatedAt:           repo.UpdatedAt.Format(time.RFC3339),
		CountryDistribution: distribution,
	}, nil
}
