package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/repository"
)

// AnalysisResult 一次完整分析的产出
type AnalysisResult struct {
	RepositoryID        int64
	FullName            string
	URL                 string
	StarCount           int
	AnalyzedCount       int
	UnknownCount        int
	CountryDistribution []dto.CountryStatItem
}

// AnalyzerService 端到端的分析流水线：结果缓存 → 采集 → 解析位置 → 聚合入库。
type AnalyzerService struct {
	repoRepo    *repository.RepoRepository
	githubAPI   *github.Client
	stargazers  *StargazerService
	locations   *LocationService
	freshness   time.Duration
	lookupDelay time.Duration
}

func NewAnalyzerService(
	repoRepo *repository.RepoRepository,
	githubAPI *github.Client,
	stargazers *StargazerService,
	locations *LocationService,
	cfg *config.Config,
) *AnalyzerService {
	return &AnalyzerService{
		repoRepo:    repoRepo,
		githubAPI:   githubAPI,
		stargazers:  stargazers,
		locations:   locations,
		freshness:   time.Duration(cfg.Analysis.FreshnessHours) * time.Hour,
		lookupDelay: time.Duration(cfg.Geocoding.LookupDelayMs) * time.Millisecond,
	}
}

// Analyze 分析一个仓库的 stargazer 国家分布。
// 新鲜度窗口内的快照直接复用，不发任何网络请求。
func (s *AnalyzerService) Analyze(ctx context.Context, repoURL string, maxStargazers int, token string, onProgress ProgressFunc) (*AnalysisResult, error) {
	owner, repo, err := github.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	fullName := owner + "/" + repo

	if cached, err := s.cachedResult(fullName, onProgress); err != nil || cached != nil {
		return cached, err
	}

	if err := emit(onProgress, Progress{
		Stage:   StageFetchingRepo,
		Message: "Fetching repository information...",
	}); err != nil {
		return nil, err
	}

	repoInfo, err := s.githubAPI.GetRepository(ctx, owner, repo, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", fullName, err)
	}

	target := maxStargazers
	if repoInfo.StargazersCount < target {
		target = repoInfo.StargazersCount
	}

	stargazers, err := s.stargazers.Acquire(ctx, owner, repo, target, token, onProgress)
	if err != nil {
		return nil, err
	}

	countries, unknownCount, err := s.resolveLocations(ctx, stargazers, onProgress)
	if err != nil {
		return nil, err
	}

	stats := make([]model.CountryStat, 0, len(countries))
	distribution := make([]dto.CountryStatItem, 0, len(countries))
	for _, c := range countries {
		stats = append(stats, model.CountryStat{
			CountryCode: c.CountryCode,
			CountryName: c.CountryName,
			Count:       c.Count,
		})
		distribution = append(distribution, c)
	}

	repositoryID, err := s.repoRepo.Replace(&model.Repository{
		FullName:      fullName,
		URL:           repoURL,
		StarCount:     repoInfo.StargazersCount,
		AnalyzedCount: len(stargazers),
		UnknownCount:  unknownCount,
	}, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to save analysis result: %w", err)
	}

	if err := emit(onProgress, Progress{
		Stage:     StageComplete,
		Processed: len(stargazers),
		Total:     len(stargazers),
		Message:   "Analysis complete!",
	}); err != nil {
		return nil, err
	}

	return &AnalysisResult{
		RepositoryID:        repositoryID,
		FullName:            fullName,
		URL:                 repoURL,
		StarCount:           repoInfo.StargazersCount,
		AnalyzedCount:       len(stargazers),
		UnknownCount:        unknownCount,
		CountryDistribution: distribution,
	}, nil
}

// cachedResult 查询新鲜快照，命中时原样返回缓存的聚合结果
func (s *AnalyzerService) cachedResult(fullName string, onProgress ProgressFunc) (*AnalysisResult, error) {
	existing, err := s.repoRepo.GetFresh(fullName, s.freshness)
	if err != nil || existing == nil {
		return nil, err
	}

	stats, err := s.repoRepo.GetStats(existing.ID)
	if err != nil {
		return nil, err
	}

	if err := emit(onProgress, Progress{
		Stage:     StageComplete,
		Processed: existing.AnalyzedCount,
		Total:     existing.AnalyzedCount,
		Message:   "Using cached analysis result",
	}); err != nil {
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

	return &AnalysisResult{
		RepositoryID:        existing.ID,
		FullName:            existing.FullName,
		URL:                 existing.URL,
		StarCount:           existing.StarCount,
		AnalyzedCount:       existing.AnalyzedCount,
		UnknownCount:        existing.UnknownCount,
		CountryDistribution: distribution,
	}, nil
}

// resolveLocations 逐个解析位置并聚合计数。空位置直接记未知，
// 不触发地理查询；相邻两次查询之间留出限流间隔。
func (s *AnalyzerService) resolveLocations(ctx context.Context, stargazers []Stargazer, onProgress ProgressFunc) ([]dto.CountryStatItem, int, error) {
	counts := make(map[string]*dto.CountryStatItem)
	order := make([]string, 0)
	unknownCount := 0

	for i, user := range stargazers {
		hasLocation := user.Location != nil && *user.Location != ""
		if !hasLocation {
			unknownCount++
		} else {
			country, err := s.locations.Resolve(ctx, *user.Location)
			if err != nil {
				return nil, 0, err
			}
			if country == nil {
				unknownCount++
			} else if existing, ok := counts[country.Code]; ok {
				existing.Count++
			} else {
				counts[country.Code] = &dto.CountryStatItem{
					CountryCode: country.Code,
					CountryName: country.Name,
					Count:       1,
				}
				order = append(order, country.Code)
			}
		}

		if (i+1)%10 == 0 || i == len(stargazers)-1 {
			if err := emit(onProgress, Progress{
				Stage:     StageResolvingLocations,
				Processed: i + 1,
				Total:     len(stargazers),
				Message:   fmt.Sprintf("Analyzed %d of %d locations...", i+1, len(stargazers)),
			}); err != nil {
				return nil, 0, err
			}
		}

		if s.lookupDelay > 0 && hasLocation && i < len(stargazers)-1 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(s.lookupDelay):
			}
		}
	}

	result := make([]dto.CountryStatItem, 0, len(order))
	for _, code := range order {
		result = append(result, *counts[code])
	}
	return result, unknownCount, nil
}
