package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
)

// Stargazer 一个 stargazer 及其（可能缺失的）位置
type Stargazer struct {
	Login    string
	Location *string
}

// StargazerService 分页拉取仓库的 stargazer 并补齐用户详情。
type StargazerService struct {
	client      *github.Client
	pageDelay   time.Duration
	detailDelay time.Duration
}

func NewStargazerService(client *github.Client, cfg *config.GitHubConfig) *StargazerService {
	return &StargazerService{
		client:      client,
		pageDelay:   time.Duration(cfg.PageDelayMs) * time.Millisecond,
		detailDelay: time.Duration(cfg.DetailDelayMs) * time.Millisecond,
	}
}

// Acquire 拉取至多 target 个 stargazer 的用户名和位置。
// 翻页顺序进行，页间有固定延迟；403 限流对整次采集致命。
// 单个用户详情失败只把该用户记为位置未知，不会中断。
func (s *StargazerService) Acquire(ctx context.Context, owner, repo string, target int, token string, onProgress ProgressFunc) ([]Stargazer, error) {
	logins, err := s.fetchLogins(ctx, owner, repo, target, token, onProgress)
	if err != nil {
		return nil, err
	}

	return s.fetchDetails(ctx, logins, token, onProgress)
}

func (s *StargazerService) fetchLogins(ctx context.Context, owner, repo string, target int, token string, onProgress ProgressFunc) ([]string, error) {
	var logins []string
	page := 1

	for len(logins) < target {
		perPage := github.PerPage
		if remaining := target - len(logins); remaining < perPage {
			perPage = remaining
		}

		batch, err := s.client.ListStargazers(ctx, owner, repo, page, perPage, token)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch stargazers page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break // 取完了
		}

		logins = append(logins, batch...)
		if err := emit(onProgress, Progress{
			Stage:     StageFetchingStargazers,
			Processed: len(logins),
			Total:     target,
			Message:   fmt.Sprintf("Fetched %d of %d stargazers...", len(logins), target),
		}); err != nil {
			return nil, err
		}

		if len(batch) < perPage {
			break
		}
		page++

		if s.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
	}

	return logins, nil
}

func (s *StargazerService) fetchDetails(ctx context.Context, logins []string, token string, onProgress ProgressFunc) ([]Stargazer, error) {
	stargazers := make([]Stargazer, 0, len(logins))

	for i, login := range logins {
		detail, err := s.client.GetUser(ctx, login, token)
		if err != nil {
			// 单个用户失败不致命，位置按未知处理
			log.Printf("Failed to fetch details for %s: %v", login, err)
			stargazers = append(stargazers, Stargazer{Login: login})
		} else {
			stargazers = append(stargazers, Stargazer{Login: detail.Login, Location: detail.Location})
		}

		if (i+1)%10 == 0 || i == len(logins)-1 {
			if err := emit(onProgress, Progress{
				Stage:     StageFetchingDetails,
				Processed: i + 1,
				Total:     len(logins),
				Message:   fmt.Sprintf("Fetched details for %d of %d users...", i+1, len(logins)),
			}); err != nil {
				return nil, err
			}
		}

		if s.detailDelay > 0 && i < len(logins)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.detailDelay):
			}
		}
	}

	return stargazers, nil
}
