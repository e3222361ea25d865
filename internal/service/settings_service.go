package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// SettingsService 用户侧设置：GitHub token 的保存/查看/删除，
// 以及用该 token 探测 API 限流额度。
type SettingsService struct {
	userRepo  *repository.UserRepository
	githubAPI *github.Client
}

func NewSettingsService(userRepo *repository.UserRepository, githubAPI *github.Client) *SettingsService {
	return &SettingsService{
		userRepo:  userRepo,
		githubAPI: githubAPI,
	}
}

// GetGithubToken 查看 token 状态，只回显掩码后的尾部
func (s *SettingsService) GetGithubToken(userID int64) (*dto.GithubTokenResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	resp := &dto.GithubTokenResponse{}
	if user.GithubToken != nil && *user.GithubToken != "" {
		resp.HasToken = true
		resp.Token = maskToken(*user.GithubToken)
	}
	return resp, nil
}

// SaveGithubToken 保存用户的 GitHub token
func (s *SettingsService) SaveGithubToken(userID int64, token string) error {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.UpdateGithubToken(userID, &token)
}

// DeleteGithubToken 删除用户的 GitHub token
func (s *SettingsService) DeleteGithubToken(userID int64) error {
	return s.userRepo.UpdateGithubToken(userID, nil)
}

// CheckRateLimit 查询 GitHub API 限流状态。userID 为空按匿名额度查。
func (s *SettingsService) CheckRateLimit(ctx context.Context, userID *int64) (*dto.RateLimitResponse, error) {
	token := ""
	if userID != nil {
		user, err := s.userRepo.GetByID(*userID)
		if err == nil && user.GithubToken != nil {
			token = *user.GithubToken
		}
	}

	limit, err := s.githubAPI.GetRateLimit(ctx, token)
	if err != nil {
		return nil, err
	}

	return &dto.RateLimitResponse{
		Limit:     limit.Limit,
		Remaining: limit.Remaining,
		ResetAt:   limit.Reset.Format(time.RFC3339),
	}, nil
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return "***" + token
	}
	return "***" + token[len(token)-4:]
}
