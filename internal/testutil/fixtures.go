package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/hyrx/stargeo_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", time.Now().UnixNano()%100000),
		Email:        &email,
		PasswordHash: &passwordHash,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithGithubToken 设置 GitHub token
func WithGithubToken(token string) func(*model.User) {
	return func(u *model.User) {
		u.GithubToken = &token
	}
}

// TestTask 创建测试分析任务
func TestTask(t *testing.T, db *gorm.DB, opts ...func(*model.AnalysisTask)) *model.AnalysisTask {
	t.Helper()

	task := &model.AnalysisTask{
		RepoURL:       "https://github.com/octocat/hello-world",
		FullName:      "octocat/hello-world",
		MaxStargazers: 1000,
		Status:        model.TaskStatusPending,
	}

	for _, opt := range opts {
		opt(task)
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return task
}

// WithTaskStatus 设置任务状态
func WithTaskStatus(status string) func(*model.AnalysisTask) {
	return func(task *model.AnalysisTask) {
		task.Status = status
	}
}

// WithTaskRepo 设置任务关联的仓库
func WithTaskRepo(repoURL, fullName string) func(*model.AnalysisTask) {
	return func(task *model.AnalysisTask) {
		task.RepoURL = repoURL
		task.FullName = fullName
	}
}

// WithTaskUser 设置任务所属用户
func WithTaskUser(userID int64) func(*model.AnalysisTask) {
	return func(task *model.AnalysisTask) {
		task.UserID = &userID
	}
}

// TestRepository 创建测试仓库快照
func TestRepository(t *testing.T, db *gorm.DB, opts ...func(*model.Repository)) *model.Repository {
	t.Helper()

	suffix := time.Now().UnixNano() % 100000
	repo := &model.Repository{
		FullName:      fmt.Sprintf("owner/repo_%d", suffix),
		URL:           fmt.Sprintf("https://github.com/owner/repo_%d", suffix),
		StarCount:     500,
		AnalyzedCount: 100,
		UnknownCount:  10,
	}

	for _, opt := range opts {
		opt(repo)
	}

	if err := db.Create(repo).Error; err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}

	return repo
}

// WithFullName 设置仓库全名
func WithFullName(fullName string) func(*model.Repository) {
	return func(r *model.Repository) {
		r.FullName = fullName
		r.URL = "https://github.com/" + fullName
	}
}

// WithCounts 设置统计数量
func WithCounts(star, analyzed, unknown int) func(*model.Repository) {
	return func(r *model.Repository) {
		r.StarCount = star
		r.AnalyzedCount = analyzed
		r.UnknownCount = unknown
	}
}

// TestCountryStats 为仓库批量创建国家统计
func TestCountryStats(t *testing.T, db *gorm.DB, repositoryID int64, counts map[string]int) []model.CountryStat {
	t.Helper()

	names := map[string]string{
		"US": "United States",
		"CN": "China",
		"JP": "Japan",
		"DE": "Germany",
		"FR": "France",
	}

	stats := make([]model.CountryStat, 0, len(counts))
	for code, count := range counts {
		name, ok := names[code]
		if !ok {
			name = code
		}
		stats = append(stats, model.CountryStat{
			RepositoryID: repositoryID,
			CountryCode:  code,
			CountryName:  name,
			Count:        count,
		})
	}

	if len(stats) > 0 {
		if err := db.Create(&stats).Error; err != nil {
			t.Fatalf("Failed to create test country stats: %v", err)
		}
	}

	return stats
}
