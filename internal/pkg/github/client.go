package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidRepoURL 仓库地址无法解析成 owner/repo
	ErrInvalidRepoURL = errors.New("invalid github repository url")
	// ErrRateLimited GitHub API 限流（403），对整次采集是致命错误
	ErrRateLimited = errors.New("github api rate limit exceeded")
	// ErrNotFound 仓库或用户不存在
	ErrNotFound = errors.New("github resource not found")
)

// PerPage GitHub API 单页上限
const PerPage = 100

var repoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

// ParseRepoURL 从仓库地址解析 owner 和 repo。
// 支持完整 URL（可省略协议）、裸 "owner/repo"，并去掉结尾的 ".git"。
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	for _, pattern := range repoURLPatterns {
		match := pattern.FindStringSubmatch(trimmed)
		if match != nil {
			return match[1], strings.TrimSuffix(match[2], ".git"), nil
		}
	}
	return "", "", ErrInvalidRepoURL
}

type Repo struct {
	FullName        string `json:"full_name"`
	StargazersCount int    `json:"stargazers_count"`
}

type User struct {
	Login    string  `json:"login"`
	Location *string `json:"location"`
	Name     *string `json:"name"`
	Company  *string `json:"company"`
}

type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetRepository 获取仓库信息（star 总数等）
func (c *Client) GetRepository(ctx context.Context, owner, repo, token string) (*Repo, error) {
	var result Repo
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := c.get(ctx, path, nil, token, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUser 获取用户详情（含 location）
func (c *Client) GetUser(ctx context.Context, username, token string) (*User, error) {
	var result User
	path := fmt.Sprintf("/users/%s", url.PathEscape(username))
	if err := c.get(ctx, path, nil, token, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListStargazers 获取一页 stargazer，返回用户名列表。空列表表示已取完。
func (c *Client) ListStargazers(ctx context.Context, owner, repo string, page, perPage int, token string) ([]string, error) {
	var users []User
	path := fmt.Sprintf("/repos/%s/%s/stargazers", owner, repo)
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per_page", fmt.Sprintf("%d", perPage))

	if err := c.get(ctx, path, params, token, &users); err != nil {
		return nil, err
	}

	logins := make([]string, len(users))
	for i, u := range users {
		logins[i] = u.Login
	}
	return logins, nil
}

type rateLimitResponse struct {
	Rate struct {
		Limit     int   `json:"limit"`
		Remaining int   `json:"remaining"`
		Reset     int64 `json:"reset"`
	} `json:"rate"`
}

// GetRateLimit 查询当前限流状态
func (c *Client) GetRateLimit(ctx context.Context, token string) (*RateLimit, error) {
	var result rateLimitResponse
	if err := c.get(ctx, "/rate_limit", nil, token, &result); err != nil {
		return nil, err
	}
	return &RateLimit{
		Limit:     result.Rate.Limit,
		Remaining: result.Rate.Remaining,
		Reset:     time.Unix(result.Rate.Reset, 0),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, token string, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github api error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}
