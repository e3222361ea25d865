package dto

// CountryStatItem 单个国家的 stargazer 计数
type CountryStatItem struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Count       int    `json:"count"`
}

// AnalysisDetail 仓库分析快照与国家分布
type AnalysisDetail struct {
	RepositoryID        int64             `json:"repository_id"`
	FullName            string            `json:"full_name"`
	URL                 string            `json:"url"`
	StarCount           int               `json:"star_count"`
	AnalyzedCount       int               `json:"analyzed_count"`
	UnknownCount        int               `json:"unknown_count"`
	UpdatedAt           string            `json:"updated_at"`
	CountryDistribution []CountryStatItem `json:"country_distribution"`
}

// RateLimitResponse GitHub API 限流状态
type RateLimitResponse struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"reset_at"`
}
