package model

import (
	"time"
)

// Repository 一个仓库的最新分析快照，full_name 唯一
type Repository struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	FullName      string    `gorm:"size:255;uniqueIndex;not null" json:"full_name"` // e.g. "vercel/next.js"
	URL           string    `gorm:"size:512;not null" json:"url"`
	StarCount     int       `gorm:"not null" json:"star_count"`     // 分析时的总 star 数
	AnalyzedCount int       `gorm:"not null" json:"analyzed_count"` // 实际分析的 stargazer 数
	UnknownCount  int       `gorm:"not null" json:"unknown_count"`  // 位置无法解析的数量
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Repository) TableName() string {
	return "repositories"
}

// CountryStat 每仓库每国家一行，重新分析时整体替换
type CountryStat struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	RepositoryID int64     `gorm:"not null;index:idx_repo_country" json:"repository_id"`
	CountryCode  string    `gorm:"size:2;not null;index:idx_repo_country" json:"country_code"` // ISO 3166-1 alpha-2
	CountryName  string    `gorm:"size:255;not null" json:"country_name"`
	Count        int       `gorm:"not null" json:"count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CountryStat) TableName() string {
	return "country_stats"
}
