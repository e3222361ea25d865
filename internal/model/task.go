package model

import (
	"time"
)

// 任务状态
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// TaskTerminal 判断任务状态是否为终态
func TaskTerminal(status string) bool {
	switch status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

type AnalysisTask struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	UserID        *int64     `gorm:"index" json:"user_id,omitempty"` // 匿名任务为空
	RepoURL       string     `gorm:"size:512;not null" json:"repo_url"`
	FullName      string     `gorm:"size:255;not null;index" json:"full_name"` // owner/repo
	MaxStargazers int        `gorm:"not null" json:"max_stargazers"`
	Status        string     `gorm:"size:20;default:pending;index" json:"status"` // pending, running, completed, failed, cancelled
	Progress      int        `gorm:"default:0" json:"progress"`                   // 0-100
	CurrentStep   string     `gorm:"size:200" json:"current_step,omitempty"`
	RepositoryID  *int64     `json:"repository_id,omitempty"` // 成功后指向分析结果
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (AnalysisTask) TableName() string {
	return "analysis_tasks"
}
