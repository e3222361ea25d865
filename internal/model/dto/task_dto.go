package dto

// CreateTaskRequest 创建分析任务请求
type CreateTaskRequest struct {
	RepoURL       string `json:"repo_url" binding:"required,min=1,max=512"`
	MaxStargazers int    `json:"max_stargazers,omitempty" binding:"omitempty,min=1,max=10000"`
}

// CreateTaskResponse 创建分析任务响应
type CreateTaskResponse struct {
	TaskID   int64  `json:"task_id"`
	FullName string `json:"full_name"`
}

// TaskStatusResponse 任务状态响应
type TaskStatusResponse struct {
	TaskID        int64  `json:"task_id"`
	FullName      string `json:"full_name"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	CurrentStep   string `json:"current_step,omitempty"`
	RepositoryID  *int64 `json:"repository_id,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	MaxStargazers int    `json:"max_stargazers"`
	CreatedAt     string `json:"created_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
}
