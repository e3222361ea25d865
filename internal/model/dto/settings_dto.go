package dto

// SaveGithubTokenRequest 保存 GitHub token 请求
type SaveGithubTokenRequest struct {
	Token string `json:"token" binding:"required,min=1"`
}

// GithubTokenResponse GitHub token 状态，token 只回显掩码
type GithubTokenResponse struct {
	HasToken bool   `json:"has_token"`
	Token    string `json:"token,omitempty"` // ***XXXX
}
