package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hyrx/stargeo_server/internal/api/middleware"
	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/response"
	"github.com/hyrx/stargeo_server/internal/service"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GetGithubToken 查看 GitHub token 状态
// GET /api/v1/settings/github-token
func (h *SettingsHandler) GetGithubToken(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.settingsService.GetGithubToken(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// SaveGithubToken 保存 GitHub token
// PUT /api/v1/settings/github-token
func (h *SettingsHandler) SaveGithubToken(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SaveGithubTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.settingsService.SaveGithubToken(userID, req.Token); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "token saved", nil)
}

// DeleteGithubToken 删除 GitHub token
// DELETE /api/v1/settings/github-token
func (h *SettingsHandler) DeleteGithubToken(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.settingsService.DeleteGithubToken(userID); err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "token deleted", nil)
}
