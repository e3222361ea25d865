package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hyrx/stargeo_server/internal/api/middleware"
	"github.com/hyrx/stargeo_server/internal/pkg/response"
	"github.com/hyrx/stargeo_server/internal/service"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
	settingsService *service.SettingsService
}

func NewAnalysisHandler(analysisService *service.AnalysisService, settingsService *service.SettingsService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		settingsService: settingsService,
	}
}

// Get 获取仓库的分析结果
// GET /api/v1/analyses/:owner/:repo
func (h *AnalysisHandler) Get(c *gin.Context) {
	owner := c.Param("owner")
	repo := c.Param("repo")
	if owner == "" || repo == "" {
		response.ParamError(c, "owner and repo are required")
		return
	}

	detail, err := h.analysisService.GetByFullName(owner + "/" + repo)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, detail)
}

// RateLimit 查询 GitHub API 限流状态
// GET /api/v1/ratelimit
func (h *AnalysisHandler) RateLimit(c *gin.Context) {
	userID := middleware.OptionalUserID(c)

	limit, err := h.settingsService.CheckRateLimit(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, "failed to check rate limit")
		return
	}

	response.Success(c, limit)
}
