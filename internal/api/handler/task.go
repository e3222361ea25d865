package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hyrx/stargeo_server/internal/api/middleware"
	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/pkg/response"
	"github.com/hyrx/stargeo_server/internal/service"
)

type TaskHandler struct {
	taskService *service.TaskService
}

func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// Create 创建分析任务
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	userID := middleware.OptionalUserID(c)

	resp, err := h.taskService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrInvalidRepoURL):
			response.ParamError(c, "invalid github repository url")
		case errors.Is(err, service.ErrAnalysisInFlight):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrServerBusy):
			response.ServerError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "task created", resp)
}

// GetStatus 查询任务状态
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetStatus(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid task id")
		return
	}

	status, err := h.taskService.GetStatus(taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}

// Cancel 取消任务
// POST /api/v1/tasks/:id/cancel
func (h *TaskHandler) Cancel(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid task id")
		return
	}

	if err := h.taskService.Cancel(taskID); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "task cancelled", nil)
}
