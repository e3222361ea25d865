package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/hyrx/stargeo_server/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *model.AnalysisTask) error {
	return r.db.Create(task).Error
}

func (r *TaskRepository) GetByID(id int64) (*model.AnalysisTask, error) {
	var task model.AnalysisTask
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(task *model.AnalysisTask) error {
	return r.db.Save(task).Error
}

// MarkRunning 将 pending 任务置为 running
func (r *TaskRepository) MarkRunning(id int64) error {
	return r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ?", id, model.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusRunning,
			"progress":     0,
			"current_step": "Starting analysis...",
		}).Error
}

// UpdateProgress 更新进度和当前步骤
func (r *TaskRepository) UpdateProgress(id int64, progress int, step string) error {
	return r.db.Model(&model.AnalysisTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":     progress,
			"current_step": step,
		}).Error
}

// Complete 任务成功结束，progress 固定为 100 并挂上结果仓库。
// 只允许从 running 迁移，终态（比如已被抢先取消）不会被覆盖。
func (r *TaskRepository) Complete(id, repositoryID int64) error {
	now := time.Now()
	return r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status = ?", id, model.TaskStatusRunning).
		Updates(map[string]interface{}{
			"status":        model.TaskStatusCompleted,
			"progress":      100,
			"repository_id": repositoryID,
			"completed_at":  &now,
		}).Error
}

// Fail 任务失败，记录错误消息。同样不覆盖终态。
func (r *TaskRepository) Fail(id int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status IN ?", id,
			[]string{model.TaskStatusPending, model.TaskStatusRunning}).
		Updates(map[string]interface{}{
			"status":        model.TaskStatusFailed,
			"error_message": errMsg,
			"completed_at":  &now,
		}).Error
}

// MarkCancelled 取消任务。只作用于非终态，取消不写 error_message。
func (r *TaskRepository) MarkCancelled(id int64) error {
	now := time.Now()
	return r.db.Model(&model.AnalysisTask{}).
		Where("id = ? AND status IN ?", id,
			[]string{model.TaskStatusPending, model.TaskStatusRunning}).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusCancelled,
			"completed_at": &now,
		}).Error
}

// DeleteTerminalBefore 删除指定时刻之前创建且已到终态的任务（保留策略）
func (r *TaskRepository) DeleteTerminalBefore(t time.Time) (int64, error) {
	result := r.db.Where("status IN ? AND created_at < ?",
		[]string{model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled}, t).
		Delete(&model.AnalysisTask{})
	return result.RowsAffected, result.Error
}
