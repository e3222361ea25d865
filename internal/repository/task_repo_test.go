package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/testutil"
)

func TestTaskRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)

	task := &model.AnalysisTask{
		RepoURL:       "https://github.com/vercel/next.js",
		FullName:      "vercel/next.js",
		MaxStargazers: 1000,
		Status:        model.TaskStatusPending,
	}

	err := repo.Create(task)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
}

func TestTaskRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	created := testutil.TestTask(t, db)

	found, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, created.FullName, found.FullName)
	assert.Equal(t, model.TaskStatusPending, found.Status)
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)

	_, err := repo.GetByID(99999)
	assert.Error(t, err)
}

func TestTaskRepository_MarkRunning(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db)

	err := repo.MarkRunning(task.ID)
	require.NoError(t, err)

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusRunning, found.Status)
	assert.Equal(t, 0, found.Progress)
	assert.Equal(t, "Starting analysis...", found.CurrentStep)
}

func TestTaskRepository_UpdateProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))

	err := repo.UpdateProgress(task.ID, 42, "Fetching stargazers (page 5)")
	require.NoError(t, err)

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, found.Progress)
	assert.Equal(t, "Fetching stargazers (page 5)", found.CurrentStep)
}

func TestTaskRepository_Complete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))

	err := repo.Complete(task.ID, 7)
	require.NoError(t, err)

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, found.Status)
	assert.Equal(t, 100, found.Progress)
	require.NotNil(t, found.RepositoryID)
	assert.Equal(t, int64(7), *found.RepositoryID)
	assert.NotNil(t, found.CompletedAt)
}

func TestTaskRepository_Complete_NotOverwriteCancelled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))

	// 用户抢先取消
	require.NoError(t, repo.MarkCancelled(task.ID))

	// 晚到的完成不应覆盖终态
	require.NoError(t, repo.Complete(task.ID, 7))

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, found.Status)
	assert.Nil(t, found.RepositoryID)
}

func TestTaskRepository_Fail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))

	err := repo.Fail(task.ID, "GitHub API rate limit exceeded")
	require.NoError(t, err)

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, found.Status)
	assert.Equal(t, "GitHub API rate limit exceeded", found.ErrorMessage)
	assert.NotNil(t, found.CompletedAt)
}

func TestTaskRepository_Fail_NotOverwriteTerminal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusCompleted))

	require.NoError(t, repo.Fail(task.ID, "late failure"))

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, found.Status)
	assert.Empty(t, found.ErrorMessage)
}

func TestTaskRepository_MarkCancelled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db)

	err := repo.MarkCancelled(task.ID)
	require.NoError(t, err)

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, found.Status)
	// 取消不是失败，不写错误消息
	assert.Empty(t, found.ErrorMessage)
	assert.NotNil(t, found.CompletedAt)
}

func TestTaskRepository_MarkCancelled_TerminalUnchanged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)
	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusFailed))

	require.NoError(t, repo.MarkCancelled(task.ID))

	found, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, found.Status)
}

func TestTaskRepository_DeleteTerminalBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTaskRepository(db)

	old := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusCompleted))
	oldRunning := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))
	recent := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusFailed))

	// 手动回拨两条旧记录的创建时间
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&model.AnalysisTask{}).
		Where("id IN ?", []int64{old.ID, oldRunning.ID}).
		Update("created_at", past).Error)

	deleted, err := repo.DeleteTerminalBefore(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	// 只删终态的旧任务，running 的不动
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(old.ID)
	assert.Error(t, err)

	_, err = repo.GetByID(oldRunning.ID)
	assert.NoError(t, err)

	_, err = repo.GetByID(recent.ID)
	assert.NoError(t, err)
}
