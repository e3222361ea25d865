package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/repository"
	"github.com/hyrx/stargeo_server/internal/testutil"
)

// fakeRunner 记录被处理的任务，可选地阻塞到收到放行信号
type fakeRunner struct {
	mu        sync.Mutex
	processed []int64
	block     chan struct{} // 非 nil 时 Process 阻塞等待
	result    error

	taskRepo *repository.TaskRepository
}

func (f *fakeRunner) Process(ctx context.Context, taskID int64) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			if f.taskRepo != nil {
				_ = f.taskRepo.MarkCancelled(taskID)
			}
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.processed = append(f.processed, taskID)
	f.mu.Unlock()
	if f.taskRepo != nil && f.result == nil {
		_ = f.taskRepo.MarkRunning(taskID)
		_ = f.taskRepo.Complete(taskID, 1)
	}
	return f.result
}

func (f *fakeRunner) processedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.processed...)
}

// syncPool 同步执行提交的任务，让测试不用等 goroutine
type syncPool struct {
	submitErr error
}

func (p *syncPool) Submit(job func(ctx context.Context)) error {
	if p.submitErr != nil {
		return p.submitErr
	}
	job(context.Background())
	return nil
}

// asyncPool 在独立 goroutine 里执行，模拟真实的工作池
type asyncPool struct {
	wg sync.WaitGroup
}

func (p *asyncPool) Submit(job func(ctx context.Context)) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		job(context.Background())
	}()
	return nil
}

func taskConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			DefaultMaxStargazers: 1000,
			MaxStargazersLimit:   10000,
			FreshnessHours:       24,
		},
	}
}

func TestTaskService_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	runner := &fakeRunner{taskRepo: taskRepo}
	svc := NewTaskService(taskRepo, runner, &syncPool{}, taskConfig())

	resp, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "https://github.com/vercel/next.js"})
	require.NoError(t, err)
	assert.NotZero(t, resp.TaskID)
	assert.Equal(t, "vercel/next.js", resp.FullName)

	assert.Equal(t, []int64{resp.TaskID}, runner.processedIDs())

	task, err := taskRepo.GetByID(resp.TaskID)
	require.NoError(t, err)
	// 未指定上限时使用默认值
	assert.Equal(t, 1000, task.MaxStargazers)
	assert.Nil(t, task.UserID)
}

func TestTaskService_Create_ClampsMaxStargazers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	svc := NewTaskService(taskRepo, &fakeRunner{taskRepo: taskRepo}, &syncPool{}, taskConfig())

	resp, err := svc.Create(nil, &dto.CreateTaskRequest{
		RepoURL:       "golang/go",
		MaxStargazers: 999999,
	})
	require.NoError(t, err)

	task, err := taskRepo.GetByID(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 10000, task.MaxStargazers)
}

func TestTaskService_Create_InvalidURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	svc := NewTaskService(taskRepo, &fakeRunner{}, &syncPool{}, taskConfig())

	_, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "not a repo"})
	assert.ErrorIs(t, err, github.ErrInvalidRepoURL)

	// 无效地址不落库
	var count int64
	require.NoError(t, db.Model(&model.AnalysisTask{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTaskService_Create_SingleFlight(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	runner := &fakeRunner{block: make(chan struct{}), taskRepo: taskRepo}
	pool := &asyncPool{}
	svc := NewTaskService(taskRepo, runner, pool, taskConfig())

	first, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	require.NoError(t, err)

	// 同一仓库（不同写法）在飞时再次提交被拒绝
	_, err = svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "https://github.com/octocat/hello-world"})
	assert.ErrorIs(t, err, ErrAnalysisInFlight)

	// 其他仓库不受影响
	_, err = svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "golang/go"})
	require.NoError(t, err)

	close(runner.block)
	pool.wg.Wait()

	// 第一个任务结束后同一仓库可以重新提交
	again, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	require.NoError(t, err)
	assert.NotEqual(t, first.TaskID, again.TaskID)
	pool.wg.Wait()
}

func TestTaskService_Create_PoolFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	svc := NewTaskService(taskRepo, &fakeRunner{}, &syncPool{submitErr: errors.New("queue full")}, taskConfig())

	_, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	assert.ErrorIs(t, err, ErrServerBusy)

	// 入不了队的任务被标记为失败，而不是永远 pending
	var task model.AnalysisTask
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, model.TaskStatusFailed, task.Status)
	assert.NotEmpty(t, task.ErrorMessage)

	// 槽位已释放，可以再次提交
	_, err = svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	assert.ErrorIs(t, err, ErrServerBusy)
	assert.NotErrorIs(t, err, ErrAnalysisInFlight)
}

func TestTaskService_GetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	svc := NewTaskService(taskRepo, &fakeRunner{}, &syncPool{}, taskConfig())

	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusRunning))
	require.NoError(t, taskRepo.UpdateProgress(task.ID, 55, "Resolving locations..."))

	status, err := svc.GetStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, status.TaskID)
	assert.Equal(t, model.TaskStatusRunning, status.Status)
	assert.Equal(t, 55, status.Progress)
	assert.Equal(t, "Resolving locations...", status.CurrentStep)
}

func TestTaskService_GetStatus_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewTaskService(repository.NewTaskRepository(db), &fakeRunner{}, &syncPool{}, taskConfig())

	_, err := svc.GetStatus(424242)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_Cancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	runner := &fakeRunner{block: make(chan struct{}), taskRepo: taskRepo}
	pool := &asyncPool{}
	svc := NewTaskService(taskRepo, runner, pool, taskConfig())

	resp, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(resp.TaskID))
	pool.wg.Wait()

	task, err := taskRepo.GetByID(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, task.Status)
	assert.Empty(t, task.ErrorMessage)
	// 被取消的任务没跑完，不会有结果
	assert.Nil(t, task.RepositoryID)
	assert.Empty(t, runner.processedIDs())
}

func TestTaskService_Cancel_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewTaskService(repository.NewTaskRepository(db), &fakeRunner{}, &syncPool{}, taskConfig())

	err := svc.Cancel(424242)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_Cancel_AlreadyCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	svc := NewTaskService(taskRepo, &fakeRunner{}, &syncPool{}, taskConfig())

	task := testutil.TestTask(t, db, testutil.WithTaskStatus(model.TaskStatusCompleted))

	// 终态任务取消是无操作，不报错
	require.NoError(t, svc.Cancel(task.ID))

	found, err := taskRepo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, found.Status)
}

func TestTaskService_Cancel_ReleasesRepoSlot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	taskRepo := repository.NewTaskRepository(db)
	runner := &fakeRunner{block: make(chan struct{}), taskRepo: taskRepo}
	pool := &asyncPool{}
	svc := NewTaskService(taskRepo, runner, pool, taskConfig())

	resp, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(resp.TaskID))
	pool.wg.Wait()

	// 取消后可以立即重新提交同一仓库
	close(runner.block)
	require.Eventually(t, func() bool {
		_, err := svc.Create(nil, &dto.CreateTaskRequest{RepoURL: "octocat/hello-world"})
		return err == nil
	}, time.Second, 10*time.Millisecond)
	pool.wg.Wait()
}
