package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/model/dto"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/repository"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrAnalysisInFlight 同一个仓库已经有任务在跑（单飞约束）
	ErrAnalysisInFlight = errors.New("an analysis for this repository is already in progress")
	ErrServerBusy       = errors.New("too many analyses in progress, try again later")
)

// taskRunner 由 worker 包实现，避免 service 反向依赖 worker
type taskRunner interface {
	Process(ctx context.Context, taskID int64) error
}

type taskPool interface {
	Submit(job func(ctx context.Context)) error
}

// TaskService 任务生命周期管理：创建 → 异步执行 → 查询/取消。
// 每个任务持有自己的取消上下文；同一仓库同时只允许一个任务在飞。
type TaskService struct {
	taskRepo *repository.TaskRepository
	runner   taskRunner
	pool     taskPool
	cfg      *config.Config

	mu       sync.Mutex
	cancels  map[int64]context.CancelFunc
	inflight map[string]int64 // fullName -> taskID
}

func NewTaskService(taskRepo *repository.TaskRepository, runner taskRunner, pool taskPool, cfg *config.Config) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		runner:   runner,
		pool:     pool,
		cfg:      cfg,
		cancels:  make(map[int64]context.CancelFunc),
		inflight: make(map[string]int64),
	}
}

// Create 创建任务并异步开跑，立即返回任务句柄。
// 仓库地址解析失败直接报错，任务不会入库。
func (s *TaskService) Create(userID *int64, req *dto.CreateTaskRequest) (*dto.CreateTaskResponse, error) {
	owner, repo, err := github.ParseRepoURL(req.RepoURL)
	if err != nil {
		return nil, err
	}
	fullName := owner + "/" + repo

	maxStargazers := req.MaxStargazers
	if maxStargazers <= 0 {
		maxStargazers = s.cfg.Analysis.DefaultMaxStargazers
	}
	if limit := s.cfg.Analysis.MaxStargazersLimit; maxStargazers > limit {
		maxStargazers = limit
	}

	s.mu.Lock()
	if _, busy := s.inflight[fullName]; busy {
		s.mu.Unlock()
		return nil, ErrAnalysisInFlight
	}
	// 占住 key，真正的任务 ID 入库后回填
	s.inflight[fullName] = 0
	s.mu.Unlock()

	task := &model.AnalysisTask{
		UserID:        userID,
		RepoURL:       req.RepoURL,
		FullName:      fullName,
		MaxStargazers: maxStargazers,
		Status:        model.TaskStatusPending,
	}
	if err := s.taskRepo.Create(task); err != nil {
		s.release(fullName, 0)
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.inflight[fullName] = task.ID
	s.cancels[task.ID] = cancel
	s.mu.Unlock()

	err = s.pool.Submit(func(poolCtx context.Context) {
		// 池关闭时连带取消任务自己的上下文
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()
		defer s.release(fullName, task.ID)

		if err := s.runner.Process(taskCtx, task.ID); err != nil {
			log.Printf("Task %d processing error: %v", task.ID, err)
		}
	})
	if err != nil {
		s.release(fullName, task.ID)
		if failErr := s.taskRepo.Fail(task.ID, "server is busy, analysis could not be scheduled"); failErr != nil {
			log.Printf("Failed to mark task %d failed: %v", task.ID, failErr)
		}
		return nil, ErrServerBusy
	}

	return &dto.CreateTaskResponse{TaskID: task.ID, FullName: fullName}, nil
}

// GetStatus 查询任务当前状态
func (s *TaskService) GetStatus(taskID int64) (*dto.TaskStatusResponse, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	resp := &dto.TaskStatusResponse{
		TaskID:        task.ID,
		FullName:      task.FullName,
		Status:        task.Status,
		Progress:      task.Progress,
		CurrentStep:   task.CurrentStep,
		RepositoryID:  task.RepositoryID,
		ErrorMessage:  task.ErrorMessage,
		MaxStargazers: task.MaxStargazers,
		CreatedAt:     task.CreatedAt.Format(time.RFC3339),
	}
	if task.CompletedAt != nil {
		resp.CompletedAt = task.CompletedAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Cancel 协作式取消：先把库里的状态抢先改成 cancelled，
// 再触发任务自己的取消上下文。在途的网络请求不会被打断，
// 任务会在下一个进度检查点退出。
func (s *TaskService) Cancel(taskID int64) error {
	if _, err := s.taskRepo.GetByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.taskRepo.MarkCancelled(taskID); err != nil {
		return err
	}

	s.mu.Lock()
	cancel := s.cancels[taskID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	return nil
}

// release 任务结束后的登记清理。fullName 槽位只在仍属于该任务时释放。
func (s *TaskService) release(fullName string, taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.inflight[fullName]; ok && owner == taskID {
		delete(s.inflight, fullName)
	}
	delete(s.cancels, taskID)
}
