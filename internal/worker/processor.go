package worker

import (
	"context"
	"errors"
	"log"

	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/pkg/pubsub"
	"github.com/hyrx/stargeo_server/internal/repository"
	"github.com/hyrx/stargeo_server/internal/service"
)

// ErrCancelled 任务被用户取消。区别于失败：不写 error_message，
// 也不靠错误文本匹配来识别。
var ErrCancelled = errors.New("task cancelled by user")

// 各阶段映射到的进度区间 [base, base+span)，保证跨阶段单调递增
var stageBounds = map[string][2]int{
	service.StageFetchingRepo:       {0, 5},
	service.StageFetchingStargazers: {5, 20},
	service.StageFetchingDetails:    {25, 45},
	service.StageResolvingLocations: {70, 25},
	service.StageComplete:           {100, 0},
}

// percentFor 把 (stage, processed, total) 换算成 0-100 的整体进度
func percentFor(p service.Progress) int {
	bounds, ok := stageBounds[p.Stage]
	if !ok {
		return 0
	}
	base, span := bounds[0], bounds[1]
	if p.Total <= 0 {
		return base
	}
	processed := p.Processed
	if processed > p.Total {
		processed = p.Total
	}
	return base + processed*span/p.Total
}

// Processor 执行一个分析任务：状态迁移、凭证解析、进度持久化。
type Processor struct {
	taskRepo  *repository.TaskRepository
	userRepo  *repository.UserRepository
	analyzer  *service.AnalyzerService
	publisher *pubsub.Publisher
}

func NewProcessor(
	taskRepo *repository.TaskRepository,
	userRepo *repository.UserRepository,
	analyzer *service.AnalyzerService,
	publisher *pubsub.Publisher,
) *Processor {
	return &Processor{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		analyzer:  analyzer,
		publisher: publisher,
	}
}

// Process 跑完一个任务的完整生命周期。ctx 是该任务自己的
// 取消上下文；取消只在进度检查点生效，不打断在途的网络请求。
func (p *Processor) Process(ctx context.Context, taskID int64) error {
	task, err := p.taskRepo.GetByID(taskID)
	if err != nil {
		return err
	}

	// 启动前就被取消（Cancel 会抢先把库里的状态改掉）
	if ctx.Err() != nil || task.Status == model.TaskStatusCancelled {
		log.Printf("Task %d was cancelled before starting", taskID)
		return nil
	}
	if task.Status != model.TaskStatusPending {
		log.Printf("Task %d is %s, skipping", taskID, task.Status)
		return nil
	}

	if err := p.taskRepo.MarkRunning(taskID); err != nil {
		return err
	}

	token := p.resolveToken(task)

	lastPercent := 0
	onProgress := func(progress service.Progress) error {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		percent := percentFor(progress)
		if percent > lastPercent {
			lastPercent = percent
			if err := p.taskRepo.UpdateProgress(taskID, percent, progress.Message); err != nil {
				return err
			}
		}

		p.publish(ctx, task, model.TaskStatusRunning, progress, lastPercent, "")
		return nil
	}

	result, err := p.analyzer.Analyze(ctx, task.RepoURL, task.MaxStargazers, token, onProgress)
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			log.Printf("Task %d was cancelled during analysis", taskID)
			// Cancel 已经把状态落库，这里兜底一次即可
			p.taskRepo.MarkCancelled(taskID)
			return nil
		}

		log.Printf("Task %d failed: %v", taskID, err)
		if failErr := p.taskRepo.Fail(taskID, err.Error()); failErr != nil {
			log.Printf("Failed to mark task %d failed: %v", taskID, failErr)
		}
		p.publish(ctx, task, model.TaskStatusFailed, service.Progress{}, lastPercent, err.Error())
		return err
	}

	// 最后一个检查点之后才收到的取消：结果已落库，任务状态保持 cancelled
	if ctx.Err() != nil {
		log.Printf("Task %d was cancelled at completion", taskID)
		return nil
	}

	if err := p.taskRepo.Complete(taskID, result.RepositoryID); err != nil {
		return err
	}
	p.publish(ctx, task, model.TaskStatusCompleted,
		service.Progress{Stage: service.StageComplete, Processed: result.AnalyzedCount, Total: result.AnalyzedCount},
		100, "")

	log.Printf("Task %d completed: %s, %d analyzed, %d unknown",
		taskID, result.FullName, result.AnalyzedCount, result.UnknownCount)
	return nil
}

// resolveToken 取任务发起者保存的 GitHub token，匿名任务为空
func (p *Processor) resolveToken(task *model.AnalysisTask) string {
	if task.UserID == nil {
		return ""
	}
	user, err := p.userRepo.GetByID(*task.UserID)
	if err != nil || user.GithubToken == nil {
		return ""
	}
	return *user.GithubToken
}

func (p *Processor) publish(ctx context.Context, task *model.AnalysisTask, status string, progress service.Progress, percent int, errMsg string) {
	if err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		TaskID:    task.ID,
		FullName:  task.FullName,
		Status:    status,
		Stage:     progress.Stage,
		Progress:  percent,
		Processed: progress.Processed,
		Total:     progress.Total,
		Message:   progress.Message,
		Error:     errMsg,
	}); err != nil {
		log.Printf("Failed to publish progress for task %d: %v", task.ID, err)
	}
}
