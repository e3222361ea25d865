package cron

import (
	"log"
	"time"

	"github.com/hyrx/stargeo_server/internal/repository"
)

// Service 定时保留策略：周期性清掉早已到终态的旧任务。
// 核心流程从不删任务，保留属于这里的运维职责。
type Service struct {
	taskRepo *repository.TaskRepository
	maxAge   time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewService(taskRepo *repository.TaskRepository, maxAgeDays int) *Service {
	return &Service{
		taskRepo: taskRepo,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		interval: time.Hour,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runTaskCleanup()
	log.Println("Cron service started (task retention cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

func (s *Service) runTaskCleanup() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupTasks()
		}
	}
}

func (s *Service) cleanupTasks() {
	cutoff := time.Now().Add(-s.maxAge)
	deleted, err := s.taskRepo.DeleteTerminalBefore(cutoff)
	if err != nil {
		log.Printf("Task cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Task cleanup removed %d old tasks", deleted)
	}
}
