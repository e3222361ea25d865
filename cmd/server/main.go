package main

import (
	"fmt"
	"log"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/api"
	"github.com/hyrx/stargeo_server/internal/api/handler"
	"github.com/hyrx/stargeo_server/internal/database"
	"github.com/hyrx/stargeo_server/internal/pkg/cron"
	"github.com/hyrx/stargeo_server/internal/pkg/geocode"
	"github.com/hyrx/stargeo_server/internal/pkg/github"
	"github.com/hyrx/stargeo_server/internal/pkg/oauth"
	"github.com/hyrx/stargeo_server/internal/pkg/pubsub"
	"github.com/hyrx/stargeo_server/internal/repository"
	"github.com/hyrx/stargeo_server/internal/service"
	"github.com/hyrx/stargeo_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 上游客户端
	githubClient := github.NewClient(cfg.GitHub.APIBase, cfg.GitHub.UserAgent)
	geocoder := geocode.NewClient(cfg.Geocoding.APIBase, cfg.Geocoding.APIKey)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	repoRepo := repository.NewRepoRepository(db)
	cacheRepo := repository.NewLocationCacheRepository(db)

	// 初始化 Service
	stateStore := oauth.NewStateStore(rdb)
	authService := service.NewAuthService(userRepo, stateStore, cfg)
	locationService := service.NewLocationService(cacheRepo, geocoder)
	stargazerService := service.NewStargazerService(githubClient, &cfg.GitHub)
	analyzerService := service.NewAnalyzerService(repoRepo, githubClient, stargazerService, locationService, cfg)
	analysisService := service.NewAnalysisService(repoRepo)
	settingsService := service.NewSettingsService(userRepo, githubClient)

	// 任务执行：进度发布 + 处理器 + 有界池
	publisher := pubsub.NewPublisher(rdb)
	processor := worker.NewProcessor(taskRepo, userRepo, analyzerService, publisher)
	pool := worker.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize)
	defer pool.Stop()

	taskService := service.NewTaskService(taskRepo, processor, pool, cfg)

	// 保留策略
	cronService := cron.NewService(taskRepo, cfg.Retention.TaskMaxAgeDays)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)
	analysisHandler := handler.NewAnalysisHandler(analysisService, settingsService)
	settingsHandler := handler.NewSettingsHandler(settingsService)

	// 初始化 Router
	router := api.NewRouter(authHandler, taskHandler, analysisHandler, settingsHandler, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
