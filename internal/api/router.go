package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hyrx/stargeo_server/config"
	"github.com/hyrx/stargeo_server/internal/api/handler"
	"github.com/hyrx/stargeo_server/internal/api/middleware"
)

type Router struct {
	authHandler     *handler.AuthHandler
	taskHandler     *handler.TaskHandler
	analysisHandler *handler.AnalysisHandler
	settingsHandler *handler.SettingsHandler
	cfg             *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	analysisHandler *handler.AnalysisHandler,
	settingsHandler *handler.SettingsHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:     authHandler,
		taskHandler:     taskHandler,
		analysisHandler: analysisHandler,
		settingsHandler: settingsHandler,
		cfg:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 任务与分析结果（匿名可用，登录后带上用户凭证）
		public := api.Group("")
		public.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))
		{
			public.POST("/tasks", r.taskHandler.Create)
			public.GET("/tasks/:id", r.taskHandler.GetStatus)
			public.POST("/tasks/:id/cancel", r.taskHandler.Cancel)
			public.GET("/analyses/:owner/:repo", r.analysisHandler.Get)
			public.GET("/ratelimit", r.analysisHandler.RateLimit)
		}

		// 设置（需要认证）
		settings := api.Group("/settings")
		settings.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			settings.GET("/github-token", r.settingsHandler.GetGithubToken)
			settings.PUT("/github-token", r.settingsHandler.SaveGithubToken)
			settings.DELETE("/github-token", r.settingsHandler.DeleteGithubToken)
		}
	}

	return engine
}
