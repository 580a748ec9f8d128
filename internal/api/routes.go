package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/builder"
)

// Dependencies 汇总路由需要的全部协作者。
type Dependencies struct {
	AI             AIService
	Builder        ResumeBuilder
	Renderer       TemplateRenderer
	Photos         builder.PhotoStore
	PhotoStorage   PhotoStorage
	Scanner        Scanner
	Links          LinkSigner
	Queue          TaskEnqueuer
	Usage          UsageSummarizer
	Tokens         middleware.TokenValidator
	Redis          *redis.Client
	Logger         *slog.Logger
	DB             *gorm.DB
	AIRateLimit    int
	MaxResumes     int
	AllowedOrigins []string
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	aiHandler := NewAIHandler(deps.AI)
	resumeHandler := NewResumeHandler(deps.DB, deps.Builder, deps.Photos, deps.Queue, deps.Links, deps.MaxResumes)
	photoHandler := NewPhotoHandler(deps.PhotoStorage, deps.Scanner, deps.Logger)
	templateHandler := NewTemplateHandler(deps.Renderer)
	usageHandler := NewUsageHandler(deps.Usage)
	authMiddleware := middleware.AuthMiddleware(deps.Tokens)

	var counter redisRateCounter
	if deps.Redis != nil {
		counter = deps.Redis
	}

	v1 := router.Group("/v1")
	{
		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.Tokens, deps.Logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		v1.GET("/templates", templateHandler.ListTemplates)
		v1.GET("/templates/:name/preview", templateHandler.PreviewTemplate)

		aiGroup := v1.Group("/ai")
		aiGroup.Use(authMiddleware, aiRateLimitMiddleware(counter, deps.AIRateLimit))
		{
			aiGroup.POST("/suggest", aiHandler.Suggest)
			aiGroup.POST("/enhance", aiHandler.Enhance)
			aiGroup.POST("/review", aiHandler.Review)
		}

		resumeGroup := v1.Group("/resume")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("/preview", resumeHandler.PreviewResume)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.GET("/:id/download", resumeHandler.DownloadResume)
			resumeGroup.POST("/:id/export", resumeHandler.ExportResume)
			resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
			resumeGroup.PATCH("/:id/template", resumeHandler.UpdateTemplate)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		}

		photoGroup := v1.Group("/photos")
		photoGroup.Use(authMiddleware)
		{
			photoGroup.POST("", photoHandler.UploadPhoto)
			photoGroup.GET("", photoHandler.ListPhotos)
			photoGroup.DELETE("", photoHandler.DeletePhoto)
		}

		v1.GET("/usage", authMiddleware, usageHandler.GetUsage)
	}
}
