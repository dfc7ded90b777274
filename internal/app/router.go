package app

import (
	"course_platform_backend/docs"
	"course_platform_backend/internal/config"
	"course_platform_backend/internal/middleware"
	"course_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	router.Use(middleware.ConfigMiddleware(cfg))

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 学员接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理员接口
	a.registerAdminRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/certificates/verify/:number", c.certificate.Verify)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	course := group.Group("/course")
	{
		course.GET("", c.course.GetOutline)
		course.GET("/lessons/:id", c.course.GetLesson)
	}

	group.POST("/progress/lessons/:id", c.progress.MarkLesson)

	homework := group.Group("/homework")
	{
		homework.POST("", c.progress.SubmitHomework)
		homework.GET("", c.progress.ListMySubmissions)
	}

	certificate := group.Group("/certificate")
	{
		certificate.GET("", c.certificate.GetCertificate)
		certificate.GET("/eligibility", c.certificate.GetEligibility)
		certificate.GET("/document", c.certificate.GetDocument)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/homework", c.homework.List)
		admin.PATCH("/homework/:id", c.homework.Review)
		admin.POST("/cache/clear", c.cache.ClearAll)
	}
}
