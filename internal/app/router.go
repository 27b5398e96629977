package app

import (
	"pharm_exam_backend/docs"
	"pharm_exam_backend/internal/config"
	"pharm_exam_backend/internal/middleware"

	"pharm_exam_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		// 题库目录
		authGroup.GET("/categories", c.question.ListCategories)
		authGroup.GET("/questions", c.question.ListByCategory)

		// 分类练习
		authGroup.POST("/quiz", c.quiz.Start)
		authGroup.GET("/quiz/:id", c.quiz.State)
		authGroup.PUT("/quiz/:id/select", c.quiz.Select)
		authGroup.POST("/quiz/:id/submit", c.quiz.Submit)
		authGroup.POST("/quiz/:id/next", c.quiz.Advance)
		authGroup.DELETE("/quiz/:id", c.quiz.Abandon)

		// 模拟考试
		authGroup.GET("/exams", c.mockExam.ListExams)
		authGroup.POST("/exams/:examId/sessions", c.mockExam.Start)
		authGroup.GET("/exam-sessions/:id", c.mockExam.State)
		authGroup.PUT("/exam-sessions/:id/answers", c.mockExam.SelectAnswer)
		authGroup.POST("/exam-sessions/:id/finish", c.mockExam.Finish)
		authGroup.GET("/exam-sessions/:id/result", c.mockExam.Result)
		authGroup.DELETE("/exam-sessions/:id", c.mockExam.Abandon)

		// 学习进度
		authGroup.GET("/progress", c.progress.Get)
		authGroup.GET("/progress/answers", c.progress.Answers)
		authGroup.GET("/progress/stats", c.progress.Stats)
		authGroup.DELETE("/progress", c.progress.Reset)

		// 会员
		authGroup.GET("/premium", c.premium.Status)
		authGroup.POST("/premium/purchase", c.premium.Purchase)
		authGroup.DELETE("/premium", c.premium.Cancel)

		// 支付
		authGroup.POST("/payment/checkout-session", c.payment.CreateCheckoutSession)
		authGroup.POST("/payment/verify", c.payment.Verify)
	}
}
