package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/storyninja-api/api/swagger"
	"github.com/noah-isme/storyninja-api/internal/middleware"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/pkg/config"
	"github.com/noah-isme/storyninja-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/storyninja-api/pkg/middleware/cors"
	"github.com/noah-isme/storyninja-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/storyninja-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app, loginLimiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", a.observation.Health)
	r.GET("/ready", a.observation.Ready)
	r.GET("/metrics", a.observation.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Uploads.Backend == config.UploadBackendLocal {
		r.Static("/uploads", cfg.Uploads.Dir)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Authenticate(a.tokens, a.sessions, a.enricher, middleware.AuthOptions{
		SingleSession: cfg.Session.SingleEnforced,
	}))

	anyRole := middleware.Require()
	admin := middleware.Require(models.RoleAdmin)
	teacher := middleware.Require(models.RoleTeacher)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", loginLimiter.Middleware(), a.auth.Signup)
		auth.POST("/login", loginLimiter.Middleware(), a.auth.Login)
		auth.GET("/verify", a.auth.Verify)
		auth.POST("/refresh", anyRole, a.auth.Refresh)
		auth.POST("/logout", anyRole, a.auth.Logout)
		auth.GET("/session", anyRole, a.auth.Session)
		auth.POST("/change-password", anyRole, a.auth.ChangePassword)
	}

	stories := api.Group("/stories")
	{
		stories.GET("", a.stories.ListPublished)
		stories.GET("/:id", a.stories.Get)
		stories.POST("", anyRole, a.stories.Create)
		stories.PUT("/:id", anyRole, a.stories.Update)
		stories.POST("/:id/submit", anyRole, a.stories.Submit)

		stories.POST("/:id/likes", anyRole, a.discussion.ToggleStoryLike)
		stories.POST("/:id/comments", anyRole, a.discussion.AddComment)
		stories.DELETE("/:id/comments/:commentId", anyRole, a.discussion.DeleteComment)
		stories.POST("/:id/comments/:commentId/likes", anyRole, a.discussion.ToggleCommentLike)
		stories.POST("/:id/comments/:commentId/replies", anyRole, a.discussion.AddReply)
		stories.DELETE("/:id/comments/:commentId/replies/:replyId", anyRole, a.discussion.DeleteReply)
		stories.POST("/:id/comments/:commentId/replies/:replyId/likes", anyRole, a.discussion.ToggleReplyLike)
	}

	api.POST("/uploads", anyRole, a.uploads.Upload)

	reader := api.Group("", anyRole)
	{
		reader.GET("/student/assigned-books", a.reading.AssignedBooks)
		reader.GET("/reading-progress", a.reading.Progress)
		reader.PUT("/reading-progress", a.reading.SaveProgress)
		reader.GET("/quizzes/:id", a.quizzes.Public)
		reader.POST("/quizzes/:id/attempts", a.quizzes.Attempt)
	}

	teacherGroup := api.Group("/teacher", teacher)
	{
		teacherGroup.GET("/classes", a.teacher.Classes)
		teacherGroup.GET("/students", a.teacher.Students)
		teacherGroup.GET("/assign-book", a.teacher.Assignments)
		teacherGroup.POST("/assign-book", a.teacher.AssignBook)
		teacherGroup.DELETE("/assign-book/:id", a.teacher.Unassign)
		teacherGroup.GET("/stats", a.teacher.Stats)
		teacherGroup.GET("/stats/export", a.teacher.ExportStats)

		teacherGroup.GET("/quizzes", a.quizzes.List)
		teacherGroup.POST("/quizzes", a.quizzes.Create)
		teacherGroup.GET("/quizzes/:id", a.quizzes.Get)
		teacherGroup.PUT("/quizzes/:id", a.quizzes.Update)
		teacherGroup.DELETE("/quizzes/:id", a.quizzes.Delete)
	}

	adminGroup := api.Group("/admin", admin)
	{
		schools := adminGroup.Group("/schools", middleware.Audit(a.audit, "school", logr))
		schools.GET("", a.schools.List)
		schools.POST("", a.schools.Create)
		schools.GET("/:id", a.schools.Get)
		schools.PUT("/:id", a.schools.Update)
		schools.DELETE("/:id", a.schools.Delete)

		grades := adminGroup.Group("/grades", middleware.Audit(a.audit, "grade", logr))
		grades.GET("", a.grades.List)
		grades.POST("", a.grades.Create)
		grades.GET("/:id", a.grades.Get)
		grades.PUT("/:id", a.grades.Update)
		grades.DELETE("/:id", a.grades.Delete)

		classes := adminGroup.Group("/classes", middleware.Audit(a.audit, "class", logr))
		classes.GET("", a.classes.List)
		classes.POST("", a.classes.Create)
		classes.GET("/:id", a.classes.Get)
		classes.PUT("/:id", a.classes.Update)
		classes.DELETE("/:id", a.classes.Delete)
		classes.PUT("/:id/teachers", a.classes.ReplaceTeachers)
		classes.PUT("/:id/students", a.classes.ReplaceStudents)

		// user mutations are audited by the service with before/after values
		users := adminGroup.Group("/users")
		users.GET("", a.users.List)
		users.POST("", a.users.Create)
		users.GET("/:id", a.users.Get)
		users.PUT("/:id", a.users.Update)
		users.DELETE("/:id", a.users.Delete)
		users.PUT("/:id/classes", a.users.ReplaceClasses)

		stories := adminGroup.Group("/stories", middleware.Audit(a.audit, "story", logr))
		stories.GET("", a.stories.AdminList)
		stories.PUT("/:id/status", a.stories.SetStatus)
		stories.DELETE("/:id", a.stories.Delete)
	}

	return r
}
