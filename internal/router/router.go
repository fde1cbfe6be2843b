package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/handler"
	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/config"
	"github.com/noah-isme/roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roster-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Roster        *handler.RosterHandler
	Auth          *handler.AuthHandler
	Teachers      *handler.TeacherHandler
	Students      *handler.StudentHandler
	Classes       *handler.ClassHandler
	Registers     *handler.RegisterHandler
	Notifications *handler.NotificationHandler
	Metrics       *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and all routes.
func Setup(cfg *config.Config, h Handlers, auth *service.AuthService, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/register", h.Roster.Register)
		api.GET("/commonstudents", h.Roster.CommonStudents)
		api.POST("/suspend", h.Roster.Suspend)
		api.POST("/retrievefornotifications", h.Roster.RetrieveForNotifications)

		api.POST("/auth/login", h.Auth.Login)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(auth))
	{
		teachers := admin.Group("/teachers")
		teachers.POST("", h.Teachers.Create)
		teachers.GET("/:id", h.Teachers.Get)
		teachers.PATCH("/:id", h.Teachers.Update)
		teachers.PUT("/:id/password", h.Teachers.ChangePassword)
		teachers.DELETE("/:id", h.Teachers.Delete)
		teachers.GET("/:id/notifications", h.Notifications.ListByTeacher)

		students := admin.Group("/students")
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PATCH("/:id", h.Students.Update)
		students.POST("/:id/unsuspend", h.Students.Unsuspend)
		students.DELETE("/:id", h.Students.Delete)

		classes := admin.Group("/classes")
		classes.POST("", h.Classes.Create)
		classes.GET("/:id", h.Classes.Get)
		classes.PUT("/:id", h.Classes.Retitle)
		classes.DELETE("/:id", h.Classes.Delete)

		registers := admin.Group("/registers")
		registers.GET("/:id", h.Registers.Get)
		registers.PATCH("/:id", h.Registers.Repoint)
		registers.DELETE("/:id", h.Registers.Delete)

		notifications := admin.Group("/notifications")
		notifications.POST("", h.Notifications.Send)
		notifications.GET("/:id", h.Notifications.Get)
		notifications.POST("/:id/dispatch", h.Notifications.Redispatch)
	}

	return r
}
