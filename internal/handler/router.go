package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/middleware"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ccrm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ccrm-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router wires into handlers. Mirror is
// nil when the PostgreSQL mirror is disabled.
type Dependencies struct {
	Records  *service.RecordsService
	Catalog  *service.CatalogService
	Files    *service.FileService
	Transfer *service.TransferService
	Reports  *service.ReportService
	Mirror   *service.MirrorService
	Metrics  *service.MetricsService
	Logger   *zap.Logger

	AllowedOrigins []string
	EnableDocs     bool
	Ready          func() bool
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/metrics/summary", "/ready"))
	r.Use(corsmiddleware.New(deps.AllowedOrigins))

	metricsHandler := NewMetricsHandler(deps.Metrics, deps.Ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	students := NewStudentHandler(deps.Records, deps.Reports)
	enrollments := NewEnrollmentHandler(deps.Records)
	studentGroup := api.Group("/students")
	studentGroup.GET("", students.List)
	studentGroup.POST("", students.Create)
	studentGroup.GET("/:id", students.Get)
	studentGroup.PUT("/:id", students.Update)
	studentGroup.DELETE("/:id", students.Delete)
	studentGroup.POST("/:id/deactivate", students.Deactivate)
	studentGroup.POST("/:id/activate", students.Activate)
	studentGroup.GET("/:id/transcript", students.Transcript)
	studentGroup.GET("/:id/enrollments", enrollments.List)
	studentGroup.POST("/:id/enrollments", enrollments.Enroll)
	studentGroup.DELETE("/:id/enrollments/:courseId", enrollments.Unenroll)
	studentGroup.PUT("/:id/grades/:courseId", enrollments.AssignGrade)

	courses := NewCourseHandler(deps.Catalog)
	courseGroup := api.Group("/courses")
	courseGroup.GET("", courses.List)
	courseGroup.POST("", courses.Create)
	courseGroup.GET("/:id", courses.Get)
	courseGroup.PUT("/:id", courses.Update)
	courseGroup.POST("/:id/instructor", courses.AssignInstructor)

	instructors := NewInstructorHandler(deps.Catalog)
	instructorGroup := api.Group("/instructors")
	instructorGroup.GET("", instructors.List)
	instructorGroup.POST("", instructors.Create)
	instructorGroup.GET("/:id", instructors.Get)

	reports := NewReportHandler(deps.Reports)
	reportGroup := api.Group("/reports")
	reportGroup.GET("/statistics", reports.Statistics)
	reportGroup.GET("/departments", reports.Departments)
	reportGroup.GET("/roster", reports.Roster)

	files := NewFileHandler(deps.Transfer)
	fileGroup := api.Group("/files")
	fileGroup.POST("/students/export", files.ExportStudents)
	fileGroup.POST("/students/import", files.ImportStudents)
	fileGroup.POST("/courses/export", files.ExportCourses)
	fileGroup.POST("/courses/import", files.ImportCourses)

	backups := NewBackupHandler(deps.Files)
	backupGroup := api.Group("/backups")
	backupGroup.POST("", backups.Create)
	backupGroup.GET("", backups.List)
	backupGroup.GET("/:name", backups.Get)
	backupGroup.POST("/:name/restore", backups.Restore)

	if deps.Mirror != nil {
		mirror := NewMirrorHandler(deps.Mirror)
		mirrorGroup := api.Group("/mirror")
		mirrorGroup.POST("/sync", mirror.Sync)
		mirrorGroup.GET("/students", mirror.List)
		mirrorGroup.GET("/status", mirror.Status)
	}

	return r
}
