package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-curriculum-api/api/swagger"
	"github.com/noah-isme/lms-curriculum-api/internal/handler"
	"github.com/noah-isme/lms-curriculum-api/internal/middleware"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/internal/repository"
	"github.com/noah-isme/lms-curriculum-api/internal/service"
	"github.com/noah-isme/lms-curriculum-api/migrations"
	"github.com/noah-isme/lms-curriculum-api/pkg/cache"
	"github.com/noah-isme/lms-curriculum-api/pkg/config"
	"github.com/noah-isme/lms-curriculum-api/pkg/database"
	"github.com/noah-isme/lms-curriculum-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-curriculum-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-curriculum-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title LMS Curriculum API
// @version 1.0.0
// @description Course calendars, double-booking checks and mentorship cadence tracking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db.DB, migrations.FS, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Dashboard.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	subjects := repository.NewSubjectRepository(db)
	classes := repository.NewClassSlotRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	logs := repository.NewMentorshipLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	settings := service.NewCadenceSettingsStore(cadenceSettings(cfg.Cadence))

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(users, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courses, subjects, classes, cacheSvc, validate, logr)
	curriculumSvc := service.NewCurriculumService(courses, subjects, classes, users, metrics, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, courses, users, logs, courseSvc, cacheSvc, validate, logr)
	mentorshipSvc := service.NewMentorshipService(logs, enrollments, settings, cacheSvc, metrics, validate, logr)
	exportSvc := service.NewExportService(courseSvc, mentorshipSvc, users, logr)

	components := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		components["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	h := handlers{
		auth:       handler.NewAuthHandler(authSvc),
		users:      handler.NewUserHandler(userSvc),
		courses:    handler.NewCourseHandler(courseSvc, exportSvc),
		curriculum: handler.NewCurriculumHandler(curriculumSvc),
		enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		mentorship: handler.NewMentorshipHandler(mentorshipSvc, exportSvc),
		metrics:    handler.NewMetricsHandler(metrics, components),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), h, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logr.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
	}
}

type handlers struct {
	auth       *handler.AuthHandler
	users      *handler.UserHandler
	courses    *handler.CourseHandler
	curriculum *handler.CurriculumHandler
	enrollment *handler.EnrollmentHandler
	mentorship *handler.MentorshipHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h handlers, tokens middleware.TokenValidator) {
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens), middleware.UUIDParams("id"))
	secured.GET("/auth/me", h.auth.Me)

	admin := middleware.RequireRoles(models.RoleAdministrator)
	staff := middleware.RequireRoles(models.RoleAdministrator, models.RoleMentor)

	userRoutes := secured.Group("/users")
	userRoutes.GET("", admin, h.users.List)
	userRoutes.POST("", admin, h.users.Create)
	userRoutes.GET("/:id", middleware.RequireRolesOrSelf(models.RoleAdministrator), h.users.Get)
	userRoutes.PUT("/:id", admin, h.users.Update)
	userRoutes.DELETE("/:id", admin, h.users.Delete)

	courseRoutes := secured.Group("/courses")
	courseRoutes.GET("", h.courses.List)
	courseRoutes.GET("/mine", middleware.RequireRoles(models.RoleStudent), h.enrollment.MyCourse)
	courseRoutes.GET("/:id", h.courses.Get)
	courseRoutes.GET("/:id/calendar", h.courses.Calendar)
	courseRoutes.POST("", admin, h.courses.Create)
	courseRoutes.PUT("/:id", admin, h.courses.Update)
	courseRoutes.DELETE("/:id", admin, h.courses.Delete)
	courseRoutes.POST("/:id/subjects", admin, h.curriculum.CreateSubject)
	courseRoutes.POST("/:id/students", admin, h.enrollment.Assign)
	courseRoutes.DELETE("/:id/students", admin, h.enrollment.Remove)
	courseRoutes.GET("/:id/students", staff, h.enrollment.List)

	subjectRoutes := secured.Group("/subjects")
	subjectRoutes.PUT("/:id", admin, h.curriculum.UpdateSubject)
	subjectRoutes.DELETE("/:id", admin, h.curriculum.DeleteSubject)
	subjectRoutes.GET("/:id/classes", h.curriculum.ListClasses)
	subjectRoutes.POST("/:id/classes", admin, h.curriculum.CreateClass)

	classRoutes := secured.Group("/classes")
	classRoutes.GET("/mine", h.curriculum.MyClasses)
	classRoutes.POST("/availability", admin, h.curriculum.CheckAvailability)
	classRoutes.PUT("/:id", admin, h.curriculum.UpdateClass)
	classRoutes.DELETE("/:id", admin, h.curriculum.DeleteClass)

	secured.POST("/calendar/preview", admin, h.curriculum.PreviewCalendar)
	secured.GET("/mentees", staff, h.enrollment.Mentees)

	mentorship := secured.Group("/mentorship", staff)
	mentorship.GET("/logs", h.mentorship.ListLogs)
	mentorship.POST("/logs", h.mentorship.CreateLog)
	mentorship.PUT("/logs/:id", h.mentorship.UpdateLog)
	mentorship.DELETE("/logs/:id", h.mentorship.DeleteLog)
	mentorship.GET("/settings", h.mentorship.Settings)
	mentorship.PUT("/settings", admin, h.mentorship.UpdateSettings)
	mentorship.GET("/dashboard", h.mentorship.Dashboard)
	mentorship.GET("/alerts/export", h.mentorship.ExportAlerts)
}

func cadenceSettings(cfg config.CadenceConfig) models.CadenceSettings {
	return models.CadenceSettings{
		Digital: models.CadenceThresholds{
			ExpectedDays: cfg.DigitalExpectedDays,
			WarningDays:  cfg.DigitalWarningDays,
			CriticalDays: cfg.DigitalCriticalDays,
		},
		InPerson: models.CadenceThresholds{
			ExpectedDays: cfg.InPersonExpectedDays,
			WarningDays:  cfg.InPersonWarningDays,
			CriticalDays: cfg.InPersonCriticalDays,
		},
	}
}
