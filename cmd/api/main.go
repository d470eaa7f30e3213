package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classdesk/classdesk-api/api/swagger"
	"github.com/classdesk/classdesk-api/internal/handler"
	"github.com/classdesk/classdesk-api/internal/middleware"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	"github.com/classdesk/classdesk-api/internal/service"
	"github.com/classdesk/classdesk-api/pkg/cache"
	"github.com/classdesk/classdesk-api/pkg/config"
	"github.com/classdesk/classdesk-api/pkg/database"
	"github.com/classdesk/classdesk-api/pkg/logger"
	corsmiddleware "github.com/classdesk/classdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classdesk/classdesk-api/pkg/middleware/requestid"
)

// @title ClassDesk API
// @version 1.0.0
// @description Academic administration backend: departments, subjects, classes and enrollments.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	authSvc := service.NewAuthService(userRepo, sessionRepo, accountRepo, verificationRepo, cfg.Session.Expiration, cfg.Session.VerificationTTL, validate, logr)
	userSvc := service.NewUserService(userRepo, classRepo, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, departmentRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, subjectRepo, userRepo, enrollmentRepo, cfg.Session.InviteCodeLength, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, userRepo, metricsSvc, validate, logr)

	authHdl := handler.NewAuthHandler(authSvc)
	userHdl := handler.NewUserHandler(userSvc, enrollmentSvc)
	departmentHdl := handler.NewDepartmentHandler(departmentSvc)
	subjectHdl := handler.NewSubjectHandler(subjectSvc)
	classHdl := handler.NewClassHandler(classSvc)
	enrollmentHdl := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHdl := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.FrontendURL))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHdl.Health)
	r.GET("/ready", metricsHdl.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHdl.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api")
	api.Use(middleware.RequireJSONBody())

	auth := api.Group("/auth")
	{
		auth.POST("/sign-up", middleware.OptionalSession(authSvc), authHdl.SignUp)
		auth.POST("/sign-in", authHdl.SignIn)
		auth.POST("/sign-out", authHdl.SignOut)
		auth.POST("/verification", authHdl.IssueVerification)
		auth.POST("/verification/consume", authHdl.ConsumeVerification)
		auth.GET("/session", middleware.Session(authSvc), authHdl.Session)
		auth.GET("/accounts", middleware.Session(authSvc), authHdl.Accounts)
		auth.POST("/accounts", middleware.Session(authSvc), authHdl.LinkAccount)
	}

	authed := api.Group("")
	authed.Use(middleware.Session(authSvc))

	var listCache gin.HandlerFunc
	var invalidate func(patterns ...string) gin.HandlerFunc
	if cfg.Cache.Enabled {
		listCache = middleware.ResponseCache(cacheRepo, cfg.Cache.TTL, metricsSvc)
		invalidate = func(patterns ...string) gin.HandlerFunc {
			return middleware.InvalidateCache(cacheRepo, patterns...)
		}
	} else {
		passthrough := func(c *gin.Context) { c.Next() }
		listCache = passthrough
		invalidate = func(...string) gin.HandlerFunc { return passthrough }
	}

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)

	departments := authed.Group("/subjects/departments")
	{
		departments.GET("", listCache, departmentHdl.List)
		departments.GET("/:id", departmentHdl.Get)
		departments.POST("", adminOnly, invalidate("resp:/api/subjects*"), departmentHdl.Create)
		departments.PUT("/:id", adminOnly, invalidate("resp:/api/subjects*"), departmentHdl.Update)
		departments.DELETE("/:id", adminOnly, invalidate("resp:/api/subjects*"), departmentHdl.Delete)
	}

	classes := authed.Group("/subjects/classes")
	{
		classes.GET("", listCache, classHdl.List)
		classes.GET("/:id", classHdl.Get)
		classes.POST("", staffOnly, invalidate("resp:/api/subjects*"), classHdl.Create)
		classes.PUT("/:id", staffOnly, invalidate("resp:/api/subjects*"), classHdl.Update)
		classes.PATCH("/:id/status", staffOnly, invalidate("resp:/api/subjects*"), classHdl.UpdateStatus)
		classes.DELETE("/:id", staffOnly, invalidate("resp:/api/subjects*"), classHdl.Delete)

		classes.GET("/:id/enrollments", staffOnly, enrollmentHdl.Roster)
		classes.POST("/:id/enrollments", enrollmentHdl.Enroll)
		classes.DELETE("/:id/enrollments/:studentId", enrollmentHdl.Unenroll)
		classes.POST("/join", enrollmentHdl.Join)
		classes.GET("/:id/roster/export", staffOnly, classHdl.ExportRoster)
	}

	subjects := authed.Group("/subjects")
	{
		subjects.GET("", listCache, subjectHdl.List)
		subjects.GET("/:id", subjectHdl.Get)
		subjects.POST("", adminOnly, invalidate("resp:/api/subjects*"), subjectHdl.Create)
		subjects.PUT("/:id", adminOnly, invalidate("resp:/api/subjects*"), subjectHdl.Update)
		subjects.DELETE("/:id", adminOnly, invalidate("resp:/api/subjects*"), subjectHdl.Delete)
	}

	users := authed.Group("/users")
	{
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf), userHdl.Get)
		users.GET("/:id/enrollments", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.AllowSelf), userHdl.Enrollments)
		users.DELETE("/:id", adminOnly, userHdl.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
