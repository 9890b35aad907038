package router

import (
	"ucsattendance/docs"
	"ucsattendance/internal/config"
	"ucsattendance/internal/handler"
	"ucsattendance/internal/middleware"
	"ucsattendance/internal/repository"
	"ucsattendance/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	rosterRepo := repository.NewRosterRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	attendanceSvc := service.NewAttendanceService(rosterRepo, sessionRepo, service.SystemClock)
	rosterSvc := service.NewRosterService(rosterRepo, service.SystemClock)

	// ── Handlers ─────────────────────────────────────────────────────────────
	attendanceH := handler.NewAttendanceHandler(attendanceSvc)
	rosterH := handler.NewRosterHandler(rosterSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Operational
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := middleware.RateLimiter(rdb, cfg.RateLimitPerMin)

	v1 := r.Group("/v1", limited)
	{
		att := v1.Group("/attendance")
		{
			att.POST("/checkin", attendanceH.CheckIn)
			att.POST("/checkout", attendanceH.CheckOut)
			att.GET("/active", attendanceH.ListActive)
		}

		v1.GET("/roster", rosterH.List)
		v1.POST("/roster/import", rosterH.Import)
	}

	// Paths used by existing kiosk clients
	legacy := r.Group("/api/user", limited)
	{
		legacy.POST("/checkin", attendanceH.CheckIn)
		legacy.POST("/checkout", attendanceH.CheckOut)
		legacy.GET("/active-checkins", attendanceH.ListActive)
		legacy.GET("/master", rosterH.List)
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		docs.SwaggerInfo.BasePath = "/"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
