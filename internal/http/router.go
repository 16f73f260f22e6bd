package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/config"
	"github.com/gmalla/backend/internal/http/handlers"
	"github.com/gmalla/backend/internal/http/middleware"
	"github.com/gmalla/backend/internal/metrics"

	_ "github.com/gmalla/backend/docs"
)

type Deps struct {
	Tickets  handlers.TicketSource
	Users    handlers.Directory
	Planner  handlers.Planner
	Calendar *calendar.Store
	Checks   []handlers.HealthCheck
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Tickets:   deps.Tickets,
		Users:     deps.Users,
		Planner:   deps.Planner,
		Calendar:  deps.Calendar,
		Checks:    deps.Checks,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/auth-status", h.AuthStatus)
		api.GET("/incidencias", h.TicketsList)
		api.GET("/usuarios", h.UsersList)
		api.GET("/calendario", h.UserCalendar)
		api.GET("/resumen", h.Summary)
		api.GET("/detalle-incidencia/:id", h.TicketDetail)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/mover-incidencia", h.MoveTicket)
		admin.POST("/actualizar-incidencia", h.UpdateTicket)
		admin.POST("/asignar-incidencia", h.AssignTicket)
		admin.POST("/desasignar-incidencia", h.UnassignTicket)
		admin.POST("/asignacion-automatica", h.AutoAssign)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
