// Package router assembles the gin engine from the registered modules.
package router

import (
	nethttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apphttp "memorial_intake_backend/internal/http"
	"memorial_intake_backend/platform/httpkit"
)

// The form endpoint is public, so submissions are rate limited per client
// IP. Ten per minute with a small burst is generous for a human and cheap
// to hold in memory.
const (
	submissionsPerSecond = rate.Limit(10.0 / 60.0)
	submissionBurst      = 5
)

// New builds the HTTP engine: recovery, request ID, logging, security
// headers and CORS on everything; the per-IP limiter only on the public
// /api/v1 surface.
func New(app *apphttp.App) *gin.Engine {
	if app.Config == nil || app.Logger == nil {
		panic("router: App requires Config and Logger")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app)))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})

	limiter := httpkit.NewIPRateLimiter(submissionsPerSecond, submissionBurst, app.Logger)

	ctx := &apphttp.RouterContext{
		Engine: engine,
		V1:     engine.Group("/api/v1", limiter.RateLimit()),
		Hooks:  engine.Group("/hooks"),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(app *apphttp.App) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = app.Config.GetCORSOrigins()
	return cfg
}
