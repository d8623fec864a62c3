package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/adapters/signal"
	"github.com/therealtin05/SmartParking/internal/alpr"
	"github.com/therealtin05/SmartParking/internal/app"
	"github.com/therealtin05/SmartParking/internal/config"
	"github.com/therealtin05/SmartParking/internal/store"
)

// Deps bundles everything the router hands out to its handlers.
type Deps struct {
	Registry   *app.Registry
	Dispatcher *app.Dispatcher
	Bridge     *alpr.Bridge
	Store      store.RecordStore // may be nil; history endpoints then 503
}

// OwnerTokenMiddleware issues an opaque owner identifier as a cookie. The
// relay is identity-agnostic; the token only scopes session listings.
func OwnerTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ot")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ot", token, 3600*24*30, "/", "", false, true)
		}
		c.Set("owner_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps *Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParkingSessions", cookieStore))
	r.Use(OwnerTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "signaling+alpr"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": deps.Registry.List()})
	})

	h := &apiHandlers{bridge: deps.Bridge, store: deps.Store}
	api.POST("/plate-detect", h.plateDetect)
	api.POST("/object-tracking", h.objectTracking)
	api.GET("/plates", h.listDetections)
	api.GET("/sessions", h.listSessions)
	api.POST("/sessions", h.createSession)

	wsCtl := signal.NewController(deps.Dispatcher, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		wsCtl.HandleSignal(ctx, c)
	})

	return r
}
