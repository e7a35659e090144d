// Package api exposes the face gate over HTTP for the benefits
// dashboard: enrollment and verification from uploaded frames, template
// management, quota administration and a websocket presence feed.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries the keys guarding the API surface.
type RouterOptions struct {
	// APIKey guards all /v1 routes. Empty disables the check.
	APIKey string
	// AdminKey guards administrative routes (quota reset) via the
	// X-Admin-Key header. Empty disables the extra check.
	AdminKey string
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(s *Server, hub *Hub, opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1", RequireKey(opts.APIKey))
	{
		v1.POST("/users/:id/enroll", s.handleEnroll)
		v1.POST("/users/:id/verify", s.handleVerify)
		v1.GET("/users/:id/template", s.handleTemplateStatus)
		v1.DELETE("/users/:id/template", s.handleTemplateDelete)
		v1.GET("/users/:id/quota", s.handleQuota)
		v1.POST("/users/:id/quota/reset", RequireAdminKey(opts.AdminKey), s.handleQuotaReset)
		v1.POST("/presence/frame", s.handlePresenceFrame)
		v1.GET("/ws", hub.HandleWS)
	}

	return r
}
