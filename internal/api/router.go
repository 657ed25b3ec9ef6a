// Package api wires together the HTTP routes for the firm finder.
//
// The surface is deliberately small: three system endpoints (/, /health,
// /version), a per-host upstream diagnostic (/probe), and the one business
// endpoint (/search). Everything is public — the service fronts a public
// directory and holds no state of its own — so there is no auth middleware;
// the upstream subscription key never leaves the server side.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/briefbase/sra-finder/internal/api/search"
	"github.com/briefbase/sra-finder/internal/config"
	"github.com/briefbase/sra-finder/internal/middleware"
	"github.com/briefbase/sra-finder/internal/sra"
)

// Version is the service version reported by / and /version.
const Version = "0.3.0"

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, client *sra.Client) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeaders(middleware.APISecurityHeadersConfig()))

	router.GET("/", rootHandler())
	router.GET("/health", healthHandler())
	router.GET("/version", versionHandler())
	router.GET("/probe", probeHandler(client))
	router.GET("/search", search.Handler(client))

	return router
}

// rootHandler confirms the service is up. Kept for compatibility with
// deployment smoke checks that hit the bare origin.
func rootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":  true,
			"msg": "sra-finder is alive.",
		})
	}
}

// healthHandler is the liveness probe. The service holds no database or
// storage, so being able to answer at all is the whole check; upstream
// reachability is deliberately excluded (see /probe for that).
func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// versionHandler returns the service version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// probeHandler reports per-host reachability of the upstream API. It exists
// because the two published SRA endpoints fail differently from different
// networks, and "which host is broken from here" is the first question when a
// deployment starts returning 502s.
func probeHandler(client *sra.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"probe": client.ProbeHosts(c.Request.Context()),
		})
	}
}

// LoggerMiddleware emits one structured slog record per request. The output
// format (json/text) follows the global handler installed by
// telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS according to the configured origin allowlist.
// The reference deployment runs with allowed_origins: ["*"] while the frontend
// domain is still moving; production configs narrow it.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", strings.Join(cfg.Security.CORS.AllowedMethods, ", "))
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
