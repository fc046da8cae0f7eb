package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/debatearchive/catalog/handlers"
	"github.com/debatearchive/catalog/internal/config"
	"github.com/debatearchive/catalog/internal/document/handler"
	"github.com/debatearchive/catalog/pkg/middleware"
)

type routerDeps struct {
	svc interface {
		handler.Service
		Ping(ctx context.Context) error
	}
	exporter handler.Exporter
	verifier middleware.Verifier
	redis    *redis.Client
}

func newRouter(cfg *config.Config, d routerDeps) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Permissive CORS: the front-end may be served from another origin.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	var write []gin.HandlerFunc
	if d.verifier != nil {
		write = append(write, middleware.AuthMiddleware(d.verifier))
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			write = append(write, middleware.RedisRateLimitMiddleware(d.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			write = append(write, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	handler.New(d.svc, d.exporter).Register(r, write...)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when the index answers; Redis is reported when configured
	r.GET("/ready", func(c *gin.Context) {
		ctx := c.Request.Context()
		ready := true
		deps := map[string]bool{}

		deps["index"] = d.svc.Ping(ctx) == nil
		if !deps["index"] {
			ready = false
		}
		if d.redis != nil {
			deps["redis"] = d.redis.Ping(ctx).Err() == nil
			if !deps["redis"] && (cfg.SearchCache.Enabled || cfg.RateLimit.UseRedis || cfg.Sequence.Backend == config.SequenceBackendRedis) {
				ready = false
			}
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	if dir := cfg.Server.StaticDir; dir != "" {
		r.StaticFile("/", filepath.Join(dir, "html", "index.html"))
		r.StaticFile("/edit", filepath.Join(dir, "html", "edit.html"))
		r.StaticFile("/edit.html", filepath.Join(dir, "html", "edit.html"))
		r.Static("/js", filepath.Join(dir, "js"))
		r.Static("/css", filepath.Join(dir, "css"))
	}
	return r
}
