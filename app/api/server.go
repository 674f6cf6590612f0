package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baleal/newsgate/app/cfg"
)

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS: the site front end is served from a different origin.
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	appCfg := cfg.Get()
	if appCfg.RateLimitMax > 0 {
		r.Use(rateLimitMiddleware(appCfg.RateLimitMax, appCfg.RateLimitWindow()))
	}

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	api := r.Group("/api")
	{
		api.GET("/rss", handler.GetFeed)
		api.GET("/aggregate", handler.GetAggregate)
		api.GET("/aggregate.rss", handler.GetAggregateRSS)
		api.GET("/newsdata", handler.GetNewsdata)
		api.GET("/image", handler.GetImage)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Newsgate",
			"version":     cfg.Get().Version,
			"description": "RSS/Atom aggregation, normalization, and deduplication proxy",
			"endpoints": map[string]string{
				"health":        "/health",
				"stats":         "/stats",
				"rss":           "/api/rss?url=<feedUrl>&noCache=<0|1>",
				"aggregate":     "/api/aggregate?sources=<url,url>&dedupe=<0|1>&noCache=<0|1>&limit=<n>",
				"aggregate_rss": "/api/aggregate.rss?sources=<url,url>",
				"newsdata":      "/api/newsdata?q=&country=&language=&category=",
				"image":         "/api/image?url=<imageUrl>",
			},
		})
	})

	// Return 204 to avoid 404 noise from browsers.
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
