package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"qrlink/internal/observability"
)

// RouterOptions agrupa la configuracion transversal del router.
type RouterOptions struct {
	AllowedOrigins []string
	AdminUsername  string
	AdminPassword  string
}

// NewRouter configura el router de Gin con middlewares y rutas de la API.
func NewRouter(
	logger *zap.Logger,
	opts RouterOptions,
	adminH *AdminHandler,
	ownerH *OwnerHandler,
	publicH *PublicHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, CORS y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), metricsMiddleware(), gin.Recovery(), corsMiddleware(opts.AllowedOrigins), jsonContentTypeMiddleware())

	r.GET("/healthz", healthH.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	admin := api.Group("/admin")
	if opts.AdminUsername != "" && opts.AdminPassword != "" {
		admin.Use(gin.BasicAuth(gin.Accounts{opts.AdminUsername: opts.AdminPassword}))
	} else {
		logger.Warn("admin routes are not protected: ADMIN_USERNAME/ADMIN_PASSWORD not set")
	}
	admin.POST("/users", adminH.CreateUser)
	admin.GET("/users", adminH.ListUsers)
	admin.PUT("/users/:id/toggle-status", adminH.ToggleStatus)
	admin.DELETE("/users/:id", adminH.DeleteUser)
	admin.GET("/qr/:uuid", adminH.GetQR)
	admin.POST("/qr/:uuid/regenerate", adminH.RegenerateQR)

	api.POST("/auth/login", ownerH.Login)
	api.GET("/qr/:uuid", ownerH.GetProfile)
	api.PUT("/qr/:uuid", ownerH.UpdateProfile)

	api.GET("/public/qr/:uuid", publicH.GetProfile)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware registra conteo y latencia por ruta, no por path crudo.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// corsMiddleware permite al frontend llamar a la API desde otro origen.
// Sin origenes configurados acepta cualquiera.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := origins[origin]
			if len(origins) == 0 || ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Add("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
