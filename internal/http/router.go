// Package httpapi wires the companion HTTP surface (Gin) to the client
// services, the event hub, middleware and route handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, logging with
// redaction, panic recovery, compression, metrics, rate limiting, CORS and
// security headers.
//
// Middleware order matters:
//  1. OpenTelemetry (when enabled)
//  2. RequestID, then RedactingLogger, then Recovery
//  3. Body size limit
//  4. Gzip (never for the event stream)
//  5. Metrics
//  6. Rate limiter for actions
//  7. CORS and security headers
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-docchat-client/internal/config"
	"github.com/tbourn/go-docchat-client/internal/http/events"
	"github.com/tbourn/go-docchat-client/internal/http/handlers"
	"github.com/tbourn/go-docchat-client/internal/http/middleware"
	"github.com/tbourn/go-docchat-client/internal/services"
)

// defaultBodyLimit caps JSON action bodies. Upload routes get the larger
// multipart cap enforced by the handler itself.
const defaultBodyLimit = 1 << 20

// RegisterRoutes attaches middleware and endpoints to r. Component state and
// actions are mounted under cfg.UIBasePath together with the websocket event
// stream; /health and /metrics live at the root.
func RegisterRoutes(r *gin.Engine, app *services.App, hub *events.Hub, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	base := normalizeBase(cfg.UIBasePath)
	eventsPath := base + "/events"
	uploadPrefix := base + "/upload"

	if cfg.OTEL.Enabled {
		r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())

	r.Use(limitBody(defaultBodyLimit, uploadPrefix))

	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{eventsPath, uploadPrefix, "/metrics"}),
	))

	r.Use(middleware.Metrics(eventsPath))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	rl.Exempt = middleware.SafeMethods
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:            cfg.Security.EnableHSTS,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		EnablePolicy:          true,
		ContentSecurityPolicy: middleware.DefaultAPIPolicy,
		SkipPaths:             []string{"/swagger"},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.Clients()})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(app)
	ui := groupWithPrefix(r, base)
	{
		ui.GET("/events", hub.ServeWS)

		// Session
		ui.GET("/auth", h.GetAuth)
		ui.POST("/auth/login", h.Login)
		ui.POST("/auth/google", h.LoginExternal)
		ui.POST("/auth/register", h.Register)
		ui.POST("/auth/logout", h.Logout)

		// Navigation
		ui.GET("/nav", h.GetNav)
		ui.PUT("/nav/panel", h.ActivatePanel)
		ui.POST("/nav/open-chat", h.OpenChat)

		// Documents and selection
		ui.GET("/documents", h.GetDocuments)
		ui.POST("/documents/reload", h.ReloadDocuments)
		ui.PUT("/documents/selection/:id", h.ToggleDocument)
		ui.DELETE("/documents/selection", h.ClearSelection)
		ui.POST("/documents/session", h.StartSession)

		// Chat
		ui.GET("/chat", h.GetChat)
		ui.POST("/chat/messages", h.SendMessage)
		ui.POST("/chat/suggestions/:index", h.AskSuggested)
		ui.PUT("/chat/draft", h.SetDraft)

		// Upload batch
		ui.GET("/upload", h.GetUpload)
		ui.POST("/upload/files", h.AddFiles)
		ui.DELETE("/upload/files/:index", h.RemoveFile)
		ui.POST("/upload/submit", h.SubmitUpload)

		// Profile
		ui.GET("/profile", h.GetProfile)
		ui.POST("/profile/reload", h.ReloadProfile)

		// Admin
		ui.GET("/admin", h.GetAdmin)
		ui.POST("/admin/reload", h.ReloadAdmin)
		ui.PUT("/admin/tab", h.SwitchTab)
		ui.POST("/admin/users/:username/delete", h.RequestDeleteUser)
		ui.POST("/admin/documents/:id/delete", h.RequestDeleteDocument)
		ui.POST("/admin/confirmations/:id/confirm", h.ConfirmDeletion)
		ui.DELETE("/admin/confirmations/:id", h.CancelDeletion)
	}
}

// corsMiddleware allows every origin without credentials when origins is
// empty, and otherwise only the listed ones.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "If-None-Match", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps the request body to maxBytes with http.MaxBytesReader.
// Paths under any of skip are left alone.
func limitBody(maxBytes int64, skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range skip {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func normalizeBase(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
