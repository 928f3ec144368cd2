package httpiface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "github.com/Pacifique5/AI-BOT/domain/chat"
	"github.com/Pacifique5/AI-BOT/internal/metrics"
)

type ChatService interface {
	Chat(ctx context.Context, req *domain.Request) (*domain.Response, error)
}

type Router struct {
	service       ChatService
	corsOrigins   []string
	apiConfigured bool
	metrics       *metrics.Metrics
	metricsPath   string
}

func NewRouter(service ChatService, corsOrigins []string, apiConfigured bool) *Router {
	return &Router{
		service:       service,
		corsOrigins:   corsOrigins,
		apiConfigured: apiConfigured,
	}
}

// NewRouterWithMetrics creates a router that records request metrics and
// serves the Prometheus scrape endpoint at metricsPath.
func NewRouterWithMetrics(service ChatService, corsOrigins []string, apiConfigured bool, m *metrics.Metrics, metricsPath string) *Router {
	return &Router{
		service:       service,
		corsOrigins:   corsOrigins,
		apiConfigured: apiConfigured,
		metrics:       m,
		metricsPath:   metricsPath,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(r.recoveryMiddleware())
	router.Use(r.corsMiddleware())
	if r.metrics != nil {
		router.Use(r.metrics.Middleware())
	}

	// Probes and landing page - no request ID needed for monitoring tools
	router.GET("/live", r.liveness)
	router.GET("/ready", r.readiness)
	router.GET("/health", r.healthCheck)
	router.GET("/", r.root)
	if r.metrics != nil {
		router.GET(r.metricsPath, gin.WrapH(r.metrics.Handler()))
	}

	// Business API endpoints carry a request ID for log correlation
	api := router.Group("/")
	api.Use(r.requestIDMiddleware())
	api.POST("/chat", r.chat)

	return router
}

// recoveryMiddleware converts panics into the uniform error envelope. The
// stock gin.Recovery writes a bare 500, which would break the response
// contract, so the envelope is built here and the stack stays server-side.
func (r *Router) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithFields(logrus.Fields{
					"panic": fmt.Sprintf("%v", rec),
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered while handling request")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					domain.NewErrorResponse(http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", rec)))
			}
		}()
		c.Next()
	}
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if reqOrigin == "" {
			c.Header("Access-Control-Allow-Origin", strings.Join(r.corsOrigins, ", "))
		} else {
			allowOrigin := ""
			if len(r.corsOrigins) == 1 && r.corsOrigins[0] == "*" {
				allowOrigin = "*"
			} else {
				for _, allowed := range r.corsOrigins {
					if allowed == reqOrigin {
						allowOrigin = reqOrigin
						break
					}
				}
			}
			if allowOrigin != "" {
				c.Header("Access-Control-Allow-Origin", allowOrigin)
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware propagates the client's X-Request-ID or generates one,
// echoes it on the response and stores it for log correlation.
func (r *Router) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)

		c.Next()
	}
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"api_configured": r.apiConfigured,
	})
}

// liveness probe: process is up and serving HTTP
func (r *Router) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readiness probe: the relay holds no stateful dependencies, so readiness
// tracks liveness; upstream health is deliberately not probed here
func (r *Router) readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Chatbot API",
		"docs":    "/docs",
	})
}

func (r *Router) chat(c *gin.Context) {
	var req domain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Failed to bind chat request")
		r.writeError(c, &domain.ValidationError{Message: "invalid request body"})
		return
	}

	resp, err := r.service.Chat(c.Request.Context(), &req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Chat request failed")
		r.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps a chat failure onto the uniform envelope. The HTTP status
// always equals the envelope status; upstream failures pass their status and
// raw payload through untouched.
func (r *Router) writeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var timeoutErr *domain.TimeoutError
	var upstreamErr *domain.UpstreamError
	var networkErr *domain.NetworkError
	var schemaErr *domain.SchemaError

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, validationErr.Message, nil)
	case errors.As(err, &timeoutErr):
		respondError(c, http.StatusGatewayTimeout, "request timed out", nil)
	case errors.As(err, &upstreamErr):
		respondError(c, upstreamErr.StatusCode, "upstream API error", upstreamErr.Body)
	case errors.As(err, &networkErr):
		respondError(c, http.StatusServiceUnavailable, networkErr.Error(), nil)
	case errors.As(err, &schemaErr):
		respondError(c, http.StatusInternalServerError, schemaErr.Message, nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal server error: "+err.Error(), nil)
	}
}

func respondError(c *gin.Context, status int, message string, detailErr any) {
	resp := domain.NewErrorResponse(status, message)
	if detailErr != nil {
		resp.Detail.Error = detailErr
	}
	c.JSON(status, resp)
}
