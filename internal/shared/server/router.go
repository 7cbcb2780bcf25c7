package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "loandesk-backend/internal/auth"
	"loandesk-backend/internal/documents"
	"loandesk-backend/internal/services/health"
	"loandesk-backend/internal/shared/config"
	"loandesk-backend/internal/shared/metrics"
	"loandesk-backend/internal/shared/server/middleware"
	"loandesk-backend/internal/shared/server/respond"
	"loandesk-backend/internal/shared/storage/object"
	"loandesk-backend/internal/users"
)

// RouterDeps carries the pre-built handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	Store            object.Store
	DocumentsHandler *documents.Handler
	UsersHandler     *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(uploadRateLimit()),
	)

	healthSvc := health.NewService()

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	r.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}

	// The local object store presigns to this route; S3 presigns directly to
	// the bucket and never hits it.
	if deps.Store != nil && deps.Config.ObjectStoreType != "s3" {
		api.GET("/blobs/*key", serveBlob(deps.Store))
	}

	return r
}

// uploadRateLimit throttles the upload route per client; everything else
// passes unmetered.
func uploadRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"UPLOAD":  {Rate: 2, Burst: 10},
			"DEFAULT": {Rate: 50, Burst: 100},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/documents/upload") {
				return "UPLOAD"
			}
			return "DEFAULT"
		},
	}
}

func serveBlob(store object.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "blob key is required", nil)
			return
		}

		body, err := store.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				respond.Error(c, http.StatusNotFound, "not_found", "blob not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open blob", nil)
			return
		}
		defer body.Close()

		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, body)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
