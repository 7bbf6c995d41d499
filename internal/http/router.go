package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/usecase"
)

// RouterOptions configures SetupRouter.
type RouterOptions struct {
	// AllowedOrigins lists CORS origins. Empty allows every origin.
	AllowedOrigins []string
	// MaxUploadBytes limits request bodies on the upload route and the
	// multipart memory of the router.
	MaxUploadBytes int64
}

// SetupRouter creates and configures the Gin router.
func SetupRouter(svc *usecase.Service, opts RouterOptions, log logrus.FieldLogger) *gin.Engine {
	router := gin.Default()
	if opts.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = opts.MaxUploadBytes
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(svc, log)

	router.POST("/upload", limitBody(opts.MaxUploadBytes), handler.Upload)
	router.POST("/load", handler.Load)
	router.GET("/info", handler.Info)
	router.POST("/get_timeseries", handler.TimeSeries)
	router.POST("/download_timeseries", handler.Download)
	router.POST("/download_timeseries_csv", handler.Download)

	router.GET("/health", handler.HealthCheck)

	return router
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
