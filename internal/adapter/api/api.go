package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
	"github.com/simaogato/networth-backend/internal/usecase/display"
	"github.com/simaogato/networth-backend/internal/usecase/pricing"
	"github.com/simaogato/networth-backend/internal/usecase/section"
	"github.com/simaogato/networth-backend/internal/usecase/snapshot"
	"github.com/simaogato/networth-backend/internal/usecase/transfer"
)

type ApiHandler struct {
	DisplayService  *display.DisplayService
	SectionService  *section.SectionService
	SnapshotService *snapshot.SnapshotService
	PricingService  *pricing.PricingService
	TransferService *transfer.TransferService
	APIToken        string
	Logger          *zap.SugaredLogger
}

// NewApiHandler creates the HTTP handler of the JSON API
func NewApiHandler(
	displayService *display.DisplayService,
	sectionService *section.SectionService,
	snapshotService *snapshot.SnapshotService,
	pricingService *pricing.PricingService,
	transferService *transfer.TransferService,
	apiToken string,
	l *zap.SugaredLogger,
) ApiHandler {
	return ApiHandler{
		DisplayService:  displayService,
		SectionService:  sectionService,
		SnapshotService: snapshotService,
		PricingService:  pricingService,
		TransferService: transferService,
		APIToken:        apiToken,
		Logger:          logger.OrNop(l),
	}
}

// Router builds the gin engine serving the JSON API under /api
func (h ApiHandler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(h.logRequestMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", h.authMiddleware())

	api.GET("/total", h.getTotal)
	api.POST("/total", h.getTotal)

	api.GET("/sections", h.listSections)
	api.POST("/sections", h.addSection)
	api.PATCH("/sections/:id", h.updateSection)
	api.PUT("/sections/:id/type", h.changeSectionType)
	api.DELETE("/sections/:id", h.removeSection)
	api.POST("/sections/:id/refresh", h.refreshSection)

	api.GET("/snapshots", h.listSnapshots)
	api.POST("/snapshots", h.saveSnapshot)
	api.GET("/snapshots/:date", h.getSnapshot)
	api.DELETE("/snapshots/:date", h.deleteSnapshot)

	api.GET("/history", h.getHistory)
	api.GET("/history.csv", h.getHistoryCSV)

	api.GET("/prices/:ticker", h.resolvePrice)
	api.DELETE("/prices/cache", h.clearPriceCache)

	api.GET("/export", h.export)
	api.POST("/import", h.importData)

	return router
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, statusFor(err))
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSectionNotFound), errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidAssetType),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrFieldNotApplicable),
		errors.Is(err, domain.ErrInvalidImport):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h ApiHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			returnErrorJsonCode(errors.New("missing authorization header"), c, http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.APIToken)) != 1 {
			returnErrorJsonCode(errors.New("invalid token"), c, http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func (h ApiHandler) logRequestMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()

	fields := []interface{}{
		"method", c.Request.Method,
		"route", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, "errors", c.Errors.String())
	}
	if c.Writer.Status() >= http.StatusInternalServerError {
		h.Logger.Errorw("request failed", fields...)
		return
	}
	h.Logger.Debugw("request", fields...)
}
