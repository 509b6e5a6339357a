package api

import (
	"net/http"
	"strings"

	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the business services the handlers depend on.
type Services struct {
	QRCodes  *services.QRCodeService
	Scans    *services.ScanService
	Leads    *services.LeadService
	Dispatch *services.DispatchService
	Delivery *services.DeliveryService
	Metrics  *services.MetricsService

	// GatewayState reports the gateway circuit breaker state on /health, optional.
	GatewayState func() string
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies.
// baseURL is used to build the full short links returned on QR code creation.
func SetupRoutes(router *gin.Engine, svc Services, baseURL string, log *zap.Logger) {
	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler(svc.GatewayState))
	// Prometheus exposition
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/qrcodes", CreateQRCodeHandler(svc.QRCodes, baseURL, log))
		api.GET("/qrcodes/:shortCode/stats", GetQRCodeStatsHandler(svc.QRCodes, log))
		api.POST("/leads", CaptureLeadHandler(svc.Leads, log))
		api.POST("/messages/dispatch", DispatchHandler(svc.Dispatch, log))
		api.POST("/webhooks/delivery", DeliveryWebhookHandler(svc.Delivery, log))
		api.GET("/metrics/dashboard", DashboardHandler(svc.Metrics))
	}

	// Redirection routes, at root level like the printed QR codes (e.g. localhost:8080/ab12cd)
	router.GET("/", MissingShortCodeHandler)
	router.GET("/:shortCode", RedirectHandler(svc.Scans, log))
}

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(gatewayState func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if gatewayState != nil {
			body["gateway"] = gatewayState()
		}
		c.JSON(http.StatusOK, body)
	}
}

// respondError writes the {success:false, error} body matching err's kind.
// Server-side failures are logged with their cause, which never reaches the caller.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := customerrors.HTTPStatus(customerrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": customerrors.PublicMessage(err)})
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
}

// MissingShortCodeHandler answers a scan that carries no short code.
func MissingShortCodeHandler(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "short code is required"})
}

// RedirectHandler resolves a scanned short code and redirects to its target
// with the tracking parameter appended. The scan session is recorded
// asynchronously and never delays the redirect.
func RedirectHandler(scans *services.ScanService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := scans.Resolve(c.Request.Context(), c.Param("shortCode"), services.ScanMeta{
			UserAgent: c.GetHeader("User-Agent"),
			IPAddress: c.ClientIP(),
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// CreateQRCodeRequest is the body of POST /api/v1/qrcodes.
type CreateQRCodeRequest struct {
	TargetURL string `json:"target_url" binding:"required"`
	EventName string `json:"event_name"`
}

// CreateQRCodeHandler creates a QR code short link.
func CreateQRCodeHandler(qrcodes *services.QRCodeService, baseURL string, log *zap.Logger) gin.HandlerFunc {
	base := strings.TrimRight(baseURL, "/")
	return func(c *gin.Context) {
		var req CreateQRCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidBody(c, err)
			return
		}

		qr, err := qrcodes.CreateQRCode(c.Request.Context(), req.TargetURL, req.EventName)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":        true,
			"short_code":     qr.ShortCode,
			"target_url":     qr.TargetURL,
			"tracking_id":    qr.TrackingID,
			"event_id":       qr.EventID,
			"full_short_url": base + "/" + qr.ShortCode,
		})
	}
}

// GetQRCodeStatsHandler returns the scan and conversion counts of one QR code.
func GetQRCodeStatsHandler(qrcodes *services.QRCodeService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := qrcodes.GetQRCodeStats(c.Request.Context(), c.Param("shortCode"))
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"short_code":  stats.QRCode.ShortCode,
			"target_url":  stats.QRCode.TargetURL,
			"tracking_id": stats.QRCode.TrackingID,
			"scan_count":  stats.QRCode.ScanCount,
			"sessions":    stats.Sessions,
			"conversions": stats.Conversions,
			"created_at":  stats.QRCode.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// CaptureLeadHandler records a landing page form submission.
func CaptureLeadHandler(leads *services.LeadService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CaptureInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidBody(c, err)
			return
		}

		res, err := leads.Capture(c.Request.Context(), in)
		if err != nil {
			respondError(c, log, err)
			return
		}

		body := gin.H{"success": true, "leadId": res.LeadID, "attributed": res.Attributed}
		if res.Attributed {
			body["scanSessionId"] = res.ScanSessionID
		}
		c.JSON(http.StatusCreated, body)
	}
}

// DispatchHandler sends a bulk message to the leads matching the filter.
func DispatchHandler(dispatch *services.DispatchService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.DispatchInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidBody(c, err)
			return
		}

		res, err := dispatch.Dispatch(c.Request.Context(), in)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":            true,
			"message_history_id": res.MessageHistoryID,
			"delivery_code":      res.DeliveryCode,
			"recipient_count":    res.RecipientCount,
		})
	}
}

// DeliveryWebhookHandler applies a delivery status callback from the gateway.
// Repeated callbacks answer 200 with changed=false. A callback that would move
// a recipient out of a terminal state also answers 200, with success=false,
// so the gateway stops retrying it.
func DeliveryWebhookHandler(delivery *services.DeliveryService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.ConfirmInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidBody(c, err)
			return
		}

		res, err := delivery.Confirm(c.Request.Context(), in)
		if err != nil {
			respondError(c, log, err)
			return
		}

		if res.Rejected {
			c.JSON(http.StatusOK, gin.H{
				"success":   false,
				"changed":   false,
				"error":     res.Reason,
				"recipient": res.Recipient,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"changed":   res.Changed,
			"recipient": res.Recipient,
		})
	}
}

// DashboardHandler returns the pipeline metrics dashboard.
func DashboardHandler(metrics *services.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Dashboard(c.Request.Context()))
	}
}
