package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/loungeaccess-backend/customer"
	"github.com/semanticallynull/loungeaccess-backend/internal/kvstore"
	"github.com/semanticallynull/loungeaccess-backend/internal/middleware"
	"github.com/semanticallynull/loungeaccess-backend/internal/o11y"
	"github.com/semanticallynull/loungeaccess-backend/verify"
)

type API struct {
	r     *gin.Engine
	cr    *customer.Repository
	vw    *verify.Workflow
	links *verify.Links
}

// New wires the HTTP routes. publicBaseURL prefixes the verification links encoded in
// membership cards; metrics are protected by basic auth when metricsUsername is set.
func New(cr *customer.Repository, obs *o11y.Observability, publicBaseURL, metricsUsername, metricsPassword string) *API {
	a := &API{
		r:     gin.New(),
		cr:    cr,
		vw:    verify.NewWorkflow(cr, obs.Logger, verify.NewMetrics(obs.Registry)),
		links: verify.NewLinks(publicBaseURL, cr),
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	metricsHandler := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if metricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{metricsUsername: metricsPassword}), metricsHandler)
	} else {
		a.r.GET("/metrics", metricsHandler)
	}

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Card QR codes encode <base>/verify?..., so the scan lands here directly.
	a.r.GET("/verify", a.verifyHandler)

	api := a.r.Group("/api")
	{
		api.GET("/stats", a.statsHandler)

		api.GET("/customers", a.customersHandler)
		api.POST("/customers", a.createCustomerHandler)
		api.GET("/customers/:id", a.customerHandler)
		api.PUT("/customers/:id", a.updateCustomerHandler)
		api.DELETE("/customers/:id", a.deleteCustomerHandler)
		api.GET("/customers/:id/card", a.cardHandler)
		api.GET("/customers/:id/qrcode.png", a.qrCodeHandler)

		api.GET("/verify", a.verifyHandler)
		api.POST("/verify/allow", a.allowHandler)
		api.POST("/verify/deny", a.denyHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// respondError maps repository errors to responses. Anything unrecognised is logged
// and reported as an internal error.
func respondError(c *gin.Context, err error, msg string) {
	var verr *customer.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_FAILED",
			"message": "Invalid customer data",
			"fields":  verr.Fields,
		})
	case errors.Is(err, customer.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CUSTOMER_NOT_FOUND", "message": "Customer not found"})
	case errors.Is(err, kvstore.ErrConflict):
		middleware.GetLogger(c).WarnContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusConflict, gin.H{"code": "CONFLICT", "message": "The record was modified concurrently, try again"})
	default:
		middleware.GetLogger(c).ErrorContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
