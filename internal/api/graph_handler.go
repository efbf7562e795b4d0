package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gstech/itc-compliance/internal/domain"
	"github.com/gstech/itc-compliance/internal/graph"
	"github.com/gstech/itc-compliance/internal/service"
)

const maxHopsLimit = 6

type GraphHandler struct {
	graphService *service.GraphService
}

func NewGraphHandler(graphService *service.GraphService) *GraphHandler {
	return &GraphHandler{graphService: graphService}
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "data": data})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"status": "error", "error": msg})
}

// handleQueryErr maps engine errors onto HTTP statuses.
func handleQueryErr(c echo.Context, err error) error {
	if errors.Is(err, graph.ErrGSTINNotFound) {
		return fail(c, http.StatusNotFound, "gstin not found")
	}
	return fail(c, http.StatusInternalServerError, err.Error())
}

// Health handles GET /api/health
func (h *GraphHandler) Health(c echo.Context) error {
	return ok(c, map[string]any{
		"service":     "itc-compliance",
		"graph_built": h.graphService.BuiltAt(),
	})
}

// GetStats handles GET /api/graph/stats
func (h *GraphHandler) GetStats(c echo.Context) error {
	return ok(c, h.graphService.Stats())
}

// GetWarnings handles GET /api/graph/warnings
func (h *GraphHandler) GetWarnings(c echo.Context) error {
	return ok(c, h.graphService.Warnings())
}

// Reconcile handles GET /api/reconcile/:gstin?period=MMYYYY&as_of=YYYY-MM-DD
func (h *GraphHandler) Reconcile(c echo.Context) error {
	gstin := c.Param("gstin")
	period := c.QueryParam("period")
	if period == "" {
		return fail(c, http.StatusBadRequest, "missing query parameter 'period'")
	}

	asOf, err := parseAsOf(c.QueryParam("as_of"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid as_of date, expected YYYY-MM-DD")
	}

	result, err := h.graphService.ReconcilePeriod(gstin, period, asOf)
	if err != nil {
		return handleQueryErr(c, err)
	}
	return ok(c, result)
}

// PaymentCompliance handles GET /api/payments/:gstin?as_of=YYYY-MM-DD
func (h *GraphHandler) PaymentCompliance(c echo.Context) error {
	asOf, err := parseAsOf(c.QueryParam("as_of"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid as_of date, expected YYYY-MM-DD")
	}

	result, err := h.graphService.CheckPaymentCompliance(c.Param("gstin"), asOf)
	if err != nil {
		return handleQueryErr(c, err)
	}
	return ok(c, result)
}

// ValidateChain handles GET /api/itc/chain/:gstin?max_hops=N
func (h *GraphHandler) ValidateChain(c echo.Context) error {
	maxHops := 0
	if raw := c.QueryParam("max_hops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fail(c, http.StatusBadRequest, "max_hops must be a positive integer")
		}
		if n > maxHopsLimit {
			n = maxHopsLimit
		}
		maxHops = n
	}

	result, err := h.graphService.ValidateChain(c.Param("gstin"), maxHops)
	if err != nil {
		return handleQueryErr(c, err)
	}
	return ok(c, result)
}

// GetClusters handles GET /api/graph/clusters
func (h *GraphHandler) GetClusters(c echo.Context) error {
	return ok(c, h.graphService.RiskClusters())
}

// GetVendorRisk handles GET /api/vendors/risk?top=N
func (h *GraphHandler) GetVendorRisk(c echo.Context) error {
	top := 0
	if raw := c.QueryParam("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fail(c, http.StatusBadRequest, "top must be a positive integer")
		}
		top = n
	}
	return ok(c, h.graphService.VendorProfiles(top))
}

// PredictAll handles GET /api/predict/all
func (h *GraphHandler) PredictAll(c echo.Context) error {
	return ok(c, h.graphService.PredictAll())
}

// Predict handles GET /api/predict/:gstin
func (h *GraphHandler) Predict(c echo.Context) error {
	result, err := h.graphService.Predict(c.Param("gstin"))
	if err != nil {
		return handleQueryErr(c, err)
	}
	return ok(c, result)
}

// GetFeatures handles GET /api/features/:gstin
func (h *GraphHandler) GetFeatures(c echo.Context) error {
	result, err := h.graphService.Features(c.Param("gstin"))
	if err != nil {
		return handleQueryErr(c, err)
	}
	return ok(c, result)
}

// SearchAudits handles GET /api/audits?q=&from=&size=
func (h *GraphHandler) SearchAudits(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return fail(c, http.StatusBadRequest, "missing query parameter 'q'")
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	audits, total, err := h.graphService.SearchAudits(c.Request().Context(), query, from, size)
	if err != nil {
		if errors.Is(err, service.ErrAuditIndexDisabled) {
			return fail(c, http.StatusServiceUnavailable, "audit index disabled")
		}
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	return ok(c, map[string]any{"total": total, "audits": audits})
}

// Rebuild handles POST /api/rebuild
func (h *GraphHandler) Rebuild(c echo.Context) error {
	if err := h.graphService.Rebuild(c.Request().Context()); err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	return ok(c, h.graphService.Stats())
}

func parseAsOf(raw string) (domain.Date, error) {
	if raw == "" {
		return domain.Date{}, nil
	}
	return domain.ParseDate(raw)
}

// RegisterRoutes registers the API routes
func (h *GraphHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/graph/stats", h.GetStats)
	g.GET("/graph/warnings", h.GetWarnings)
	g.GET("/graph/clusters", h.GetClusters)
	g.GET("/reconcile/:gstin", h.Reconcile)
	g.GET("/payments/:gstin", h.PaymentCompliance)
	g.GET("/itc/chain/:gstin", h.ValidateChain)
	g.GET("/vendors/risk", h.GetVendorRisk)
	g.GET("/predict/all", h.PredictAll)
	g.GET("/predict/:gstin", h.Predict)
	g.GET("/features/:gstin", h.GetFeatures)
	g.GET("/audits", h.SearchAudits)
	g.POST("/rebuild", h.Rebuild)
}
