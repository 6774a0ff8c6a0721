package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/service/cache"
	"PricePulse/internal/service/metrics"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	applogger "PricePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Analyzer runs single and batch analyses.
type Analyzer interface {
	Analyze(ctx context.Context, p usecase.AnalyzeParams) (*models.Analysis, error)
	AnalyzeBatch(ctx context.Context, items []usecase.AnalyzeParams) ([]usecase.BatchResult, error)
}

// CatalogReader lists what the store holds.
type CatalogReader interface {
	Products(limit int, category string) []models.ProductInfo
	Categories() []string
	Status() usecase.StoreStatus
}

// Reloader rebuilds the store from its source.
type Reloader interface {
	Reload(ctx context.Context) (usecase.ReloadResult, error)
}

// PricesEchoHandler serves the pricing API.
type PricesEchoHandler struct {
	log      *applogger.Logger
	analyzer Analyzer
	catalog  CatalogReader
	reloader Reloader
	cache    *cache.ResponseCache
	timeout  time.Duration
}

func NewPricesEchoHandler(log *applogger.Logger, analyzer Analyzer, catalog CatalogReader, reloader Reloader, rc *cache.ResponseCache, timeout time.Duration) *PricesEchoHandler {
	metrics.Register()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PricesEchoHandler{log: log, analyzer: analyzer, catalog: catalog, reloader: reloader, cache: rc, timeout: timeout}
}

func (h *PricesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.POST("/analyze/batch", h.AnalyzeBatch)
	g.GET("/products", h.Products)
	g.GET("/categories", h.Categories)
	g.GET("/health", h.Health)
	g.POST("/reload", h.Reload)
}

func (h *PricesEchoHandler) Analyze(c echo.Context) error {
	const endpoint = "analyze"
	defer observe(endpoint, time.Now())

	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}

	key, keyErr := cache.Key(endpoint, h.catalog.Status().Version, req)
	if keyErr == nil {
		if b, ok := h.cache.Get(c.Request().Context(), key); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	res, err := h.analyzer.Analyze(ctx, toParams(*req))
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	body, err := xhttp.EncodeEnvelope(http.StatusOK, toAnalyzeResponse(res))
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	// key by the version actually analyzed; a reload may have landed meanwhile
	if key, err := cache.Key(endpoint, res.SnapshotVersion, req); err == nil {
		h.cache.Set(c.Request().Context(), key, body)
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, body)
}

func (h *PricesEchoHandler) AnalyzeBatch(c echo.Context) error {
	const endpoint = "analyze_batch"
	defer observe(endpoint, time.Now())

	req := &models.BatchAnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, endpoint, verr)
	}
	metrics.BatchSize.Observe(float64(len(req.Items)))

	params := make([]usecase.AnalyzeParams, len(req.Items))
	for i, it := range req.Items {
		params[i] = toParams(it)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	results, err := h.analyzer.AnalyzeBatch(ctx, params)
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	out := make([]models.BatchItemResponse, len(results))
	for i, r := range results {
		item := models.BatchItemResponse{Index: r.Index}
		if r.Err != nil {
			item.ErrorKind = models.ErrorKind(r.Err)
			item.Error = r.Err.Error()
			metrics.APIErrors.WithLabelValues(endpoint, item.ErrorKind).Inc()
		} else {
			item.Result = toAnalyzeResponse(r.Analysis)
		}
		out[i] = item
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *PricesEchoHandler) Products(c echo.Context) error {
	defer observe("products", time.Now())

	req := &models.ProductsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return invalid(c, "products", verr)
	}
	ps := toProductDTOs(h.catalog.Products(req.Limit, req.Category))
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, ps, int64(len(ps)))
}

func (h *PricesEchoHandler) Categories(c echo.Context) error {
	defer observe("categories", time.Now())
	cats := h.catalog.Categories()
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, cats, int64(len(cats)))
}

// Health reports 503 until a non-empty snapshot is installed.
func (h *PricesEchoHandler) Health(c echo.Context) error {
	st := h.catalog.Status()
	resp := models.HealthResponse{
		Status:          "ok",
		SnapshotVersion: st.Version,
		Products:        st.Products,
		Categories:      st.Categories,
		BuiltAt:         st.BuiltAt,
	}
	if !st.Ready {
		resp.Status = "empty"
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, resp)
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *PricesEchoHandler) Reload(c echo.Context) error {
	const endpoint = "reload"
	defer observe(endpoint, time.Now())

	res, err := h.reloader.Reload(c.Request().Context())
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	s := res.Stats
	return xhttp.SuccessResponse(c, models.ReloadResponse{
		Source:          res.Source,
		Rows:            s.Rows,
		Accepted:        s.Accepted,
		Rejected:        s.Rejected,
		Products:        s.Products,
		Categories:      s.Categories,
		SnapshotVersion: s.Version,
	})
}

// fail maps a usecase error onto the API error envelope.
func (h *PricesEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	kind := models.ErrorKind(err)
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrNoDataAvailable):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrNoSource):
		kind = "Unavailable"
		appErr = xhttp.UnavailableError(err.Error()).WithRetryAfter(30 * time.Second)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = "Timeout"
		appErr = xhttp.TimeoutError("request timed out")
	default:
		h.log.Error("pricing request failed", applogger.String("endpoint", endpoint), applogger.Error(err))
		appErr = xhttp.InternalError("internal error").WithError(err)
	}
	metrics.APIErrors.WithLabelValues(endpoint, kind).Inc()
	return xhttp.AppErrorResponse(c, appErr.WithCode(kind).WithParam("errorKind", kind))
}

// invalid reports request validation failures with the same errorKind the
// usecase uses for rejected input.
func invalid(c echo.Context, endpoint string, verr interface{}) error {
	kind := models.ErrorKind(models.ErrInvalidInput)
	metrics.APIErrors.WithLabelValues(endpoint, kind).Inc()
	if errs, ok := verr.([]xhttp.ValidationError); ok {
		for i := range errs {
			if errs[i].Params == nil {
				errs[i].Params = map[string]interface{}{}
			}
			errs[i].Params["errorKind"] = kind
		}
	}
	return xhttp.BadRequestResponse(c, verr)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

var _ xhttp.Handler = (*PricesEchoHandler)(nil)
