package linkage

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	linker "github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/models"
)

const maxBatchSize = 10000

// Handler serves linkage runs over the loaded reference corpora
type Handler struct {
	logger   ectologger.Logger
	pipeline *linker.Pipeline
}

// NewHandler creates a new linkage handler
func NewHandler(logger ectologger.Logger, pipeline *linker.Pipeline) *Handler {
	return &Handler{
		logger:   logger,
		pipeline: pipeline,
	}
}

// RegisterRoutes registers linkage endpoints
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/linkage")
	g.POST("/runs", h.Run)
	g.POST("/accounts", h.AccountPass)
}

// RunRequest is a batch of query records to link
type RunRequest struct {
	Records []models.Record `json:"records"`
}

func (r *RunRequest) validate() error {
	if len(r.Records) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "records must not be empty")
	}
	if len(r.Records) > maxBatchSize {
		return httperror.NewHTTPError(http.StatusBadRequest, "batch exceeds maximum size")
	}
	return nil
}

// Run executes both linkage passes over the submitted batch
func (h *Handler) Run(c echo.Context) error {
	ctx := c.Request().Context()

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	report, err := h.pipeline.Run(ctx, req.Records)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Linkage run failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "linkage run failed")
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":       report.RunID,
		"record_count": len(req.Records),
	}).Info("Completed linkage run")

	return c.JSON(http.StatusOK, report)
}

// AccountPass executes only the account pass over the submitted batch
func (h *Handler) AccountPass(c echo.Context) error {
	ctx := c.Request().Context()

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	report, err := h.pipeline.AccountPass(ctx, req.Records)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Account pass failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "account pass failed")
	}

	return c.JSON(http.StatusOK, report)
}
