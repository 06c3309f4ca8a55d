package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	"github.com/noah-isme/erp-timetable-api/internal/middleware"
	"github.com/noah-isme/erp-timetable-api/internal/service"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
	"github.com/noah-isme/erp-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error)
	GenerateAll(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationResult, error)
	Preview(ctx context.Context, configID string) (*dto.TimetablePreview, error)
	Entries(ctx context.Context, timetableID string) (*dto.TimetableEntries, error)
}

type generationJobs interface {
	Submit(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationJob, error)
	Get(id string) (*dto.GenerationJob, error)
}

type timetableExporter interface {
	Export(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportResult, error)
	Download(token string) (*service.ExportDownload, error)
}

// TimetableHandler exposes timetable generation, preview and export endpoints.
type TimetableHandler struct {
	timetables timetableGenerator
	jobs       generationJobs
	exports    timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables timetableGenerator, jobs generationJobs, exports timetableExporter) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, jobs: jobs, exports: exports}
}

// Generate godoc
// @Summary Generate timetables for every batch of one config
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	req.RequestedBy = requesterID(c)
	result, err := h.timetables.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "seed", result.Seed)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// GenerateAll godoc
// @Summary Generate timetables for several configs sharing faculty and labs
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAllRequest true "Generate all payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate-all [post]
func (h *TimetableHandler) GenerateAll(c *gin.Context) {
	req, ok := bindGenerateAll(c)
	if !ok {
		return
	}
	result, err := h.timetables.GenerateAll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "seed", result.Seed)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// SubmitJob godoc
// @Summary Queue a generate-all run
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAllRequest true "Generate all payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/generate-all/jobs [post]
func (h *TimetableHandler) SubmitJob(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation jobs not configured"))
		return
	}
	req, ok := bindGenerateAll(c)
	if !ok {
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// JobStatus godoc
// @Summary Get the status of a queued generate-all run
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate-all/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation jobs not configured"))
		return
	}
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Preview godoc
// @Summary Preview slot capacity of a timetable config
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable config ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-configs/{id}/preview [get]
func (h *TimetableHandler) Preview(c *gin.Context) {
	preview, err := h.timetables.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview)
}

// Entries godoc
// @Summary List the entries of a generated timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/entries [get]
func (h *TimetableHandler) Entries(c *gin.Context) {
	entries, err := h.timetables.Entries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Export godoc
// @Summary Render a timetable as CSV or PDF
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/exports [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "timetable exports not configured"))
		return
	}
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	req.TimetableID = c.Param("id")
	result, err := h.exports.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered timetable via signed token
// @Tags Timetables
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /timetable-exports/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "timetable exports not configured"))
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.exports.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

func bindGenerateAll(c *gin.Context) (dto.GenerateAllRequest, bool) {
	var req dto.GenerateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate-all payload"))
		return req, false
	}
	req.RequestedBy = requesterID(c)
	return req, true
}

func requesterID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
