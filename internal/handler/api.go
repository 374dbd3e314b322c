package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"crisis-monitor/internal/dataset"
	"crisis-monitor/internal/models"
	"crisis-monitor/internal/report"
	"crisis-monitor/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ModelInfo exposes what the scorer chain is running on
type ModelInfo interface {
	GetModelInfo() map[string]interface{}
}

// Config for the handler
type Config struct {
	ReportFileName string
	MaxUploadBytes int64
	DefaultLogo    []byte // used when the upload carries no logo
}

// Handler handles HTTP requests
type Handler struct {
	pipeline *service.Pipeline
	model    ModelInfo
	cfg      Config
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(pipeline *service.Pipeline, model ModelInfo, cfg Config, logger *zap.Logger) *Handler {
	if cfg.ReportFileName == "" {
		cfg.ReportFileName = "crisis_report.pdf"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		pipeline: pipeline,
		model:    model,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/reports", h.GenerateReport)
		api.POST("/analyze", h.Analyze)
	}

	r.GET("/health", h.HealthCheck)
}

type upload struct {
	comments []models.Comment
	link     string
	logo     []byte
}

// readUpload parses the multipart form: file and column are required, link
// and logo are optional
func (h *Handler) readUpload(c *gin.Context) (*upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required: %w", err)
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	comments, err := dataset.LoadReader(file, header.Filename, c.PostForm("column"))
	if err != nil {
		return nil, err
	}

	u := &upload{
		comments: comments,
		link:     c.PostForm("link"),
	}

	if logoHeader, err := c.FormFile("logo"); err == nil {
		logoFile, err := logoHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open logo: %w", err)
		}
		defer logoFile.Close()

		if u.logo, err = io.ReadAll(logoFile); err != nil {
			return nil, fmt.Errorf("failed to read logo: %w", err)
		}
	}
	if len(u.logo) == 0 {
		u.logo = h.cfg.DefaultLogo
	}

	return u, nil
}

// GenerateReport runs the pipeline on an uploaded table and returns the PDF
func (h *Handler) GenerateReport(c *gin.Context) {
	u, err := h.readUpload(c)
	if err != nil {
		h.badUpload(c, err)
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), service.Request{
		Comments: u.comments,
		Link:     u.link,
		Logo:     u.logo,
	})
	if err != nil {
		h.logger.Error("Failed to generate report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		return
	}

	c.Header("X-Run-ID", result.RunID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.cfg.ReportFileName))
	c.Data(http.StatusOK, report.ContentType, result.PDF)
}

// Analyze runs classification only and returns the metrics as JSON
func (h *Handler) Analyze(c *gin.Context) {
	u, err := h.readUpload(c)
	if err != nil {
		h.badUpload(c, err)
		return
	}

	analysis := h.pipeline.Analyze(c.Request.Context(), u.comments)

	c.Header("X-Run-ID", analysis.RunID)
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) badUpload(c *gin.Context, err error) {
	status := http.StatusBadRequest
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}

	h.logger.Warn("Rejected upload", zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "crisis-monitor",
		"version": "1.0.0",
	}
	if h.model != nil {
		resp["model"] = h.model.GetModelInfo()
	}
	c.JSON(http.StatusOK, resp)
}
