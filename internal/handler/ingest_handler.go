package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-wellbeing-api/internal/middleware"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
	"github.com/noah-isme/uni-wellbeing-api/pkg/response"
)

type ingestService interface {
	IngestCSV(ctx context.Context, kind models.IngestKind, r io.Reader) (*models.IngestReport, error)
}

// IngestHandler accepts CSV uploads of attendance, grades and surveys.
type IngestHandler struct {
	ingest   ingestService
	maxBytes int64
	logger   *zap.Logger
}

// NewIngestHandler constructs the ingest handler. maxBytes caps the request body.
func NewIngestHandler(ingest ingestService, maxBytes int64, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{ingest: ingest, maxBytes: maxBytes, logger: logger}
}

// Upload godoc
// @Summary Ingest a CSV batch
// @Description Validates every row independently and applies the accepted rows in one transaction
// @Tags Ingest
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "attendance, grades or survey"
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /ingest/{kind} [post]
func (h *IngestHandler) Upload(c *gin.Context) {
	kind := models.IngestKind(c.Param("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be one of attendance, grades, survey"))
		return
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field 'file' is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, "unable to open uploaded file"))
		return
	}
	defer file.Close()

	var username string
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		username = claims.Username
	}
	h.logger.Info("ingest upload received",
		zap.String("kind", string(kind)),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("user", username),
	)

	report, err := h.ingest.IngestCSV(c.Request.Context(), kind, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// isBodyTooLarge detects the MaxBytesReader limit, which multipart parsing does not always wrap.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
