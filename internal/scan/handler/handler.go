package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mrzgate/internal/scan"
	"mrzgate/internal/scan/metrics"
	dErrors "mrzgate/pkg/domain-errors"
	"mrzgate/pkg/platform/httputil"
	"mrzgate/pkg/requestcontext"
)

// DefaultMaxUploadBytes caps request bodies at 15 MiB.
const DefaultMaxUploadBytes int64 = 15 << 20

// imageField is the multipart form field carrying the upload.
const imageField = "image"

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for scan operations.
type Service interface {
	Scan(ctx context.Context, data []byte) (*scan.Result, error)
}

// Handler wires the scan endpoints to the scan service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

// New constructs a scan handler. A non-positive maxUploadBytes selects
// DefaultMaxUploadBytes.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		logger:         logger,
		metrics:        metrics,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the scan endpoints on the router. The protect middlewares
// apply to the extraction endpoint only.
func (h *Handler) Register(r chi.Router, protect ...func(http.Handler) http.Handler) {
	r.Get("/health", h.HandleHealth)
	r.With(protect...).Post("/extract-mrz", h.HandleExtract)
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleExtract handles POST /extract-mrz requests. The image arrives as a
// multipart "image" file, a raw image body, or a JSON {"base64": ...} body.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := requestcontext.Now(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	data, ok := h.readImage(w, r, requestID)
	if !ok {
		return
	}

	result, err := h.service.Scan(ctx, data)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "scan failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "mrz extracted",
		"request_id", requestID,
		"subject", requestcontext.Subject(ctx),
		"engine", result.Engine,
		"parsed", result.Record() != nil,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

func (h *Handler) readImage(w http.ResponseWriter, r *http.Request, requestID string) ([]byte, bool) {
	ctx := r.Context()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		data, err := readMultipart(r)
		if err != nil {
			h.logger.WarnContext(ctx, "failed to read upload", "request_id", requestID, "error", err)
			h.metrics.IncrementOutcome(scan.OutcomeBadInput)
			httputil.WriteError(w, err)
			return nil, false
		}
		return data, true

	case strings.HasPrefix(mediaType, "image/"), mediaType == "application/octet-stream":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			err = uploadError(err)
			h.logger.WarnContext(ctx, "failed to read upload", "request_id", requestID, "error", err)
			h.metrics.IncrementOutcome(scan.OutcomeBadInput)
			httputil.WriteError(w, err)
			return nil, false
		}
		return data, true

	default:
		req, ok := httputil.DecodeAndPrepare[ExtractRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			h.metrics.IncrementOutcome(scan.OutcomeBadInput)
			return nil, false
		}
		return req.Data(), true
	}
}

func readMultipart(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "no image provided")
		}
		return nil, uploadError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}
	return data, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodeTooLarge, "image too large")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid upload")
}
