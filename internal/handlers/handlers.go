package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Brownie44l1/cancer-api/internal/metrics"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

const (
	msgPredicted      = "Model is predicted successfully"
	msgPredictFailed  = "Terjadi kesalahan dalam melakukan prediksi"
	msgPayloadTooBig  = "Payload content length greater than maximum allowed: %d"
	msgHistoriesError = "Failed to fetch histories!"
)

type Handler struct {
	service        *prediction.Service
	model          *model.Handle
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(service *prediction.Service, modelHandle *model.Handle, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:        service,
		model:          modelHandle,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("module", "http"),
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type predictData struct {
	ID         string            `json:"id"`
	Result     prediction.Result `json:"result"`
	Suggestion string            `json:"suggestion"`
	CreatedAt  string            `json:"createdAt"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.model.State()
	body := map[string]string{"status": "healthy", "model": state.String()}
	status := http.StatusOK
	if state != model.StateReady {
		body["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// Predict accepts a multipart upload in the "image" field. Only the upload
// ceiling gets its own status; every other failure is reported as 400 with
// the same message.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	upload, err := readImage(r, h.maxUploadBytes)
	if err != nil {
		metrics.PipelineFailures.WithLabelValues(prediction.Kind(err)).Inc()
		h.logger.WarnContext(r.Context(), "upload rejected",
			"operation", "predict",
			"outcome", "failure",
			"error_kind", prediction.Kind(err),
			"error", err.Error(),
		)
		h.writePredictError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "received file", "filename", upload.Filename, "bytes", len(upload.Data), "content_type", upload.ContentType)

	rec, err := h.service.Predict(r.Context(), upload)
	if err != nil {
		h.writePredictError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Status:  "success",
		Message: msgPredicted,
		Data: predictData{
			ID:         rec.ID,
			Result:     rec.Result,
			Suggestion: rec.Suggestion,
			CreatedAt:  rec.CreatedAt,
		},
	})
}

func (h *Handler) writePredictError(w http.ResponseWriter, err error) {
	if errors.Is(err, prediction.ErrPayloadTooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope{
			Status:  "fail",
			Message: fmt.Sprintf(msgPayloadTooBig, h.maxUploadBytes),
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, envelope{Status: "fail", Message: msgPredictFailed})
}

func (h *Handler) Histories(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Histories(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "fail", Message: msgHistoriesError})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: records})
}
