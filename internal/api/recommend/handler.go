// Package recommend exposes the synchronous analysis endpoints.
package recommend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/internal/services/recommendation"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req advisory.Request) (*suitability.Result, error)
}

// EngineStatus reports the recommendation engine status
type EngineStatus interface {
	Status() recommendation.Status
}

// ClimaticConditions is the /recommend request body
type ClimaticConditions struct {
	PlantID   *int64  `json:"plant_id"`
	PlantName *string `json:"plant_name"`
	UserEmail *string `json:"user_email"`
	suitability.Conditions
}

// Validate checks plant metadata and the measurements
func (c *ClimaticConditions) Validate() error {
	switch {
	case c.PlantID == nil:
		return errors.NewValidationError("plant_id", "field required", nil)
	case c.PlantName == nil:
		return errors.NewValidationError("plant_name", "field required", nil)
	case c.UserEmail == nil:
		return errors.NewValidationError("user_email", "field required", nil)
	}
	return c.Conditions.Validate()
}

// Plant returns the notification metadata
func (c *ClimaticConditions) Plant() *suitability.PlantMeta {
	return &suitability.PlantMeta{
		PlantID:   *c.PlantID,
		PlantName: *c.PlantName,
		UserEmail: *c.UserEmail,
	}
}

// Handler serves /recommend, /analyze and the service info root
type Handler struct {
	service      Analyzer
	engine       EngineStatus
	serviceName  string
	kafkaEnabled bool
	log          *logger.Logger
}

// NewHandler creates the recommendation HTTP handler
func NewHandler(service Analyzer, engine EngineStatus, serviceName string, kafkaEnabled bool, log *logger.Logger) *Handler {
	return &Handler{
		service:      service,
		engine:       engine,
		serviceName:  serviceName,
		kafkaEnabled: kafkaEnabled,
		log:          log.With("component", "recommend_handler"),
	}
}

// Register mounts the routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /recommend", h.HandleRecommend)
	mux.HandleFunc("POST /analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /{$}", h.HandleInfo)
}

// HandleRecommend analyzes validated climatic conditions and forwards the
// result to the notification server
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var body ClimaticConditions
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	if err := body.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Analyze(r.Context(), advisory.Request{
		Features: body.Features(),
		Source:   suitability.SourceHTTP,
		Plant:    body.Plant(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleAnalyze analyzes a raw feature map keyed by canonical labels
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	features := suitability.NewFeatures()
	if err := decodeBody(r, features); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Analyze(r.Context(), advisory.Request{
		Features: features,
		Source:   suitability.SourceHTTP,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// InfoResponse is the root endpoint body
type InfoResponse struct {
	Service string            `json:"service"`
	Modules map[string]string `json:"modules"`
}

// HandleInfo reports the service name and module states
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Service: h.serviceName,
		Modules: map[string]string{
			"recommendation": activity(h.engine.Status().State.Serving()),
			"kafka":          activity(h.kafkaEnabled),
		},
	})
}

func activity(on bool) string {
	if on {
		return "Active"
	}
	return "Inactive"
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var verr *errors.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
		resp.Error = verr.Message
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, errors.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, errors.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		h.log.Errorw("Analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "read body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return errors.NewValidationError(typeErr.Field, "must be a "+typeErr.Type.String(), typeErr.Value)
		case errors.Is(err, errors.ErrInvalidInput):
			return err
		}
		return errors.Wrapf(errors.ErrInvalidInput, "malformed JSON: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
