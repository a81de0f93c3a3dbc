package quoting

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/resort-quote/internal/common"
)

// Handler exposes the quote endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the quote endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/calculate", h.Calculate)
	r.Post("/rates/lock", h.LockRates)
}

// Calculate handles POST /api/v1/quotes/calculate. A fatal pricing failure still renders the zero-filled
// result next to the error so clients can show the audit trail.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quoting service not configured", nil)
		return
	}
	var payload CalculateQuoteRequest
	if err := decodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.Calculate(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if cerr := result.Err(); cerr != nil {
		common.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"data": result.Value(),
			"error": common.ErrorBody{
				Code:    string(cerr.Code),
				Message: cerr.Message,
				Details: map[string]any{
					"resolution": cerr.Resolution,
					"legIndex":   cerr.LegIndex,
					"details":    cerr.Details,
				},
			},
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result.Value()})
}

// LockRates handles POST /api/v1/quotes/rates/lock.
func (h *Handler) LockRates(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quoting service not configured", nil)
		return
	}
	var payload LockRatesRequest
	if err := decodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.LockRates(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.BadRequest("invalid payload", err)
	}
	return nil
}
