package advisory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

// Handler serves the fraud advisory endpoint. The advisory reads the full
// transfer trail and is restricted to the registrar admin.
type Handler struct {
	service *Service
	admin   domain.Address
	logger  *slog.Logger
}

func NewHandler(service *Service, admin domain.Address, logger *slog.Logger) *Handler {
	return &Handler{service: service, admin: admin, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/properties/{id}/advisory", h.handleAdvisory)
}

type advisoryResponse struct {
	PropertyID domain.PropertyID `json:"property_id"`
	Transfers  int               `json:"transfers"`
	Narrative  string            `json:"narrative"`
	Degraded   bool              `json:"degraded"`
}

func (h *Handler) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !requestcontext.Caller(ctx).Equal(h.admin) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "only the registrar may request advisories"))
		return
	}

	id, err := domain.ParsePropertyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	advisory, err := h.service.Analyze(ctx, id)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "advisory failed",
				"property_id", id,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, advisoryResponse{
		PropertyID: advisory.PropertyID,
		Transfers:  advisory.Transfers,
		Narrative:  advisory.Narrative,
		Degraded:   advisory.Degraded,
	})
}
