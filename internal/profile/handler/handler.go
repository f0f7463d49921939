package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"landledger/internal/profile/models"
	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

type Service interface {
	Submit(ctx context.Context, caller domain.Address, sub models.Submission) (*models.Profile, error)
	Get(ctx context.Context, wallet domain.Address) (*models.Profile, error)
}

// Handler serves the KYC profile endpoints. Profiles carry personal data, so
// reads are limited to the profile owner and the registrar admin.
type Handler struct {
	profiles Service
	admin    domain.Address
	logger   *slog.Logger
}

func New(profiles Service, admin domain.Address, logger *slog.Logger) *Handler {
	return &Handler{profiles: profiles, admin: admin, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Put("/profiles", h.handleSubmit)
	r.Get("/profiles/{address}", h.handleGet)
}

type profileResponse struct {
	Wallet     string    `json:"wallet"`
	FullName   string    `json:"full_name"`
	NationalID string    `json:"national_id"`
	Phone      string    `json:"phone"`
	Residence  string    `json:"residence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.profiles.Submit(ctx, caller, sub)
	if err != nil {
		h.writeError(w, r, "submit profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.Caller(ctx)
	if !caller.Equal(wallet) && !caller.Equal(h.admin) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "profiles are visible to their owner and the registrar only"))
		return
	}

	p, err := h.profiles.Get(ctx, wallet)
	if err != nil {
		h.writeError(w, r, "get profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "profile operation failed",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func toProfileResponse(p *models.Profile) profileResponse {
	return profileResponse{
		Wallet:     p.Wallet.Checksum(),
		FullName:   p.FullName,
		NationalID: p.NationalID,
		Phone:      p.Phone,
		Residence:  p.Residence,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
