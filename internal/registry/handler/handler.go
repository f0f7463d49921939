package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

// Service is the registry operation surface the handler delegates to.
type Service interface {
	RegisterProperty(ctx context.Context, caller domain.Address, propertyNumber, location, documentRef string) (*models.Property, error)
	VerifyProperty(ctx context.Context, caller domain.Address, id domain.PropertyID) (*models.Property, error)
	TransferOwnership(ctx context.Context, caller domain.Address, id domain.PropertyID, newOwner domain.Address) (*models.TransactionRecord, error)
	GetProperty(ctx context.Context, id domain.PropertyID) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)
	ListPropertiesByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error)
	TransactionHistory(ctx context.Context) ([]models.TransactionRecord, error)
	PropertyHistory(ctx context.Context, id domain.PropertyID) ([]models.TransactionRecord, error)
	AddressHistory(ctx context.Context, addr domain.Address) ([]models.TransactionRecord, error)
}

// ProfileChecker reports whether an address has completed KYC. Transfer
// gating on it is deployment policy, configured at wiring time; the ledger
// itself never consults it.
type ProfileChecker interface {
	Has(ctx context.Context, addr domain.Address) (bool, error)
}

// Handler wires the registry routes. All mutating routes assume the identity
// middleware already placed the caller address in the request context.
type Handler struct {
	registry   Service
	profiles   ProfileChecker // nil disables the KYC transfer gate
	logger     *slog.Logger
	requireKYC bool
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// WithKYCGate enables the transfer-time KYC policy check.
func (h *Handler) WithKYCGate(profiles ProfileChecker) *Handler {
	h.profiles = profiles
	h.requireKYC = true
	return h
}

// Register mounts all registry routes on a single router. Deployments that
// keep reads open while requiring identity on writes mount RegisterReads and
// RegisterWrites on separate groups instead.
func (h *Handler) Register(r chi.Router) {
	h.RegisterReads(r)
	h.RegisterWrites(r)
}

// RegisterReads mounts the read-only routes. Anyone may browse the registry;
// none of these consult the caller identity.
func (h *Handler) RegisterReads(r chi.Router) {
	r.Get("/properties", h.handleList)
	r.Get("/properties/{id}", h.handleGet)
	r.Get("/properties/{id}/history", h.handlePropertyHistory)
	r.Get("/transactions", h.handleTransactions)
	r.Get("/owners/{address}/properties", h.handleOwnerProperties)
	r.Get("/owners/{address}/history", h.handleOwnerHistory)
}

// RegisterWrites mounts the mutating routes. These assume the identity
// middleware already placed the caller address in the request context.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/properties", h.handleRegister)
	r.Post("/properties/{id}/verify", h.handleVerify)
	r.Post("/properties/{id}/transfer", h.handleTransfer)
}

type registerRequest struct {
	PropertyNumber string `json:"property_number"`
	Location       string `json:"location"`
	DocumentRef    string `json:"document_ref"`
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

type propertyResponse struct {
	ID             domain.PropertyID `json:"id"`
	PropertyNumber string            `json:"property_number"`
	Owner          string            `json:"owner"`
	Location       string            `json:"location"`
	DocumentRef    string            `json:"document_ref"`
	IsVerified     bool              `json:"is_verified"`
	RegisteredAt   time.Time         `json:"registered_at"`
}

type transactionResponse struct {
	Position   int64             `json:"position"`
	PropertyID domain.PropertyID `json:"property_id"`
	Sender     string            `json:"sender"`
	Receiver   string            `json:"receiver"`
	TxRef      string            `json:"tx_ref"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.registry.RegisterProperty(ctx, caller, req.PropertyNumber, req.Location, req.DocumentRef)
	if err != nil {
		h.writeServiceError(w, r, "register property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPropertyResponse(p))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePropertyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.registry.VerifyProperty(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		h.writeServiceError(w, r, "verify property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPropertyResponse(p))
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	id, err := domain.ParsePropertyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newOwner, err := domain.ParseAddress(req.NewOwner)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidTarget, "new owner is not a valid address"))
		return
	}

	if h.requireKYC {
		ok, err := h.profiles.Has(ctx, caller)
		if err != nil {
			h.writeServiceError(w, r, "kyc lookup", err)
			return
		}
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "complete KYC registration before transferring"))
			return
		}
	}

	record, err := h.registry.TransferOwnership(ctx, caller, id, newOwner)
	if err != nil {
		h.writeServiceError(w, r, "transfer ownership", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransactionResponse(*record))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePropertyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.registry.GetProperty(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPropertyResponse(p))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	properties, err := h.registry.ListProperties(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list properties", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPropertyResponses(properties))
}

func (h *Handler) handleOwnerProperties(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	properties, err := h.registry.ListPropertiesByOwner(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, "list owner properties", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPropertyResponses(properties))
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	log, err := h.registry.TransactionHistory(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "transaction history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransactionResponses(log))
}

func (h *Handler) handlePropertyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePropertyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	log, err := h.registry.PropertyHistory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "property history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransactionResponses(log))
}

func (h *Handler) handleOwnerHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	log, err := h.registry.AddressHistory(r.Context(), addr)
	if err != nil {
		h.writeServiceError(w, r, "owner history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransactionResponses(log))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, "registry operation failed",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, "registry operation rejected",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func toPropertyResponse(p *models.Property) propertyResponse {
	return propertyResponse{
		ID:             p.ID,
		PropertyNumber: p.PropertyNumber,
		Owner:          p.Owner.Checksum(),
		Location:       p.Location,
		DocumentRef:    p.DocumentRef,
		IsVerified:     p.IsVerified,
		RegisteredAt:   p.RegisteredAt,
	}
}

func toPropertyResponses(in []*models.Property) []propertyResponse {
	out := make([]propertyResponse, 0, len(in))
	for _, p := range in {
		out = append(out, toPropertyResponse(p))
	}
	return out
}

func toTransactionResponse(rec models.TransactionRecord) transactionResponse {
	return transactionResponse{
		Position:   rec.Position,
		PropertyID: rec.PropertyID,
		Sender:     rec.Sender.Checksum(),
		Receiver:   rec.Receiver.Checksum(),
		TxRef:      rec.TxRef.String(),
		CreatedAt:  rec.CreatedAt,
	}
}

func toTransactionResponses(in []models.TransactionRecord) []transactionResponse {
	out := make([]transactionResponse, 0, len(in))
	for _, rec := range in {
		out = append(out, toTransactionResponse(rec))
	}
	return out
}
