package docstore

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landledger/internal/audit"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/httputil"
	"landledger/pkg/requestcontext"
)

// maxDocumentSize caps a single deed upload at 25 MiB.
const maxDocumentSize = 25 << 20

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler accepts deed document uploads and returns the pinned reference the
// caller then attaches to a property registration.
type Handler struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
}

func NewHandler(store Store, auditor AuditPublisher, logger *slog.Logger) *Handler {
	return &Handler{store: store, auditor: auditor, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.handleUpload)
}

type uploadResponse struct {
	Ref  string `json:"ref"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected a multipart upload with a file field"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file field is required"))
		return
	}
	defer file.Close()

	pinned, err := h.store.Put(ctx, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "document pin failed",
			"filename", header.Filename,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable"))
		return
	}

	if h.auditor != nil {
		h.auditor.Emit(ctx, audit.Event{
			Action: audit.ActionDocumentPinned,
			Actor:  caller,
			Reason: pinned.Ref,
		})
	}
	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{
		Ref:  pinned.Ref,
		Size: pinned.Size,
		URL:  pinned.URL,
	})
}
