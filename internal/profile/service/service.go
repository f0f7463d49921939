package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"landledger/internal/audit"
	"landledger/internal/profile/models"
	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store persists profiles. Upsert replaces any existing record for the same
// wallet address.
type Store interface {
	Upsert(ctx context.Context, p models.Profile) (*models.Profile, error)
	FindByWallet(ctx context.Context, wallet domain.Address) (*models.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    Store
	auditor  AuditPublisher
	logger   *slog.Logger
	validate *validator.Validate
}

type Option func(*Service)

func WithAudit(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates or replaces the caller's profile. Resubmission is the
// supported way to correct a mistake; the latest record wins.
func (s *Service) Submit(ctx context.Context, caller domain.Address, sub models.Submission) (*models.Profile, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	sub.FullName = strings.TrimSpace(sub.FullName)
	sub.Residence = strings.TrimSpace(sub.Residence)
	sub.NationalID = strings.TrimSpace(sub.NationalID)
	sub.Phone = strings.TrimSpace(sub.Phone)

	if err := s.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, invalidFieldMessage(verrs[0]))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid profile submission")
	}

	now := requestcontext.Now(ctx)
	stored, err := s.store.Upsert(ctx, models.Profile{
		Wallet:     caller,
		FullName:   sub.FullName,
		NationalID: sub.NationalID,
		Phone:      sub.Phone,
		Residence:  sub.Residence,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store profile")
	}

	if s.auditor != nil {
		event := audit.Event{
			Action:    audit.ActionProfileSubmitted,
			Actor:     caller,
			Timestamp: now,
			RequestID: requestcontext.RequestID(ctx),
		}
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "audit emit failed",
				"action", event.Action,
				"error", err,
				"request_id", event.RequestID,
			)
		}
	}
	return stored, nil
}

// Get returns the profile for a wallet address.
func (s *Service) Get(ctx context.Context, wallet domain.Address) (*models.Profile, error) {
	p, err := s.store.FindByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	return p, nil
}

// Has reports whether a wallet has a profile on record. It backs the
// transfer-time KYC policy gate.
func (s *Service) Has(ctx context.Context, wallet domain.Address) (bool, error) {
	_, err := s.store.FindByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check profile")
	}
	return true, nil
}

func invalidFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "NationalID":
		return "national_id must be exactly 12 digits"
	case "Phone":
		return "phone must be exactly 10 digits"
	case "FullName":
		return "full_name is required"
	case "Residence":
		return "residence is required"
	default:
		return "invalid profile submission"
	}
}
