// Package service enforces the ledger's invariants and authorization rules.
// It is the only component permitted to mutate the ledger store; handlers
// and background jobs go through it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"landledger/internal/audit"
	"landledger/internal/history"
	"landledger/internal/registry/metrics"
	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

// LedgerStore is the durable property/ownership state plus the append-only
// transfer log. Implementations must make ExecuteTransfer atomic: the owner
// change and the log append commit together or not at all.
type LedgerStore interface {
	Register(ctx context.Context, reg models.Registration, owner domain.Address, at time.Time) (*models.Property, error)
	FindByID(ctx context.Context, id domain.PropertyID) (*models.Property, error)
	List(ctx context.Context) ([]*models.Property, error)
	ListByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error)
	Execute(ctx context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error)
	ExecuteTransfer(ctx context.Context, id domain.PropertyID, newOwner domain.Address, txRef domain.TxRef, at time.Time, validate func(*models.Property) error) (*models.Property, *models.TransactionRecord, error)
	Log(ctx context.Context) ([]models.TransactionRecord, error)
	LogFrom(ctx context.Context, position int64) ([]models.TransactionRecord, error)
	RecordsAt(ctx context.Context, positions []int64) ([]models.TransactionRecord, error)
}

// AuditPublisher records off-ledger audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates registry operations over the ledger store and keeps
// the derived history index current.
type Service struct {
	admin   domain.Address
	ledger  LedgerStore
	index   history.Index
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithAudit(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the registry service. admin is the distinguished verifier
// address, injected from configuration rather than compiled in.
func New(admin domain.Address, ledger LedgerStore, index history.Index, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		admin:  admin,
		ledger: ledger,
		index:  index,
		logger: logger,
		tracer: otel.Tracer("landledger/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterProperty creates a new property owned by the caller. Any identity
// may register; registration does not touch the transfer log.
func (s *Service) RegisterProperty(ctx context.Context, caller domain.Address, propertyNumber, location, documentRef string) (*models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterProperty")
	defer span.End()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	reg, err := models.NewRegistration(propertyNumber, location, documentRef)
	if err != nil {
		return nil, err
	}

	p, err := s.ledger.Register(ctx, reg, caller, requestcontext.Now(ctx))
	if err != nil {
		return nil, translateStoreErr(err, "failed to register property")
	}

	if s.metrics != nil {
		s.metrics.PropertiesRegistered.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionPropertyRegistered,
		Actor:      caller,
		PropertyID: p.ID,
	})
	return p, nil
}

// VerifyProperty marks a property transferable. Only the configured admin
// address may call it; verification is idempotent.
func (s *Service) VerifyProperty(ctx context.Context, caller domain.Address, id domain.PropertyID) (*models.Property, error) {
	ctx, span := s.tracer.Start(ctx, "registry.VerifyProperty")
	defer span.End()

	if !caller.Equal(s.admin) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the admin may verify properties")
	}

	p, err := s.ledger.Execute(ctx, id,
		func(*models.Property) error { return nil },
		func(p *models.Property) { p.ApplyVerification() },
	)
	if err != nil {
		return nil, translateStoreErr(err, "failed to verify property")
	}

	if s.metrics != nil {
		s.metrics.PropertiesVerified.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionPropertyVerified,
		Actor:      caller,
		PropertyID: p.ID,
	})
	return p, nil
}

// TransferOwnership reassigns a verified property from its current owner to
// newOwner and appends the audit record to the transfer log, atomically. The
// store re-validates inside its critical section, so a caller that loses a
// race observes unauthorized (the owner changed under it) rather than a
// double transfer.
func (s *Service) TransferOwnership(ctx context.Context, caller domain.Address, id domain.PropertyID, newOwner domain.Address) (*models.TransactionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registry.TransferOwnership")
	defer span.End()

	txRef := domain.NewTxRef()
	_, record, err := s.ledger.ExecuteTransfer(ctx, id, newOwner, txRef, requestcontext.Now(ctx),
		func(p *models.Property) error { return p.CanTransfer(caller, newOwner) },
	)
	if err != nil {
		err = translateStoreErr(err, "failed to transfer ownership")
		s.noteTransferRejected(ctx, caller, newOwner, id, err)
		return nil, err
	}

	s.syncIndex(ctx, *record)

	if s.metrics != nil {
		s.metrics.TransfersCommitted.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionOwnershipTransferred,
		Actor:      caller,
		Subject:    newOwner,
		PropertyID: id,
		TxRef:      record.TxRef.String(),
	})
	return record, nil
}

// GetProperty returns the property or not_found. Absence is explicit: a
// missing record is an error outcome, never a zero-valued Property.
func (s *Service) GetProperty(ctx context.Context, id domain.PropertyID) (*models.Property, error) {
	p, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load property")
	}
	return p, nil
}

// ListProperties returns all properties in creation order.
func (s *Service) ListProperties(ctx context.Context) ([]*models.Property, error) {
	out, err := s.ledger.List(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list properties")
	}
	return out, nil
}

// ListPropertiesByOwner filters by current owner, creation order preserved.
func (s *Service) ListPropertiesByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error) {
	out, err := s.ledger.ListByOwner(ctx, owner)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list properties")
	}
	return out, nil
}

// TransactionHistory returns the full transfer log in append order.
func (s *Service) TransactionHistory(ctx context.Context) ([]models.TransactionRecord, error) {
	log, err := s.ledger.Log(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load transaction history")
	}
	return log, nil
}

// PropertyHistory returns the transfers of one property in commit order. A
// property with no transfers yields an empty history, not an error; the
// property must exist.
func (s *Service) PropertyHistory(ctx context.Context, id domain.PropertyID) ([]models.TransactionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registry.PropertyHistory")
	defer span.End()

	if _, err := s.ledger.FindByID(ctx, id); err != nil {
		return nil, translateStoreErr(err, "failed to load property")
	}
	if err := s.catchUpIndex(ctx); err != nil {
		return nil, err
	}
	positions, err := s.index.ByProperty(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read history index")
	}
	return s.resolve(ctx, positions)
}

// AddressHistory returns every transfer an address participated in, as
// sender or receiver, in commit order.
func (s *Service) AddressHistory(ctx context.Context, addr domain.Address) ([]models.TransactionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "registry.AddressHistory")
	defer span.End()

	if err := s.catchUpIndex(ctx); err != nil {
		return nil, err
	}
	positions, err := s.index.ByAddress(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read history index")
	}
	return s.resolve(ctx, positions)
}

// RebuildIndex replays the full log into an empty index. Run at startup and
// whenever the index backend is replaced.
func (s *Service) RebuildIndex(ctx context.Context) error {
	log, err := s.ledger.Log(ctx)
	if err != nil {
		return translateStoreErr(err, "failed to load log for index rebuild")
	}
	if err := s.index.Rebuild(ctx, log); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebuild history index")
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, positions []int64) ([]models.TransactionRecord, error) {
	if len(positions) == 0 {
		return []models.TransactionRecord{}, nil
	}
	records, err := s.ledger.RecordsAt(ctx, positions)
	if err != nil {
		return nil, translateStoreErr(err, "failed to resolve history records")
	}
	return records, nil
}

// syncIndex applies one freshly committed record, falling back to a log
// catch-up when the index is behind. Index failures are logged, never
// surfaced: the index is derived state and the transfer already committed.
func (s *Service) syncIndex(ctx context.Context, rec models.TransactionRecord) {
	applied, err := s.index.Apply(ctx, rec)
	if err == nil && !applied {
		err = s.catchUpIndex(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "history index update failed",
			"position", rec.Position,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) catchUpIndex(ctx context.Context) error {
	next, err := s.index.NextPosition(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read index watermark")
	}
	missing, err := s.ledger.LogFrom(ctx, next)
	if err != nil {
		return translateStoreErr(err, "failed to read log tail")
	}
	for _, rec := range missing {
		if _, err := s.index.Apply(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply log record to index")
		}
	}
	return nil
}

func (s *Service) noteTransferRejected(ctx context.Context, caller, newOwner domain.Address, id domain.PropertyID, err error) {
	code := dErrors.CodeOf(err)
	if s.metrics != nil {
		s.metrics.IncTransferRejected(string(code))
	}
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionTransferDenied,
		Actor:      caller,
		Subject:    newOwner,
		PropertyID: id,
		Reason:     string(code),
	})
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// translateStoreErr maps store sentinels onto the caller-facing taxonomy.
// Already-coded errors (precondition failures from validate callbacks) pass
// through untouched.
func translateStoreErr(err error, internalMsg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "property does not exist")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "lost a concurrent update race, retry")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
	}
}
