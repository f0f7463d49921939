package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	"landledger/pkg/requestcontext"
)

// DegradedNotice is returned when the text provider cannot be reached. The
// advisory surface is best-effort: it degrades, it never blocks a caller.
const DegradedNotice = "Fraud advisory is temporarily unavailable. Review the transaction history manually before acting on this property."

// HistorySource provides the per-property transaction trail the advisory is
// written against.
type HistorySource interface {
	GetProperty(ctx context.Context, id domain.PropertyID) (*models.Property, error)
	PropertyHistory(ctx context.Context, id domain.PropertyID) ([]models.TransactionRecord, error)
}

// Unconfigured stands in when no provider endpoint is set. Every advisory
// degrades to the stock notice.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, string) (string, error) {
	return "", errProviderUnconfigured
}

var errProviderUnconfigured = errors.New("advisory provider not configured")

// Service turns a property's transfer trail into a plain-language fraud
// advisory via an external text completion provider.
type Service struct {
	registry  HistorySource
	completer TextCompleter
	logger    *slog.Logger
}

func NewService(registry HistorySource, completer TextCompleter, logger *slog.Logger) *Service {
	return &Service{registry: registry, completer: completer, logger: logger}
}

// Advisory is the analysis output for one property.
type Advisory struct {
	PropertyID domain.PropertyID
	Transfers  int
	Narrative  string
	Degraded   bool
}

// Analyze produces a fraud advisory for the property. Registry errors (not
// found, persistence failure) propagate; provider errors degrade to a stock
// notice instead.
func (s *Service) Analyze(ctx context.Context, id domain.PropertyID) (*Advisory, error) {
	property, err := s.registry.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.registry.PropertyHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Advisory{PropertyID: id, Transfers: len(history)}

	narrative, err := s.completer.Complete(ctx, buildPrompt(property, history))
	if err != nil {
		s.logger.WarnContext(ctx, "advisory provider unavailable, degrading",
			"property_id", id,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		out.Narrative = DegradedNotice
		out.Degraded = true
		return out, nil
	}

	out.Narrative = narrative
	return out, nil
}

func buildPrompt(p *models.Property, history []models.TransactionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a land registry fraud analyst. Assess the ownership history of property %d (%s, %s) for signs of fraudulent activity such as rapid back-and-forth transfers, circular ownership, or transfers shortly after verification.\n\n",
		p.ID, p.PropertyNumber, p.Location)
	fmt.Fprintf(&b, "Current owner: %s. Verified: %t.\n\n", p.Owner.Checksum(), p.IsVerified)

	if len(history) == 0 {
		b.WriteString("No ownership transfers are on record.\n")
	} else {
		b.WriteString("Ownership transfers, oldest first:\n")
		for _, rec := range history {
			fmt.Fprintf(&b, "- ref %s: %s -> %s at %s\n",
				rec.TxRef, rec.Sender.Checksum(), rec.Receiver.Checksum(),
				rec.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		}
	}

	b.WriteString("\nRespond with a short plain-text assessment and a risk level of LOW, MEDIUM or HIGH.")
	return b.String()
}
