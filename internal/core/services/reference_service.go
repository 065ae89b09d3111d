package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/accountly/bank_ledger_app/internal/utils"
)

const (
	referencePrefix      = "TRX"
	referenceSuffixLen   = 4
	referenceMaxAttempts = 5
)

// referenceService produces unique human-readable transaction references of
// the form TRX-<YYYYMMDDHHMMSS>-<4 random digits>.
type referenceService struct {
	txnReader portsrepo.TransactionReader
}

// NewReferenceService creates a new ReferenceService.
func NewReferenceService(txnReader portsrepo.TransactionReader) portssvc.ReferenceSvcFacade {
	return &referenceService{txnReader: txnReader}
}

var _ portssvc.ReferenceSvcFacade = (*referenceService)(nil)

// Generate builds a candidate reference and verifies it against the store,
// retrying with a fresh random suffix on collision. The uniqueness check is a
// point lookup and never runs inside a balance-mutating critical section; the
// unique constraint on the reference column remains the final arbiter.
func (s *referenceService) Generate(ctx context.Context) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	for attempt := 1; attempt <= referenceMaxAttempts; attempt++ {
		suffix, err := utils.GenerateSecureDigits(referenceSuffixLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate reference suffix: %w", err)
		}
		candidate := fmt.Sprintf("%s-%s-%s", referencePrefix, time.Now().UTC().Format("20060102150405"), suffix)

		exists, err := s.txnReader.ReferenceExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		logger.Warn("Reference collision, retrying", slog.String("reference", candidate), slog.Int("attempt", attempt))
	}

	return "", fmt.Errorf("failed to generate a unique reference after %d attempts", referenceMaxAttempts)
}
