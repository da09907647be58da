package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	seqapp "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/audit"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/store"
)

// KeyProvider supplies history signing keys.
type KeyProvider interface {
	Enabled() bool
	GetKey(ctx context.Context, keyID string) ([]byte, error)
	SigningKey(ctx context.Context) (keyID string, key []byte, err error)
}

// Service writes and reads the request history trail.
type Service struct {
	repo   request.Repository
	seq    *seqapp.Service
	keys   KeyProvider
	logger zerolog.Logger
}

// NewService creates a new audit service. keys may be nil, in which case rows
// are stored unsigned.
func NewService(repo request.Repository, seq *seqapp.Service, keys KeyProvider, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		seq:    seq,
		keys:   keys,
		logger: logger.With().Str("service", "audit").Logger(),
	}
}

// Append records entry inside tx. The row takes the next requestHistories
// number, so it shares the fate of the transition it describes.
func (s *Service) Append(ctx context.Context, tx store.Tx, entry request.Entry) (*request.History, error) {
	h := request.NewHistory(entry)

	number, seq, err := s.seq.NextValue(ctx, tx, sequence.DomainRequestHistories)
	if err != nil {
		return nil, err
	}
	h.Number = number
	h.Seq = seq

	if s.keys != nil && s.keys.Enabled() {
		keyID, key, err := s.keys.SigningKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		h.SignatureKeyID = keyID
		sig, err := audit.SignHistory(h, key)
		if err != nil {
			return nil, fmt.Errorf("failed to sign history: %w", err)
		}
		h.Signature = sig
	}

	if err := tx.InsertHistory(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// History returns every row recorded for a request, oldest first.
func (s *Service) History(ctx context.Context, requestID uuid.UUID) ([]*request.History, error) {
	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if r == nil {
		return nil, errs.NotFound("request", requestID)
	}
	rows, err := s.repo.ListHistory(ctx, requestID)
	if err != nil {
		s.logger.Error().Err(err).Str("requestId", requestID.String()).Msg("failed to list history")
		return nil, errs.Unavailable(err)
	}
	return rows, nil
}

// VerifyResult reports a history row's signature check.
type VerifyResult struct {
	HistoryID uuid.UUID `json:"historyId"`
	Number    string    `json:"number"`
	KeyID     string    `json:"keyId,omitempty"`
	Verified  bool      `json:"verified"`
	Message   string    `json:"message"`
}

func (s *Service) Verify(ctx context.Context, historyID uuid.UUID) (*VerifyResult, error) {
	h, err := s.repo.GetHistory(ctx, historyID)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if h == nil {
		return nil, errs.NotFound("history", historyID)
	}

	result := &VerifyResult{HistoryID: h.HistoryID, Number: h.Number, KeyID: h.SignatureKeyID}
	if len(h.Signature) == 0 || h.SignatureKeyID == "" {
		result.Message = "History row is unsigned"
		return result, nil
	}
	if s.keys == nil {
		result.Message = "No signing keys configured"
		return result, nil
	}
	key, err := s.keys.GetKey(ctx, h.SignatureKeyID)
	if err != nil {
		result.Message = fmt.Sprintf("Signing key %s is not available", h.SignatureKeyID)
		return result, nil
	}
	ok, err := audit.VerifyHistorySignature(h, key)
	if err != nil {
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}
	result.Verified = ok
	if ok {
		result.Message = "History row integrity verified"
	} else {
		result.Message = "History row signature mismatch - possible tampering detected"
		s.logger.Warn().Str("historyId", historyID.String()).Str("number", h.Number).Msg("history signature verification failed")
	}
	return result, nil
}
