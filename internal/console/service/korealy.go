package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

// ReconRepository описывает требования сервиса к хранилищу сверки
type ReconRepository interface {
	ListReconRecords(ctx context.Context, status domain.ReconStatus, unresolvedOnly bool) ([]*domain.ReconRecord, error)
	GetReconSummary(ctx context.Context) (*domain.ReconSummary, error)
	ResolveRecord(ctx context.Context, id, userID, note string) error
}

type KorealyService struct {
	repo   ReconRepository
	trail  audit.Recorder
	logger *zap.Logger
}

func NewKorealyService(repo ReconRepository, trail audit.Recorder, logger *zap.Logger) *KorealyService {
	return &KorealyService{
		repo:   repo,
		trail:  trail,
		logger: logger.Named("korealy-service"),
	}
}

func (s *KorealyService) Records(ctx context.Context, status string, unresolvedOnly bool) ([]*domain.ReconRecord, error) {
	records, err := s.repo.ListReconRecords(ctx, domain.ReconStatus(strings.ToUpper(status)), unresolvedOnly)
	if err != nil {
		s.logger.Error("failed to list recon records", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch recon records: %w", err)
	}
	if records == nil {
		return []*domain.ReconRecord{}, nil
	}
	return records, nil
}

func (s *KorealyService) Summary(ctx context.Context) (*domain.ReconSummary, error) {
	return s.repo.GetReconSummary(ctx)
}

// Resolve закрывает запись сверки; повторное закрытие отклоняется на уровне БД
func (s *KorealyService) Resolve(ctx context.Context, id, userID, note string) error {
	if err := s.repo.ResolveRecord(ctx, id, userID, note); err != nil {
		s.logger.Error("failed to resolve recon record",
			zap.String("record_id", id),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}

	s.trail.Log(audit.Event{
		ID:       uuid.New().String(),
		Actor:    userID,
		Action:   "korealy.resolve",
		Entity:   "recon_record",
		EntityID: id,
		Detail:   map[string]interface{}{"note": note},
	})

	s.logger.Info("recon record resolved",
		zap.String("record_id", id),
		zap.String("resolved_by", userID))
	return nil
}
