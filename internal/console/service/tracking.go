package service

import (
	"context"
	"fmt"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/repository/postgres"
	"go.uber.org/zap"
)

// TrackingRepository описывает требования сервиса к хранилищу отправлений
type TrackingRepository interface {
	ListShipments(ctx context.Context, f postgres.ShipmentFilter) ([]domain.Shipment, error)
	GetShipment(ctx context.Context, id string) (*domain.Shipment, error)
	GetTrackingStats(ctx context.Context) (*domain.TrackingStats, error)
}

type TrackingService struct {
	repo   TrackingRepository
	logger *zap.Logger
}

func NewTrackingService(repo TrackingRepository, logger *zap.Logger) *TrackingService {
	return &TrackingService{
		repo:   repo,
		logger: logger.Named("tracking-service"),
	}
}

func (s *TrackingService) List(ctx context.Context, f postgres.ShipmentFilter) ([]domain.Shipment, error) {
	shipments, err := s.repo.ListShipments(ctx, f)
	if err != nil {
		s.logger.Error("failed to list shipments", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch shipments: %w", err)
	}
	if shipments == nil {
		return []domain.Shipment{}, nil
	}
	return shipments, nil
}

func (s *TrackingService) Get(ctx context.Context, id string) (*domain.Shipment, error) {
	sh, err := s.repo.GetShipment(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch shipment", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sh, nil
}

func (s *TrackingService) Stats(ctx context.Context) (*domain.TrackingStats, error) {
	return s.repo.GetTrackingStats(ctx)
}
