package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReportRepository описывает требования сервиса к аналитическим запросам
type ReportRepository interface {
	GetOverview(ctx context.Context) (*domain.OverviewReport, error)
	GetSalesPoints(ctx context.Context, from, to time.Time) ([]domain.SalesPoint, error)
}

type ReportService struct {
	repo   ReportRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewReportService(repo ReportRepository, rdb *redis.Client, logger *zap.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("report-service"),
	}
}

// Overview отдает единый дашборд. Дашборд опрашивается каждые пару секунд,
// поэтому результат кэшируется в Redis на 30 секунд — тяжелые аналитические
// запросы не долетают до Postgres на каждый опрос.
func (s *ReportService) Overview(ctx context.Context) (*domain.OverviewReport, error) {
	if cached, err := s.rdb.Get(ctx, infra.RedisKeyOverviewCache).Bytes(); err == nil {
		var report domain.OverviewReport
		if json.Unmarshal(cached, &report) == nil {
			return &report, nil
		}
	}

	report, err := s.repo.GetOverview(ctx)
	if err != nil {
		s.logger.Error("failed to build overview", zap.Error(err))
		return nil, fmt.Errorf("service: could not build overview: %w", err)
	}

	if data, err := json.Marshal(report); err == nil {
		if err := s.rdb.Set(ctx, infra.RedisKeyOverviewCache, data, 30*time.Second).Err(); err != nil {
			// Кэш — оптимизация, без него просто дороже
			s.logger.Warn("overview cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

// Sales отдает строки отчета по продажам; Дефолт — последние 30 дней
func (s *ReportService) Sales(ctx context.Context, from, to time.Time) ([]domain.SalesPoint, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid range: from must be before to")
	}

	points, err := s.repo.GetSalesPoints(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("service: could not fetch sales points: %w", err)
	}
	if points == nil {
		return []domain.SalesPoint{}, nil
	}
	return points, nil
}
