package service

import (
	"context"
	"fmt"

	"github.com/miraiskin/platform/internal/audit"
)

// AuditLogProvider описывает контракт для чтения журнала действий.
// Используем структуру Event из пакета audit — единая модель данных.
type AuditLogProvider interface {
	FetchEvents(ctx context.Context, actor, action string) ([]audit.Event, error)
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// FetchEvents запрашивает журнал с фильтрацией.
// Логика фильтров (пустые строки или конкретные значения) инкапсулирована в репозитории.
func (s *AuditService) FetchEvents(ctx context.Context, actor, action string) ([]audit.Event, error) {
	events, err := s.repo.FetchEvents(ctx, actor, action)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch events: %w", err)
	}
	return events, nil
}
