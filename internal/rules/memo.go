package rules

import (
	"context"
	"sync"

	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

type RuleRepository interface {
	GetAllRules(ctx context.Context) ([]domain.GuardRule, error)
}

// Memo — потокобезопасный in-memory кэш guard-правил.
// Раннер в рантайме обращается только к памяти; с БД кэш синхронизируется
// при старте и по Redis-сигналу об изменении правил.
type Memo struct {
	mu sync.RWMutex
	// Кэш: sku -> правило ("*" — правило по умолчанию для всего каталога)
	rules map[string]domain.GuardRule

	repo   RuleRepository // Используется только для Refresh()
	logger *zap.Logger
}

func NewMemo(repo RuleRepository, logger *zap.Logger) *Memo {
	return &Memo{
		rules:  make(map[string]domain.GuardRule),
		repo:   repo,
		logger: logger.Named("rules"),
	}
}

// Get ищет правило для SKU: сначала персональное, потом wildcard.
// Если правил нет вообще — возвращает пустое правило (изменения не держим).
func (m *Memo) Get(sku string) (domain.GuardRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.rules[sku]; ok {
		return r, true
	}
	if r, ok := m.rules["*"]; ok {
		return r, true
	}
	return domain.GuardRule{}, false
}

// Refresh перечитывает все правила из PostgreSQL в память
func (m *Memo) Refresh(ctx context.Context) error {
	rulesDb, err := m.repo.GetAllRules(ctx)
	if err != nil {
		return err
	}

	newRules := make(map[string]domain.GuardRule)
	for _, r := range rulesDb {
		newRules[r.SKU] = r
	}

	m.mu.Lock()
	m.rules = newRules
	m.mu.Unlock()

	m.logger.Info("guard rule cache refreshed", zap.Int("count", len(newRules)))
	return nil
}
