package runner

import (
	"context"
	"sync"

	"github.com/miraiskin/platform/internal/domain"
	"github.com/miraiskin/platform/internal/infra"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PauseManager хранит выключенные оператором виды задач.
// L1 — локальная мапа для Hot Path (проверка перед claim),
// L2 — Redis-set, общий для всех раннеров и консоли.
type PauseManager struct {
	rdb    *redis.Client
	logger *zap.Logger

	// Виды из конфига, выключенные с самого старта (например, на стенде
	// без доступа к Instagram API)
	seed []string

	mu     sync.RWMutex
	paused map[domain.TaskKind]struct{}
}

func NewPauseManager(rdb *redis.Client, seed []string, logger *zap.Logger) *PauseManager {
	return &PauseManager{
		rdb:    rdb,
		seed:   seed,
		logger: logger.With(zap.String("mod", "pause")),
		paused: make(map[domain.TaskKind]struct{}),
	}
}

// Init синхронизирует L1 с Redis-set и прогревает Redis конфиг-сидом,
// если set пуст (первый старт или флаш Redis).
func (pm *PauseManager) Init(ctx context.Context) error {
	kinds, err := pm.rdb.SMembers(ctx, infra.RedisKeyPausedKinds).Result()
	if err != nil {
		return err
	}

	return WarmupState(ctx, pm.rdb, pm.logger, union(kinds, pm.seed),
		infra.RedisKeyPausedKinds, infra.RedisKeyLockPaused,
		func(items []string) {
			pm.mu.Lock()
			defer pm.mu.Unlock()
			pm.paused = make(map[domain.TaskKind]struct{}, len(items))
			for _, k := range items {
				pm.paused[domain.TaskKind(k)] = struct{}{}
			}
		},
	)
}

// StartListener подписывается на сигналы паузы в реальном времени
func (pm *PauseManager) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, pm.rdb, pm.logger, infra.RedisChanPause,
		func() error { return pm.Init(ctx) }, // Переподключение
		func(kind string, on bool) { // Обработка сообщения "kind:on/off"
			pm.mu.Lock()
			defer pm.mu.Unlock()
			if on {
				pm.paused[domain.TaskKind(kind)] = struct{}{}
			} else {
				delete(pm.paused, domain.TaskKind(kind))
			}
		},
	)
}

// IsPaused — максимально быстрый метод для проверки в Hot Path
func (pm *PauseManager) IsPaused(kind domain.TaskKind) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.paused[kind]
	return ok
}

// Excluded возвращает список для SQL-фильтра claim-запроса
func (pm *PauseManager) Excluded() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]string, 0, len(pm.paused))
	for k := range pm.paused {
		out = append(out, string(k))
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(a, b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
