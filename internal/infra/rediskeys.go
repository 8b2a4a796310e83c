package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "mirai"
)

// Ключи состояния (Sets и Cache)
const (
	RedisKeyPausedKinds   = RedisNamespace + ":tasks:paused_set"
	RedisKeyLockPaused    = RedisNamespace + ":lock:warmup:paused"
	RedisKeyOverviewCache = RedisNamespace + ":reports:overview"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanTaskWake — пробуждение раннера: в payload летит kind новой задачи
	RedisChanTaskWake = RedisNamespace + ":tasks:wake"
	// RedisChanPause — сигналы паузы/возобновления вида задач ("kind:on" / "kind:off")
	RedisChanPause = RedisNamespace + ":tasks:pause-signal"
	// RedisChanRuleUpdate — инвалидация кэша guard-правил во всех раннерах
	RedisChanRuleUpdate = RedisNamespace + ":pricing:rule-update"
	// RedisChanPriceDecisions — решения оператора по staging-строкам
	RedisChanPriceDecisions = RedisNamespace + ":pricing:decisions"
)

// DecisionChannel — канал пробуждения джобы, ждущей решения по конкретной задаче
func DecisionChannel(taskID string) string {
	return fmt.Sprintf("%s:task:%s", RedisChanPriceDecisions, taskID)
}
