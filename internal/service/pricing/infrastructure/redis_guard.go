// internal/service/pricing/infrastructure/redis_guard.go
package infrastructure

import (
	"context"
	"fmt"

	"bazaar/internal/pkg/redis"
	"bazaar/internal/service/pricing/domain"
)

const (
	acquireScriptName = "redemption_acquire"
	releaseScriptName = "redemption_release"
)

// RedisRedemptionGuard 用 Lua 脚本把“额度检查 + 占位”做成单次往返的
// 原子操作。两个并发请求在额度边缘不可能都通过——这是对
// 读后写竞态的修复，不能退回成两步操作。
type RedisRedemptionGuard struct {
	redisClient *redis.Client
}

// NewRedisRedemptionGuard 创建闸门实例，初始化时加载脚本。
func NewRedisRedemptionGuard(redisClient *redis.Client) (*RedisRedemptionGuard, error) {
	if err := redisClient.LoadScriptFromContent(acquireScriptName, acquireScript); err != nil {
		return nil, fmt.Errorf("failed to load acquire script: %w", err)
	}
	if err := redisClient.LoadScriptFromContent(releaseScriptName, releaseScript); err != nil {
		return nil, fmt.Errorf("failed to load release script: %w", err)
	}
	return &RedisRedemptionGuard{redisClient: redisClient}, nil
}

func globalKey(couponCodeID string) string {
	return fmt.Sprintf("coupon:usage:{%s}", couponCodeID)
}

func customerKey(couponCodeID, customerID string) string {
	return fmt.Sprintf("coupon:usage:{%s}:cust:%s", couponCodeID, customerID)
}

// Acquire 占一个核销名额。seed 参数是账本侧的当前计数，
// 键不存在时用它初始化，让 Redis 计数和历史数据对齐。
func (g *RedisRedemptionGuard) Acquire(ctx context.Context, couponCodeID, customerID string, globalLimit, perCustomerLimit int, seedGlobal, seedCustomer int64) error {
	keys := []string{globalKey(couponCodeID), customerKey(couponCodeID, customerID)}
	args := []interface{}{globalLimit, perCustomerLimit, seedGlobal, seedCustomer}

	result, err := g.redisClient.RunScript(ctx, acquireScriptName, keys, args...)
	if err != nil {
		return domain.NewExternalError(fmt.Sprintf("redemption guard unavailable: %v", err))
	}
	code, ok := result.(int64)
	if !ok {
		return domain.NewExternalError(fmt.Sprintf("unexpected result type from acquire script: %T", result))
	}

	switch code {
	case 1:
		return nil
	case 0, 2:
		return domain.ErrUsageLimitReached
	default:
		return domain.NewExternalError(fmt.Sprintf("unknown result code from acquire script: %d", code))
	}
}

// Release 归还一个名额，用于占位之后的失败路径。计数不会减到负数。
func (g *RedisRedemptionGuard) Release(ctx context.Context, couponCodeID, customerID string) error {
	keys := []string{globalKey(couponCodeID), customerKey(couponCodeID, customerID)}
	if _, err := g.redisClient.RunScript(ctx, releaseScriptName, keys); err != nil {
		return fmt.Errorf("failed to release redemption slot: %w", err)
	}
	return nil
}

var acquireScript = `
-- KEYS[1]: 全局计数, 例如 coupon:usage:{code-123}
-- KEYS[2]: 客户计数, 例如 coupon:usage:{code-123}:cust:user-7
-- ARGV[1]: 全局上限 (0 = 不限)
-- ARGV[2]: 客户上限 (0 = 不限)
-- ARGV[3]: 全局计数种子（账本当前值）
-- ARGV[4]: 客户计数种子

redis.call('set', KEYS[1], ARGV[3], 'NX')
redis.call('set', KEYS[2], ARGV[4], 'NX')

local gl = tonumber(ARGV[1])
local g = tonumber(redis.call('get', KEYS[1]))
if gl > 0 and g >= gl then
    return 0 -- 全局额度耗尽
end

local cl = tonumber(ARGV[2])
local c = tonumber(redis.call('get', KEYS[2]))
if cl > 0 and c >= cl then
    return 2 -- 该客户额度耗尽
end

redis.call('incr', KEYS[1])
redis.call('incr', KEYS[2])
return 1
`

var releaseScript = `
-- 两个计数各退一，且不越过 0
for i = 1, 2 do
    local v = tonumber(redis.call('get', KEYS[i]) or '0')
    if v > 0 then
        redis.call('decr', KEYS[i])
    end
end
return 1
`
