package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
)

const (
	redisNextKey       = "landledger:hist:next"
	redisPropertyKeyFn = "landledger:hist:prop:%d"
	redisAddressKeyFn  = "landledger:hist:addr:%s"
)

// applyScript accepts a record only when its position equals the watermark,
// then appends to all buckets and advances the watermark in one atomic step.
// Concurrent instances therefore agree on bucket contents without locks.
//
// KEYS: next, propertyBucket, senderBucket, receiverBucket
// ARGV: position, sameAddress(0|1)
var applyScript = redis.NewScript(`
	local next = tonumber(redis.call("GET", KEYS[1]) or "0")
	local pos = tonumber(ARGV[1])
	if pos < next then return 1 end
	if pos > next then return -1 end
	redis.call("RPUSH", KEYS[2], ARGV[1])
	redis.call("RPUSH", KEYS[3], ARGV[1])
	if ARGV[2] == "0" then
		redis.call("RPUSH", KEYS[4], ARGV[1])
	end
	redis.call("SET", KEYS[1], pos + 1)
	return 0
`)

// Redis is the shared index for multi-instance deployments. Buckets are
// append-only lists; the watermark key serializes appends.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (x *Redis) Apply(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	senderKey := fmt.Sprintf(redisAddressKeyFn, addressKey(rec.Sender))
	receiverKey := fmt.Sprintf(redisAddressKeyFn, addressKey(rec.Receiver))
	same := "0"
	if senderKey == receiverKey {
		same = "1"
	}
	res, err := applyScript.Run(ctx, x.client,
		[]string{
			redisNextKey,
			fmt.Sprintf(redisPropertyKeyFn, rec.PropertyID),
			senderKey,
			receiverKey,
		},
		rec.Position, same,
	).Int()
	if err != nil {
		return false, fmt.Errorf("apply index record: %w", err)
	}
	// 0 applied now, 1 already indexed, -1 gap ahead of the watermark.
	return res >= 0, nil
}

func (x *Redis) NextPosition(ctx context.Context) (int64, error) {
	val, err := x.client.Get(ctx, redisNextKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read index watermark: %w", err)
	}
	return strconv.ParseInt(val, 10, 64)
}

func (x *Redis) ByProperty(ctx context.Context, id domain.PropertyID) ([]int64, error) {
	return x.readBucket(ctx, fmt.Sprintf(redisPropertyKeyFn, id))
}

func (x *Redis) ByAddress(ctx context.Context, addr domain.Address) ([]int64, error) {
	return x.readBucket(ctx, fmt.Sprintf(redisAddressKeyFn, addressKey(addr)))
}

func (x *Redis) Rebuild(ctx context.Context, log []models.TransactionRecord) error {
	// Drop the watermark first so a concurrent Apply cannot interleave with
	// a half-built index, then remove every bucket reachable from the log.
	keys := map[string]struct{}{redisNextKey: {}}
	for _, rec := range log {
		keys[fmt.Sprintf(redisPropertyKeyFn, rec.PropertyID)] = struct{}{}
		keys[fmt.Sprintf(redisAddressKeyFn, addressKey(rec.Sender))] = struct{}{}
		keys[fmt.Sprintf(redisAddressKeyFn, addressKey(rec.Receiver))] = struct{}{}
	}
	del := make([]string, 0, len(keys))
	for k := range keys {
		del = append(del, k)
	}
	if err := x.client.Del(ctx, del...).Err(); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}

	for _, rec := range log {
		if _, err := x.Apply(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (x *Redis) readBucket(ctx context.Context, key string) ([]int64, error) {
	vals, err := x.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read index bucket: %w", err)
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		pos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt index bucket %s: %w", key, err)
		}
		out = append(out, pos)
	}
	return out, nil
}
