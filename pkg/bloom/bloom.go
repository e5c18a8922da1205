package bloom

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultKey       = "hermes:bloom:fingerprints"
	defaultCapacity  = 1_000_000
	defaultErrorRate = 0.001
)

// Filter is a RedisBloom filter over "<user>:<fingerprint>" items. A negative
// answer is definite, a positive one only means "ask the database".
type Filter struct {
	client *redis.Client
	key    string
}

// NewFilter connects to redisURL (redis://...) and reserves the filter if it does not exist yet
func NewFilter(redisURL string) (*Filter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	f := &Filter{client: client, key: defaultKey}

	exists, err := client.Exists(ctx, f.key).Result()
	if err == nil && exists == 0 {
		// BF.RESERVE <key> <error_rate> <capacity>
		if err := client.Do(ctx, "BF.RESERVE", f.key, defaultErrorRate, defaultCapacity).Err(); err != nil {
			log.Warnf("[Bloom] BF.RESERVE failed, relying on BF.ADD auto-create: %v", err)
		}
	}
	return f, nil
}

func item(userID, fingerprint string) string {
	return userID + ":" + fingerprint
}

// MightContain reports false only when the fingerprint was never added for this user
func (f *Filter) MightContain(ctx context.Context, userID, fingerprint string) (bool, error) {
	res, err := f.client.Do(ctx, "BF.EXISTS", f.key, item(userID, fingerprint)).Result()
	if err != nil {
		return false, err
	}
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case bool:
		return v, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

func (f *Filter) Add(ctx context.Context, userID, fingerprint string) error {
	return f.client.Do(ctx, "BF.ADD", f.key, item(userID, fingerprint)).Err()
}

func (f *Filter) Close() error {
	return f.client.Close()
}
