package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/constants"
	"softphone-governor/pkg/metrics"
)

// RedisFilter shares the seen-set between governor instances. Each id is a
// key written with SET NX PX, so expiry is handled by Redis.
type RedisFilter struct {
	rdb     *redis.Client
	ttl     time.Duration
	owner   string
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewRedisFilter(rdb *redis.Client, ttl time.Duration, owner string, logger *logrus.Logger, metrics *metrics.Metrics) *RedisFilter {
	if ttl <= 0 {
		ttl = constants.MillisecondsToDuration(constants.DefaultDedupTTLMS)
	}
	return &RedisFilter{
		rdb:     rdb,
		ttl:     ttl,
		owner:   owner,
		logger:  logger,
		metrics: metrics,
	}
}

func (f *RedisFilter) Backend() string {
	return constants.DedupBackendRedis
}

func (f *RedisFilter) CheckAndMark(ctx context.Context, messageID string) (bool, error) {
	start := time.Now()
	defer func() {
		f.metrics.RedisOperationDuration.WithLabelValues("check_and_mark").Observe(time.Since(start).Seconds())
	}()

	wasNew, err := f.rdb.SetNX(ctx, constants.SeenMessageKeyPrefix+messageID, f.owner, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message %s as seen: %w", messageID, err)
	}

	if !wasNew {
		f.logger.WithField("message_id", messageID).Debug("Message already seen")
	}
	return wasNew, nil
}
