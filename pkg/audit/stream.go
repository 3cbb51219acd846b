package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/constants"
	"softphone-governor/pkg/metrics"
	"softphone-governor/pkg/models"
)

// StreamSink mirrors records into a Redis stream. Append only enqueues;
// Run drains the queue until its context is cancelled.
type StreamSink struct {
	rdb     *redis.Client
	stream  string
	maxLen  int64
	queue   chan models.Record
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewStreamSink(rdb *redis.Client, maxLen int64, logger *logrus.Logger, metrics *metrics.Metrics) *StreamSink {
	if maxLen <= 0 {
		maxLen = constants.DefaultAuditStreamMaxLen
	}
	return &StreamSink{
		rdb:     rdb,
		stream:  constants.AuditStream,
		maxLen:  maxLen,
		queue:   make(chan models.Record, constants.AuditQueueSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Append drops the record when the queue is full.
func (s *StreamSink) Append(rec models.Record) {
	select {
	case s.queue <- rec:
	default:
		s.metrics.AuditRecordsDropped.Inc()
	}
}

func (s *StreamSink) Run(ctx context.Context) error {
	s.logger.WithField("stream", s.stream).Info("Starting audit stream writer")

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-s.queue:
			if err := s.publish(ctx, rec); err != nil {
				s.logger.WithError(err).WithField("record_id", rec.ID).Warn("Failed to publish audit record")
			}
		}
	}
}

func (s *StreamSink) publish(ctx context.Context, rec models.Record) error {
	start := time.Now()
	defer func() {
		s.metrics.RedisOperationDuration.WithLabelValues("audit_xadd").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, constants.AuditWriteTimeout)
	defer cancel()

	return s.rdb.XAdd(writeCtx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":       string(rec.Kind),
			"type":       rec.Type,
			"config_id":  rec.ConfigID,
			"phone":      rec.Phone,
			"dialog_id":  rec.DialogID,
			"message_id": rec.MessageID,
			"record":     string(data),
		},
	}).Err()
}
