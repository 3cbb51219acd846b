// Package service assembles the governor and runs it until its context ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"softphone-governor/pkg/audit"
	"softphone-governor/pkg/config"
	"softphone-governor/pkg/constants"
	"softphone-governor/pkg/coordinator"
	"softphone-governor/pkg/dialog"
	"softphone-governor/pkg/handlers"
	"softphone-governor/pkg/idempotency"
	"softphone-governor/pkg/metrics"
	"softphone-governor/pkg/server"
	"softphone-governor/pkg/softphone"
	"softphone-governor/pkg/tenant"
)

const shutdownTimeout = 10 * time.Second

type Service struct {
	config      *config.Config
	logger      *logrus.Logger
	metrics     *metrics.Metrics
	coordinator *coordinator.Coordinator
	stream      *audit.StreamSink
	server      *http.Server

	mu   sync.Mutex
	addr string
}

// New builds every component from cfg. rdb may be nil when cfg needs no Redis.
func New(cfg *config.Config, rdb *goredis.Client, logger *logrus.Logger, metrics *metrics.Metrics) (*Service, error) {
	if cfg.NeedsRedis() && rdb == nil {
		return nil, errors.New("redis client is required by the configured backends")
	}

	tenants := tenant.NewStore()
	if cfg.TenantsFile != "" {
		loaded, err := tenant.LoadFile(cfg.TenantsFile)
		if err != nil {
			return nil, err
		}
		tenants = loaded
		logger.WithFields(logrus.Fields{
			"file":    cfg.TenantsFile,
			"tenants": tenants.Count(),
		}).Info("Loaded tenant configs")
	}

	var filter idempotency.Filter
	switch cfg.DedupBackend {
	case constants.DedupBackendRedis:
		filter = idempotency.NewRedisFilter(rdb, cfg.DedupTTL(), cfg.PodID, logger, metrics)
	default:
		filter = idempotency.NewMemoryFilter(cfg.DedupCapacity, cfg.DedupTTL())
	}

	ring := audit.NewRing(cfg.AuditCapacity)
	sink := audit.Fanout{ring}
	var stream *audit.StreamSink
	if cfg.AuditStreamEnabled {
		stream = audit.NewStreamSink(rdb, cfg.AuditStreamMaxLen, logger, metrics)
		sink = append(sink, stream)
	}

	client, err := softphone.NewClient(softphone.Config{
		BaseURL: cfg.SoftphoneURL,
		Secret:  cfg.SoftphoneSecret,
		Bearer:  cfg.SoftphoneBearer,
		Timeout: cfg.OutboundTimeout(),
	}, logger, metrics)
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(coordinator.Deps{
		Registry:   dialog.NewRegistry(),
		Locks:      dialog.NewKeyLocker(0),
		Filter:     filter,
		Dispatcher: client,
		Tenants:    tenants,
		Reply:      coordinator.NewEchoPolicy(cfg.ReplyTemplate, cfg.ReplyFallback),
		Audit:      sink,
		Logger:     logger,
		Metrics:    metrics,
	})

	var ping func(ctx context.Context) error
	if rdb != nil {
		ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	handler := handlers.NewHandler(coord, tenants, ring, ping, cfg.PodID, logger)

	return &Service{
		config:      cfg,
		logger:      logger,
		metrics:     metrics,
		coordinator: coord,
		stream:      stream,
		server:      server.NewHTTPServer(cfg, handler, logger),
	}, nil
}

// Run serves HTTP, sweeps stale dialogs and drains the audit stream until ctx
// is cancelled or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.WithField("addr", ln.Addr().String()).Info("Starting HTTP server")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.sweepRoutine(ctx)
		return nil
	})

	if s.stream != nil {
		g.Go(func() error {
			return s.stream.Run(ctx)
		})
	}

	s.logger.WithFields(logrus.Fields{
		"pod_id":        s.config.PodID,
		"dedup_backend": s.coordinator.DedupBackend(),
		"audit_stream":  s.stream != nil,
	}).Info("Governor started")

	err = g.Wait()
	s.logger.Info("Governor stopped")
	return err
}

// Addr is the listen address once Run has started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Service) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

func (s *Service) sweepRoutine(ctx context.Context) {
	interval := s.config.SweepInterval()
	if interval <= 0 {
		interval = constants.MillisecondsToDuration(constants.DefaultSweepIntervalMS)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.coordinator.SweepExpired(s.config.DialogMaxAge()); removed > 0 {
				s.logger.WithField("removed", removed).Info("Swept expired dialogs")
			}
		}
	}
}
