// Package coordinator drives dialog state from phone engine signals and sends
// the resulting commands back to the engine.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/audit"
	"softphone-governor/pkg/dialog"
	"softphone-governor/pkg/idempotency"
	"softphone-governor/pkg/metrics"
	"softphone-governor/pkg/models"
	"softphone-governor/pkg/protocol"
)

var ErrConfigNotFound = errors.New("tenant config not found")

// Dispatcher delivers a command to the phone engine.
type Dispatcher interface {
	Send(ctx context.Context, cmd models.Command) error
}

// TenantSource looks up the SIP credentials of a tenant.
type TenantSource interface {
	Get(configID string) (models.SoftphoneConfig, bool)
}

// Deps wires a Coordinator. Only Dispatcher is required; Filter may stay nil
// to disable redelivery detection.
type Deps struct {
	Registry   *dialog.Registry
	Locks      *dialog.KeyLocker
	Filter     idempotency.Filter
	Dispatcher Dispatcher
	Tenants    TenantSource
	Reply      ReplyPolicy
	Audit      audit.Sink
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
}

type Coordinator struct {
	registry   *dialog.Registry
	locks      *dialog.KeyLocker
	filter     idempotency.Filter
	dispatcher Dispatcher
	tenants    TenantSource
	reply      ReplyPolicy
	audit      audit.Sink
	logger     *logrus.Logger
	metrics    *metrics.Metrics

	newMessageID func() string
	now          func() time.Time
}

func New(deps Deps) *Coordinator {
	c := &Coordinator{
		registry:     deps.Registry,
		locks:        deps.Locks,
		filter:       deps.Filter,
		dispatcher:   deps.Dispatcher,
		tenants:      deps.Tenants,
		reply:        deps.Reply,
		audit:        deps.Audit,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		newMessageID: uuid.NewString,
		now:          time.Now,
	}
	if c.registry == nil {
		c.registry = dialog.NewRegistry()
	}
	if c.locks == nil {
		c.locks = dialog.NewKeyLocker(0)
	}
	if c.reply == nil {
		c.reply = NewEchoPolicy("", "")
	}
	if c.audit == nil {
		c.audit = audit.Discard{}
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.metrics == nil {
		c.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return c
}

// HandleSignal applies one inbound envelope. It never fails: unknown signals
// and outbound errors still report success so the engine does not retry.
func (c *Coordinator) HandleSignal(ctx context.Context, env models.Envelope) models.SignalResponse {
	if env.Signal == nil {
		return models.SignalResponse{Success: true}
	}
	label := env.Signal.Type()
	if _, unknown := env.Signal.(models.UnknownSignal); unknown {
		label = models.SignalUnknown
	}
	c.metrics.SignalsReceived.WithLabelValues(string(label)).Inc()

	rec := audit.NewRecord(models.RecordInboundSignal)
	rec.Time = env.Time()
	rec.Type = string(env.Signal.Type())
	rec.ConfigID = env.ConfigID
	rec.Phone = env.Phone
	rec.TaskID = env.TaskID
	if payload, err := json.Marshal(env); err == nil {
		rec.Payload = payload
	}

	var resp models.SignalResponse
	switch sig := env.Signal.(type) {
	case models.EventSignal:
		resp = c.handleEvent(env, sig)
	case models.UserPhraseSignal:
		rec.MessageID = sig.MessageID
		resp, rec.Duplicate = c.handlePhrase(ctx, env, sig)
	case models.DeliveredSignal:
		rec.MessageID = sig.MessageID
		resp = c.handleDelivered(env, sig)
	default:
		c.logger.WithFields(logrus.Fields{
			"config_id":   env.ConfigID,
			"phone":       env.Phone,
			"signal_type": env.Signal.Type(),
		}).Warn("Ignoring unsupported signal")
		resp = models.SignalResponse{Success: true}
	}

	rec.DialogID = resp.DialogID
	c.audit.Append(rec)
	return resp
}

func (c *Coordinator) handleEvent(env models.Envelope, sig models.EventSignal) models.SignalResponse {
	key := env.Key()
	logger := c.logger.WithFields(logrus.Fields{
		"dialog_key": key.String(),
		"direction":  sig.Direction,
	})

	switch sig.EventType {
	case models.EventCallStart:
		unlock := c.locks.Lock(key)
		d := c.registry.Start(key, c.now())
		unlock()

		c.metrics.DialogsCreated.WithLabelValues("call_start").Inc()
		c.updateActiveDialogs()
		logger.WithField("dialog_id", d.DialogID).Info("Call started")
		return models.SignalResponse{Success: true, DialogID: d.DialogID}

	case models.EventCallEnd:
		unlock := c.locks.Lock(key)
		removed := c.registry.RemoveByKey(key)
		unlock()

		if removed > 0 {
			c.metrics.DialogsRemoved.WithLabelValues("call_end").Add(float64(removed))
			c.updateActiveDialogs()
		}
		logger.WithField("removed", removed).Info("Call ended")
		return models.SignalResponse{Success: true}

	default:
		logger.WithField("event_type", sig.EventType).Warn("Ignoring unsupported event type")
		return models.SignalResponse{Success: true}
	}
}

// handlePhrase reports whether the phrase was a redelivery.
func (c *Coordinator) handlePhrase(ctx context.Context, env models.Envelope, sig models.UserPhraseSignal) (models.SignalResponse, bool) {
	key := env.Key()
	logger := c.logger.WithFields(logrus.Fields{
		"config_id":  key.ConfigID,
		"phone":      key.Phone,
		"message_id": sig.MessageID,
	})

	unlock := c.locks.Lock(key)
	if !c.markSeen(ctx, sig.MessageID, logger) {
		d, ok := c.registry.FindByKey(key)
		unlock()

		c.metrics.DuplicatePhrases.Inc()
		logger.Info("Duplicate user phrase, not replying again")
		if !ok {
			return models.SignalResponse{Success: true}, true
		}
		return models.SignalResponse{Success: true, DialogID: d.DialogID}, true
	}
	d, created := c.registry.CreateOrGet(key, c.now())
	unlock()

	if created {
		c.metrics.DialogsCreated.WithLabelValues("user_phrase").Inc()
		c.updateActiveDialogs()
		logger.WithField("dialog_id", d.DialogID).Info("Dialog created without call_start")
	}

	say := models.SayCommand{
		ConfigID:  key.ConfigID,
		Phone:     key.Phone,
		Message:   models.TextMessage{Text: c.reply.Reply(sig.Message)},
		MessageID: c.newMessageID(),
		TaskID:    env.TaskID,
		DialogID:  d.DialogID,
	}
	if err := c.Dispatch(ctx, say); err != nil {
		logger.WithError(err).WithField("dialog_id", d.DialogID).Error("Failed to send reply")
	}

	return models.SignalResponse{Success: true, DialogID: d.DialogID}, false
}

// markSeen reports whether messageID is new. Phrases without an id and
// filter failures are processed, keeping delivery at-least-once.
func (c *Coordinator) markSeen(ctx context.Context, messageID string, logger *logrus.Entry) bool {
	if messageID == "" || c.filter == nil {
		return true
	}
	wasNew, err := c.filter.CheckAndMark(ctx, messageID)
	if err != nil {
		logger.WithError(err).Warn("Idempotency check failed, processing phrase")
		return true
	}
	return wasNew
}

func (c *Coordinator) handleDelivered(env models.Envelope, sig models.DeliveredSignal) models.SignalResponse {
	d, ok := c.registry.FindByKey(env.Key())

	entry := c.logger.WithFields(logrus.Fields{
		"config_id":  env.ConfigID,
		"phone":      env.Phone,
		"message_id": sig.MessageID,
		"dialog_id":  d.DialogID,
	})
	if duration, valid := sig.DeliveryDate.Duration(); valid {
		c.metrics.DeliveryDuration.Observe(duration.Seconds())
		entry = entry.WithField("playback", duration)
	}
	entry.Debug("Message delivered")

	if !ok {
		return models.SignalResponse{Success: true}
	}
	return models.SignalResponse{Success: true, DialogID: d.DialogID}
}

// Dispatch sends cmd to the phone engine and records the attempt.
func (c *Coordinator) Dispatch(ctx context.Context, cmd models.Command) error {
	rec := audit.NewRecord(models.RecordOutboundCommand)
	rec.Type = protocol.WireType(cmd.Type())
	rec.ConfigID = cmd.Config()
	if payload, err := json.Marshal(cmd); err == nil {
		rec.Payload = payload
	}
	switch v := cmd.(type) {
	case models.SayCommand:
		rec.Phone, rec.DialogID, rec.MessageID, rec.TaskID = v.Phone, v.DialogID, v.MessageID, v.TaskID
	case models.HangUpCommand:
		rec.Phone, rec.DialogID, rec.TaskID = v.Phone, v.DialogID, v.TaskID
	case models.DTMFCommand:
		rec.Phone = v.Phone
	case models.TransferCommand:
		rec.Phone = v.Phone
	case models.SetConfigCommand:
		// credentials stay out of the audit trail
		rec.Payload = nil
	}

	err := c.dispatcher.Send(ctx, cmd)
	if err != nil {
		rec.Kind = models.RecordOutboundFailed
		rec.Error = err.Error()
	}
	c.audit.Append(rec)

	if err == nil {
		c.logger.WithFields(logrus.Fields{
			"config_id":    rec.ConfigID,
			"command_type": rec.Type,
			"dialog_id":    rec.DialogID,
		}).Debug("Command sent")
	}
	return err
}

// PushConfig sends the stored credentials of configID to the engine.
func (c *Coordinator) PushConfig(ctx context.Context, configID string) error {
	if c.tenants == nil {
		return ErrConfigNotFound
	}
	cfg, ok := c.tenants.Get(configID)
	if !ok {
		return ErrConfigNotFound
	}
	return c.Dispatch(ctx, models.SetConfigCommand{ConfigID: configID, Credentials: cfg})
}

func (c *Coordinator) RemoveConfig(ctx context.Context, configID string) error {
	return c.Dispatch(ctx, models.RemoveConfigCommand{ConfigID: configID})
}

// RecordLog stores a dialing log line posted by the engine.
func (c *Coordinator) RecordLog(entry models.SoftphoneLog) {
	rec := audit.NewRecord(models.RecordSoftphoneLog)
	rec.Type = entry.EventName()
	taskID := entry.TaskID
	rec.TaskID = &taskID
	if payload, err := json.Marshal(entry); err == nil {
		rec.Payload = payload
	}
	c.audit.Append(rec)

	c.logger.WithFields(logrus.Fields{
		"task_id": entry.TaskID,
		"event":   rec.Type,
	}).Debug("Softphone log received")
}

// SweepExpired drops dialogs older than maxAge whose call_end never arrived.
func (c *Coordinator) SweepExpired(maxAge time.Duration) int {
	expired := c.registry.RemoveOlderThan(c.now().Add(-maxAge))
	if len(expired) == 0 {
		return 0
	}

	c.metrics.DialogsRemoved.WithLabelValues("expired").Add(float64(len(expired)))
	c.updateActiveDialogs()
	for _, d := range expired {
		c.logger.WithFields(logrus.Fields{
			"dialog_id":  d.DialogID,
			"config_id":  d.ConfigID,
			"phone":      d.Phone,
			"created_at": d.CreatedAt,
		}).Info("Expired dialog removed")
	}
	return len(expired)
}

func (c *Coordinator) FindDialog(key models.DialogKey) (models.Dialog, bool) {
	return c.registry.FindByKey(key)
}

func (c *Coordinator) Dialog(dialogID string) (models.Dialog, bool) {
	return c.registry.Get(dialogID)
}

// Dialogs returns a snapshot of every active dialog.
func (c *Coordinator) Dialogs() []models.Dialog {
	return c.registry.List()
}

func (c *Coordinator) ActiveDialogs() int {
	return c.registry.Count()
}

func (c *Coordinator) DedupBackend() string {
	if c.filter == nil {
		return "none"
	}
	return c.filter.Backend()
}

func (c *Coordinator) updateActiveDialogs() {
	c.metrics.ActiveDialogs.Set(float64(c.registry.Count()))
}
