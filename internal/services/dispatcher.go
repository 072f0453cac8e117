package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"github.com/l3v3l-match/backend/internal/template"
	"github.com/l3v3l-match/backend/internal/transports"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DispatcherConfig tunes one dispatcher instance
type DispatcherConfig struct {
	// BatchSize bounds how many items one run may claim
	BatchSize int
	// MaxAttempts is the total completed delivery attempts before an item
	// is terminally failed
	MaxAttempts int
	// StuckTimeout is how long an item may sit in processing before the
	// recovery sweep reclaims it
	StuckTimeout time.Duration
	// SendsPerSecond throttles transport calls per channel; channels
	// absent from the map are unthrottled
	SendsPerSecond map[models.Channel]float64
	// CostPerSend is the per-message cost recorded in the delivery log
	CostPerSend map[models.Channel]float64
}

// DefaultDispatcherConfig returns the production tuning
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:    100,
		MaxAttempts:  3,
		StuckTimeout: 10 * time.Minute,
		SendsPerSecond: map[models.Channel]float64{
			models.ChannelSMS:   1,
			models.ChannelEmail: 10,
		},
		CostPerSend: map[models.Channel]float64{
			models.ChannelSMS: 0.0075,
		},
	}
}

// RunStats summarizes one dispatcher run
type RunStats struct {
	Reset   int64 `json:"reset"`
	Claimed int   `json:"claimed"`
	Sent    int   `json:"sent"`
	Retried int   `json:"retried"`
	Failed  int   `json:"failed"`
}

// Dispatcher drains the notification queue. Any number of dispatcher
// instances may run concurrently: coordination happens entirely through the
// queue store's atomic claim, never through shared memory.
type Dispatcher struct {
	queue      repositories.QueueRepository
	logs       repositories.DeliveryLogRepository
	templates  repositories.TemplateRepository
	users      repositories.UserRepository
	transports map[models.Channel]transports.Transport
	limiters   map[models.Channel]*rate.Limiter
	logger     *zap.Logger
	cfg        DispatcherConfig
	now        func() time.Time
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	queue repositories.QueueRepository,
	logs repositories.DeliveryLogRepository,
	templates repositories.TemplateRepository,
	users repositories.UserRepository,
	senders map[models.Channel]transports.Transport,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	limiters := make(map[models.Channel]*rate.Limiter, len(cfg.SendsPerSecond))
	for channel, perSecond := range cfg.SendsPerSecond {
		limiters[channel] = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Dispatcher{
		queue:      queue,
		logs:       logs,
		templates:  templates,
		users:      users,
		transports: senders,
		limiters:   limiters,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run performs one dispatcher pass: a recovery sweep followed by a bounded
// claim loop. It is safe to invoke from any number of concurrent workers.
func (d *Dispatcher) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	cutoff := d.now().UTC().Add(-d.cfg.StuckTimeout)
	reset, err := d.queue.ResetStuckProcessing(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("recovery sweep: %w", err)
	}
	stats.Reset = reset
	if reset > 0 {
		d.logger.Warn("reclaimed stuck processing items", zap.Int64("count", reset))
	}

	for stats.Claimed < d.cfg.BatchSize {
		item, err := d.queue.ClaimNext(ctx, "", d.now().UTC())
		if err != nil {
			return stats, fmt.Errorf("claim: %w", err)
		}
		if item == nil {
			break
		}
		stats.Claimed++

		switch d.process(ctx, item) {
		case outcomeSent:
			stats.Sent++
		case outcomeRetried:
			stats.Retried++
		case outcomeFailed:
			stats.Failed++
		}
	}

	d.logger.Info("dispatcher run complete",
		zap.Int64("reset", stats.Reset),
		zap.Int("claimed", stats.Claimed),
		zap.Int("sent", stats.Sent),
		zap.Int("retried", stats.Retried),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetried
	outcomeFailed
)

// process delivers one claimed item. Rendering and the transport call happen
// strictly after the claim: exclusive ownership of the processing item is
// the only gate against double-sends.
func (d *Dispatcher) process(ctx context.Context, item *models.QueueItem) outcome {
	subject, body, sendErr := d.renderContent(ctx, item)
	if sendErr == nil {
		var recipient string
		recipient, sendErr = d.resolveRecipient(ctx, item)
		if sendErr == nil {
			sendErr = d.deliver(ctx, item.Channel, recipient, subject, body)
		}
	}

	now := d.now().UTC()
	if sendErr == nil {
		if err := d.queue.MarkSent(ctx, item.ID, now); err != nil {
			d.logger.Error("mark sent failed", zap.String("item", item.ID.Hex()), zap.Error(err))
		}
		d.recordDelivery(ctx, item, subject, body, now)
		return outcomeSent
	}

	attempt := item.Attempts + 1
	if attempt < d.cfg.MaxAttempts {
		next := now.Add(Backoff(attempt))
		if err := d.queue.MarkRetry(ctx, item.ID, next, sendErr.Error()); err != nil {
			d.logger.Error("mark retry failed", zap.String("item", item.ID.Hex()), zap.Error(err))
		}
		d.logger.Warn("delivery failed, will retry",
			zap.String("item", item.ID.Hex()),
			zap.String("channel", string(item.Channel)),
			zap.Int("attempt", attempt),
			zap.Time("next_retry_at", next),
			zap.Error(sendErr),
		)
		return outcomeRetried
	}

	if err := d.queue.MarkFailed(ctx, item.ID, now, sendErr.Error()); err != nil {
		d.logger.Error("mark failed failed", zap.String("item", item.ID.Hex()), zap.Error(err))
	}
	d.logger.Error("delivery failed terminally",
		zap.String("item", item.ID.Hex()),
		zap.String("channel", string(item.Channel)),
		zap.Int("attempts", attempt),
		zap.Error(sendErr),
	)
	return outcomeFailed
}

func (d *Dispatcher) deliver(ctx context.Context, channel models.Channel, recipient, subject, body string) error {
	if limiter := d.limiters[channel]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("channel throttle: %w", err)
		}
	}
	sender, ok := d.transports[channel]
	if !ok {
		return fmt.Errorf("no transport registered for channel %s", channel)
	}
	return sender.Send(ctx, recipient, subject, body)
}

// renderContent looks up the active template for the item's trigger/channel
// pair, falling back to a hardcoded per-trigger template, and renders it
// against the item's variable bag.
func (d *Dispatcher) renderContent(ctx context.Context, item *models.QueueItem) (string, string, error) {
	tmpl, err := d.templates.FindActive(ctx, item.Trigger, item.Channel)
	if err != nil {
		return "", "", fmt.Errorf("template lookup: %w", err)
	}
	if tmpl == nil {
		fallback := fallbackTemplate(item.Trigger)
		tmpl = &fallback
	}

	subject := template.Render(tmpl.Subject, item.TemplateData)
	body := template.Render(tmpl.Body, item.TemplateData)
	if tmpl.MaxLength > 0 {
		body = truncate(body, tmpl.MaxLength)
	}
	return subject, body, nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// resolveRecipient maps the item's channel to an address on the recipient's
// profile record.
func (d *Dispatcher) resolveRecipient(ctx context.Context, item *models.QueueItem) (string, error) {
	user, err := d.users.GetUserByUsername(item.Username)
	if err != nil {
		return "", fmt.Errorf("resolve recipient %s: %w", item.Username, err)
	}
	switch item.Channel {
	case models.ChannelEmail:
		return user.Email, nil
	case models.ChannelSMS:
		return user.Phone, nil
	case models.ChannelPush:
		return user.FCMToken, nil
	}
	return "", fmt.Errorf("unknown channel %s", item.Channel)
}

// recordDelivery appends the analytics record of a terminal send. Failure
// here is logged but never undoes the send.
func (d *Dispatcher) recordDelivery(ctx context.Context, item *models.QueueItem, subject, body string, sentAt time.Time) {
	preview := truncate(body, 100)
	entry := &models.DeliveryLog{
		Username: item.Username,
		Trigger:  item.Trigger,
		Channel:  item.Channel,
		Priority: item.Priority,
		Subject:  subject,
		Preview:  preview,
		Cost:     d.cfg.CostPerSend[item.Channel],
		SentAt:   sentAt,
	}
	if err := d.logs.Insert(ctx, entry); err != nil {
		d.logger.Error("delivery log write failed", zap.String("item", item.ID.Hex()), zap.Error(err))
	}
}
