package services

import (
	"context"
	"fmt"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/l3v3l-match/backend/internal/repositories"
	"go.uber.org/zap"
)

// EnqueueService is the producer-facing API of the notification pipeline.
// It validates a request against the recipient's preferences and the
// scheduling policy, then fans it out into one queue item per channel so
// that channels can be claimed and retried independently.
type EnqueueService struct {
	prefs  repositories.PreferenceRepository
	queue  repositories.QueueRepository
	logs   repositories.DeliveryLogRepository
	users  repositories.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewEnqueueService creates a new EnqueueService
func NewEnqueueService(
	prefs repositories.PreferenceRepository,
	queue repositories.QueueRepository,
	logs repositories.DeliveryLogRepository,
	users repositories.UserRepository,
	logger *zap.Logger,
) *EnqueueService {
	return &EnqueueService{
		prefs:  prefs,
		queue:  queue,
		logs:   logs,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue queues one notification per requested channel. Fan-out is
// best-effort: a channel rejected by preferences or rate limits is logged
// and skipped without cancelling the others. An error is returned only when
// no channel could be queued.
func (s *EnqueueService) Enqueue(ctx context.Context, req *models.EnqueueRequest) ([]models.QueueItem, error) {
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	prefs, err := s.prefs.Get(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("load preferences for %s: %w", req.Username, err)
	}

	now := s.now().UTC()
	var items []models.QueueItem
	var firstErr error

	for _, channel := range req.Channels {
		item, err := s.enqueueChannel(ctx, req, prefs, channel, now)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Info("channel enqueue rejected",
				zap.String("username", req.Username),
				zap.String("trigger", string(req.Trigger)),
				zap.String("channel", string(channel)),
				zap.Error(err),
			)
			continue
		}
		items = append(items, *item)
	}

	if len(items) == 0 {
		if firstErr == nil {
			firstErr = fmt.Errorf("no channels requested")
		}
		return nil, firstErr
	}
	return items, nil
}

func (s *EnqueueService) enqueueChannel(ctx context.Context, req *models.EnqueueRequest, prefs *models.Preferences, channel models.Channel, now time.Time) (*models.QueueItem, error) {
	if !channelPermitted(prefs, req.Trigger, channel) {
		return nil, fmt.Errorf("%w: %s via %s", ErrPreferenceDenied, req.Trigger, channel)
	}
	if err := s.checkRateLimit(ctx, prefs, req.Username, channel, now); err != nil {
		return nil, err
	}
	if channel == models.ChannelSMS {
		if err := s.checkSMSRules(ctx, prefs, req, now); err != nil {
			return nil, err
		}
	}

	scheduledFor := req.ScheduledFor
	if cadence, batched := prefs.Digest[req.Trigger]; batched && req.Priority != models.PriorityCritical && scheduledFor == nil {
		slot := NextDigestTime(cadence, now)
		scheduledFor = &slot
	}

	candidate := now
	if scheduledFor != nil {
		candidate = *scheduledFor
	}
	effective := ApplyQuietHours(prefs.QuietHours, req.Trigger, req.Priority, candidate)
	if scheduledFor != nil || !effective.Equal(candidate) {
		scheduledFor = &effective
	}

	status := models.StatusPending
	if scheduledFor != nil && scheduledFor.After(now) {
		status = models.StatusScheduled
	}

	item := &models.QueueItem{
		Username:     req.Username,
		Trigger:      req.Trigger,
		Channel:      channel,
		Priority:     req.Priority,
		TemplateData: req.TemplateData,
		Status:       status,
		ScheduledFor: scheduledFor,
	}
	if err := s.queue.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("persist queue item: %w", err)
	}
	return item, nil
}

// channelPermitted applies the permission check: bypass triggers are always
// allowed; otherwise the channel must be enabled for the trigger in the
// user's preferences, or the trigger must be default-enabled, in which case
// email is implicitly allowed.
func channelPermitted(prefs *models.Preferences, trigger models.Trigger, channel models.Channel) bool {
	if models.BypassTriggers[trigger] {
		return true
	}
	if enabled, explicit := prefs.Channels[trigger]; explicit {
		for _, c := range enabled {
			if c == channel {
				return true
			}
		}
		return false
	}
	if channel == models.ChannelEmail {
		for _, c := range models.DefaultChannels[trigger] {
			if c == models.ChannelEmail {
				return true
			}
		}
	}
	return false
}

// checkRateLimit counts delivery-log entries in the rule's rolling window.
// The check is advisory at enqueue time only; it is not re-validated at
// claim time, so brief over-delivery under heavy concurrent enqueue is an
// accepted approximation.
func (s *EnqueueService) checkRateLimit(ctx context.Context, prefs *models.Preferences, username string, channel models.Channel, now time.Time) error {
	rule, configured := prefs.RateLimits[channel]
	if !configured {
		return nil
	}

	since := PeriodStart(rule.Period, now)
	count, err := s.logs.CountSince(ctx, username, channel, since)
	if err != nil {
		return fmt.Errorf("count recent sends: %w", err)
	}
	if count >= int64(rule.Max) {
		return fmt.Errorf("%w: %s capped at %d per %s", ErrRateLimited, channel, rule.Max, rule.Period)
	}
	return nil
}

// checkSMSRules enforces the SMS cost and verification constraints
func (s *EnqueueService) checkSMSRules(ctx context.Context, prefs *models.Preferences, req *models.EnqueueRequest, now time.Time) error {
	if prefs.SMS.VerifiedUsersOnly {
		user, err := s.users.GetUserByUsername(req.Username)
		if err != nil {
			return fmt.Errorf("resolve recipient %s: %w", req.Username, err)
		}
		if !user.Verified {
			return fmt.Errorf("%w: sms restricted to verified users", ErrPreferenceDenied)
		}
	}

	if req.Trigger == models.TriggerNewMatch && prefs.SMS.MinimumMatchScore > 0 {
		if score, ok := matchScore(req.TemplateData); ok && score < float64(prefs.SMS.MinimumMatchScore) {
			return fmt.Errorf("%w: match score below sms threshold", ErrPreferenceDenied)
		}
	}

	if prefs.SMS.DailyCostCap > 0 {
		spent, err := s.logs.SumCostSince(ctx, req.Username, models.ChannelSMS, now.AddDate(0, 0, -1))
		if err != nil {
			return fmt.Errorf("sum sms cost: %w", err)
		}
		if spent >= prefs.SMS.DailyCostCap {
			return fmt.Errorf("%w: daily sms cost cap reached", ErrRateLimited)
		}
	}
	return nil
}

func matchScore(data map[string]interface{}) (float64, bool) {
	v, ok := data["matchScore"]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
