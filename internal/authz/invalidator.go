package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationChannel is the pub/sub channel carrying cache
// invalidation signals.
const DefaultInvalidationChannel = "palisade:authz:invalidate"

// InvalidationSignal names the (tenant, user) whose cached decisions
// must be dropped after a role-membership or grant mutation.
type InvalidationSignal struct {
	TenantID string `json:"tenant_id"`
	UserID   int64  `json:"user_id"`
}

// InvalidationPublisher emits signals for the administration surface.
type InvalidationPublisher struct {
	client  *redis.Client
	channel string
}

// NewInvalidationPublisher constructs a publisher on the given channel;
// an empty channel uses the default.
func NewInvalidationPublisher(client *redis.Client, channel string) *InvalidationPublisher {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &InvalidationPublisher{client: client, channel: channel}
}

// Publish emits one invalidation signal.
func (p *InvalidationPublisher) Publish(ctx context.Context, tenantID string, userID int64) error {
	payload, err := json.Marshal(InvalidationSignal{TenantID: tenantID, UserID: userID})
	if err != nil {
		return fmt.Errorf("authz: marshal invalidation: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("authz: publish invalidation: %w", err)
	}
	return nil
}

// InvalidationSubscriber drives DecisionCache.Invalidate from the redis
// channel. Malformed payloads are logged and skipped; the subscription
// itself ending (other than by context cancellation) is returned to the
// caller so the supervisor can restart it.
type InvalidationSubscriber struct {
	client  *redis.Client
	cache   *DecisionCache
	channel string
	logger  *slog.Logger
}

// NewInvalidationSubscriber constructs a subscriber; an empty channel
// uses the default.
func NewInvalidationSubscriber(client *redis.Client, cache *DecisionCache, channel string, logger *slog.Logger) *InvalidationSubscriber {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &InvalidationSubscriber{client: client, cache: cache, channel: channel, logger: logger}
}

// Run consumes signals until the context is cancelled.
func (s *InvalidationSubscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("authz: invalidation subscription closed")
			}
			var sig InvalidationSignal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				if s.logger != nil {
					s.logger.Warn("malformed invalidation signal", slog.String("payload", msg.Payload))
				}
				continue
			}
			if sig.TenantID == "" || sig.UserID <= 0 {
				if s.logger != nil {
					s.logger.Warn("incomplete invalidation signal", slog.String("payload", msg.Payload))
				}
				continue
			}
			s.cache.Invalidate(sig.TenantID, sig.UserID)
			if s.logger != nil {
				s.logger.Debug("cache invalidated",
					slog.String("tenant_id", sig.TenantID),
					slog.Int64("user_id", sig.UserID))
			}
		}
	}
}
