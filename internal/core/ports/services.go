package ports

import (
	"context"
	"time"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// EventPublisher publishes engine events to a message broker.
type EventPublisher interface {
	PublishClaim(ctx context.Context, t *domain.Territory) error
	PublishWarning(ctx context.Context, ownerID string, res domain.CollisionResult) error
	PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
	PublishLocationSample(ctx context.Context, s *domain.LocationSample) error
}

// EventSubscriber subscribes to engine inputs from a message broker.
type EventSubscriber interface {
	SubscribeLocationSamples(ctx context.Context, handler func(ctx context.Context, s *domain.LocationSample) error) error
	SubscribeControlCommands(ctx context.Context, handler func(ctx context.Context, cmd *domain.ControlCommand) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, userID, title, body string) error
}

// TimerHandle cancels a scheduled job; Stop is idempotent.
type TimerHandle interface {
	Stop()
}

// Scheduler schedules cancellable repeating and one-shot callbacks. It exists
// so timer-driven session logic can be tested with a fake and so stopping a
// session cannot leave a live timer behind.
type Scheduler interface {
	Every(interval time.Duration, fn func()) TimerHandle
	After(delay time.Duration, fn func()) TimerHandle
}

// ClaimUploader hands a validated claim to the upload pipeline (the temporal
// workflow in production, a direct repository write in tests).
type ClaimUploader interface {
	Upload(ctx context.Context, t *domain.Territory) error
}
