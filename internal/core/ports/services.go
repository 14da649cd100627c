package ports

import (
	"context"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishRegion(ctx context.Context, sessionID string, region *domain.RegionDescriptor) error
	PublishStatus(ctx context.Context, snap *domain.SessionSnapshot) error
	PublishRunCompleted(ctx context.Context, rec *domain.RunRecord) error
}

// EventSubscriber subscribes to run events from a message broker.
type EventSubscriber interface {
	SubscribeRunsCompleted(ctx context.Context, handler func(ctx context.Context, rec *domain.RunRecord) error) error
}

// CacheService provides raw key/value storage with expiry.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RunExecutor executes one optimization run for a region and blocks until
// it finishes or ctx is done.
type RunExecutor interface {
	Optimize(ctx context.Context, runID string, region domain.RegionDescriptor) (domain.ResultDescriptor, error)
}
