/**
 * @description
 * RabbitMQ consumer for mission lifecycle events. Every service instance
 * subscribes to `mission.lifecycle.*` and drops its cache mirror entry for the
 * affected mission, so mirrors converge after a write made by any instance
 * (or by an external tool writing the authoritative store directly).
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/fluzio/mission-service/internal/domain"
)

// LifecycleEventConsumer handles mission lifecycle events off the bus.
type LifecycleEventConsumer struct {
	cache MissionCacheStore
}

// LifecycleConsumer returns the consumer bound to this service's cache mirror.
func (s *Service) LifecycleConsumer() *LifecycleEventConsumer {
	return &LifecycleEventConsumer{cache: s.cache}
}

// HandleMessage processes one lifecycle event. Returns true to acknowledge.
// Malformed payloads are acknowledged and dropped: re-queueing cannot fix them.
func (c *LifecycleEventConsumer) HandleMessage(body []byte) bool {
	var event domain.MissionLifecycleEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=lifecycle_consumer msg=\"malformed event dropped\" err=%v", err)
		return true
	}

	if c.cache == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.cache.InvalidateMission(ctx, event.MissionID); err != nil {
		log.Printf("level=warn component=lifecycle_consumer msg=\"cache invalidation failed; re-queueing\" mission_id=%s err=%v", event.MissionID, err)
		return false
	}
	log.Printf("level=info component=lifecycle_consumer msg=\"mirror invalidated\" mission_id=%s status=%s", event.MissionID, event.Status)
	return true
}
