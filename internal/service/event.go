package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/yumesaki/arcanet"
)

// eventChannel is the redis pub/sub channel all play events go through.
// Subscribers filter by game on their side.
const eventChannel = "arcanet:events"

// EventService fans out play events over redis pub/sub so every server
// instance sees every event regardless of which one served the request.
type EventService struct {
	rdb *redis.Client
}

func NewEventService(redisClient *redis.Client) *EventService {
	return &EventService{
		rdb: redisClient,
	}
}

func (s *EventService) Publish(ctx context.Context, event arcanet.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, eventChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime pumps events to one websocket session. The input channel
// carries game-name filter updates from the client; an empty filter
// means everything. Returns when the context ends.
func (s *EventService) Realtime(ctx context.Context, input chan []string, output chan arcanet.Event) {
	pubsub := s.rdb.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	filter := map[string]bool{}
	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case games, ok := <-input:
			if !ok {
				return
			}
			filter = map[string]bool{}
			for _, game := range games {
				filter[game] = true
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event arcanet.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(ctx, "broken event payload",
					slog.String("error", err.Error()),
					slog.String("module", "event"))
				continue
			}
			if len(filter) > 0 && !filter[event.Game] {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
