package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event basecard.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// PublishMintEvent announces a mint state transition on the owner's channel.
func (s *SignalService) PublishMintEvent(ctx context.Context, event domain.MintEvent) error {
	channel := basecard.MintChannel(event.Address)
	return s.Publish(ctx, channel, basecard.Event{
		Channel: channel,
		Type:    "mint",
		Payload: event,
		Time:    event.Time,
	})
}

// Realtime forwards events from channels to output until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, channels []string, output chan<- basecard.Event) error {
	pubsub := s.rdb.Subscribe(ctx, channels...)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event basecard.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(ctx, "Dropping malformed event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
