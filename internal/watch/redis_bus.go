package watch

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "watch:"

// RedisBus fans events out over Redis pub/sub so that every server
// instance observes writes acknowledged by any of them.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+ev.Collection, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, collection string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelPrefix+collection)

	// Force the subscription onto the wire before returning, so no event
	// published after Subscribe returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("watch: dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			pubsub.Close()
		})
	}

	return ch, release, nil
}
