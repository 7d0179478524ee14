package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes each record as JSON on a pub/sub channel so other
// processes can follow the activity live. It stores nothing.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func DialRedis(ctx context.Context, addr, channel string) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisSink{rdb: rdb, channel: channel}, nil
}

func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return s.rdb.Publish(ctx, s.channel, data).Err()
}

// Subscribe returns a channel of records published on the sink's channel.
// It is closed when ctx is done.
func (s *RedisSink) Subscribe(ctx context.Context) <-chan Record {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	out := make(chan Record)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
