package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/hallpass-app/hallpass/core"
)

// redisChannel carries every cross-instance snapshot envelope.
const redisChannel = "hallpass:realtime"

type (
	envelope struct {
		Instance string          `json:"instance"`
		Topic    string          `json:"topic"`
		Payload  json.RawMessage `json:"payload"`
	}

	// RedisBridge fans hub snapshots out across instances via Redis pub/sub.
	RedisBridge struct {
		client   *redis.Client
		hub      *Hub
		instance string
		logger   core.Logger
		cancel   context.CancelFunc
	}
)

var _ Bridge = (*RedisBridge)(nil)

// NewRedisBridge connects the hub to Redis pub/sub and starts relaying
// remote snapshots into the local hub. Call Stop on shutdown.
func NewRedisBridge(client *redis.Client, hub *Hub, logger core.Logger) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		client:   client,
		hub:      hub,
		instance: uuid.New().String(),
		logger:   logger,
		cancel:   cancel,
	}
	hub.SetBridge(b)
	go b.listen(ctx)
	return b
}

func (b *RedisBridge) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error(fmt.Sprintf("realtime: marshaling snapshot for %s: %v", topic, err), err)
		return
	}
	env, err := json.Marshal(envelope{Instance: b.instance, Topic: topic, Payload: data})
	if err != nil {
		b.logger.Error(fmt.Sprintf("realtime: marshaling envelope for %s: %v", topic, err), err)
		return
	}
	if err = b.client.Publish(context.Background(), redisChannel, env).Err(); err != nil {
		// fan-out is best-effort; local subscribers already got the snapshot
		b.logger.Warn(fmt.Sprintf("realtime: publishing to redis: %v", err), err)
	}
}

func (b *RedisBridge) listen(ctx context.Context) {
	pubsub := b.client.Subscribe(ctx, redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn(fmt.Sprintf("realtime: decoding redis envelope: %v", err), err)
				continue
			}
			if env.Instance == b.instance {
				continue
			}
			b.hub.PublishLocal(env.Topic, env.Payload)
		}
	}
}

// Stop detaches the bridge and stops the relay goroutine.
func (b *RedisBridge) Stop() {
	b.cancel()
}
