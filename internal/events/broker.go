package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/CrashMediaIT/acvideoreview-sync/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types published for a pairing session.
const (
	TypePaired  = "paired"
	TypeCommand = "command"
	TypeExpired = "expired"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Subscriber struct {
	SessionID string
	Events    chan Event
	Done      chan struct{}
}

// Broker fans session events out to SSE subscribers via Redis pub/sub,
// so subscribers on any server instance see events for their session.
type Broker struct {
	redis       *redisclient.Client
	subscribers map[string]map[*Subscriber]bool // sessionID -> set of subscribers
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:       redisClient,
		subscribers: make(map[string]map[*Subscriber]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (b *Broker) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{
		SessionID: sessionID,
		Events:    make(chan Event, 32),
		Done:      make(chan struct{}),
	}

	b.mu.Lock()
	if b.subscribers[sessionID] == nil {
		b.subscribers[sessionID] = make(map[*Subscriber]bool)
		go b.subscribeToRedis(sessionID)
	}
	b.subscribers[sessionID][sub] = true
	count := len(b.subscribers[sessionID])
	b.mu.Unlock()

	log.Info().
		Str("sessionId", sessionID).
		Int("subscriberCount", count).
		Msg("event subscriber attached")

	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[sub.SessionID]; ok {
		delete(subs, sub)
		close(sub.Done)

		if len(subs) == 0 {
			delete(b.subscribers, sub.SessionID)
		}

		log.Info().
			Str("sessionId", sub.SessionID).
			Int("subscriberCount", len(subs)).
			Msg("event subscriber detached")
	}
}

func (b *Broker) Publish(ctx context.Context, sessionID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.SessionChannel(sessionID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(sessionID string) {
	channel := redisclient.SessionChannel(sessionID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("sessionId", sessionID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal session event")
				continue
			}

			b.broadcast(sessionID, event)
		}
	}
}

func (b *Broker) broadcast(sessionID string, event Event) {
	b.mu.RLock()
	subs := b.subscribers[sessionID]
	b.mu.RUnlock()

	for sub := range subs {
		select {
		case sub.Events <- event:
		default:
			log.Warn().
				Str("sessionId", sessionID).
				Msg("subscriber event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subscribers {
		for sub := range subs {
			close(sub.Done)
		}
	}
	b.subscribers = make(map[string]map[*Subscriber]bool)
}

func (b *Broker) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
