package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/retry"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultLivePattern matches the channels the indexer publishes to, one per
// topic: explorer:blocks:indexed, explorer:delegations:indexed, ...
const DefaultLivePattern = "explorer:*:indexed"

const (
	wildcardTopic = "*"
	pingEvery     = 30 * time.Second
	readDeadline  = 60 * time.Second
)

// LiveTopics are the topics a client may subscribe to, besides "*".
var LiveTopics = []string{"blocks", "transactions", "validators", "finality-providers", "delegations", "proposals", "tokens"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// resubscribeBackoff paces Redis resubscription after a lost connection.
var resubscribeBackoff = retry.Config{
	InitialDelay:  time.Second,
	MaxDelay:      30 * time.Second,
	Multiplier:    2,
	JitterEnabled: true,
}

// ClientMessage is sent by clients to manage topic subscriptions.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`  // one of LiveTopics, or "*"
}

// ServerMessage is sent to clients. Type is "<topic>.indexed" for events.
type ServerMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload"`
}

type topicSubscriptions struct {
	mu     sync.RWMutex
	topics map[string]bool
}

func newTopicSubscriptions() *topicSubscriptions {
	return &topicSubscriptions{topics: make(map[string]bool)}
}

func (s *topicSubscriptions) subscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = true
}

func (s *topicSubscriptions) unsubscribe(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, topic)
}

// isSubscribed reports whether events for topic should be forwarded. "*" matches every topic.
func (s *topicSubscriptions) isSubscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics[wildcardTopic] || s.topics[topic]
}

// topicFromChannel extracts the topic from "explorer:<topic>:indexed".
func topicFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func validTopic(topic string) bool {
	return topic == wildcardTopic || slices.Contains(LiveTopics, topic)
}

// HandleWebSocket upgrades the connection and streams indexer events for the topics the client subscribes to.
//
// Client sends: {"action": "subscribe", "topic": "blocks"} or {"action": "subscribe", "topic": "*"}
// Server sends: {"type": "blocks.indexed", "topic": "blocks", "payload": {...}},
// "subscribed", "unsubscribed", "info" and "error" messages.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		writeError(w, http.StatusServiceUnavailable, query.KindUpstream.String(), "live feed not available (redis disabled)")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.App.Logger.Debug("Failed to close WebSocket connection", zap.Error(err))
		}
	}()

	remote := r.RemoteAddr
	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", remote))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subs := newTopicSubscriptions()
	send := make(chan ServerMessage, 256)

	var wg sync.WaitGroup
	c.guard(&wg, cancel, "redis subscriber", remote, func() { c.subscribeToRedis(ctx, send, subs) })
	c.guard(&wg, cancel, "ping ticker", remote, func() { c.sendPings(ctx, conn) })
	c.guard(&wg, cancel, "message writer", remote, func() { c.writeMessages(ctx, conn, send) })

	// blocks until the connection closes
	c.readClientMessages(ctx, conn, subs, send)
	cancel()
	wg.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", remote))
}

// guard runs fn in a goroutine that cancels the connection if fn panics.
func (c *Controller) guard(wg *sync.WaitGroup, cancel context.CancelFunc, name, remote string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in WebSocket goroutine",
					zap.String("goroutine", name),
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", remote))
				cancel()
			}
		}()
		fn()
	}()
}

func push(ctx context.Context, send chan<- ServerMessage, msg ServerMessage) bool {
	select {
	case send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) livePattern() string {
	if c.App.LiveChannelPattern != "" {
		return c.App.LiveChannelPattern
	}
	return DefaultLivePattern
}

// subscribeToRedis keeps a pattern subscription open for the life of ctx,
// resubscribing with backoff whenever Redis drops it.
func (c *Controller) subscribeToRedis(ctx context.Context, send chan<- ServerMessage, subs *topicSubscriptions) {
	pattern := c.livePattern()
	for attempt := 1; ; attempt++ {
		err := c.attemptRedisSubscription(ctx, pattern, send, subs, attempt)
		if ctx.Err() != nil {
			return
		}

		delay := retry.Backoff(resubscribeBackoff, attempt)
		c.App.Logger.Warn("Redis subscription lost, will retry",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))

		if !push(ctx, send, ServerMessage{Type: "error", Payload: map[string]any{
			"message":     "live feed interrupted, reconnecting",
			"retryIn":     delay.Seconds(),
			"recoverable": true,
		}}) {
			return
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// attemptRedisSubscription subscribes once and forwards messages until the subscription ends.
func (c *Controller) attemptRedisSubscription(ctx context.Context, pattern string, send chan<- ServerMessage, subs *topicSubscriptions, attempt int) error {
	pubsub := c.App.RedisClient.PSubscribe(ctx, pattern)
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.App.Logger.Debug("Error closing Redis subscription", zap.Error(err))
		}
	}()

	receiveCtx, receiveCancel := context.WithTimeout(ctx, 5*time.Second)
	defer receiveCancel()
	if _, err := pubsub.Receive(receiveCtx); err != nil {
		return fmt.Errorf("confirm subscription to %s: %w", pattern, err)
	}

	if attempt > 1 {
		push(ctx, send, ServerMessage{Type: "info", Payload: map[string]any{"message": "live feed restored"}})
	}
	return c.forwardMessages(ctx, pubsub.Channel(), send, subs)
}

// forwardMessages relays events from ch for subscribed topics. It returns nil when ch closes.
func (c *Controller) forwardMessages(ctx context.Context, ch <-chan *redis.Message, send chan<- ServerMessage, subs *topicSubscriptions) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic := topicFromChannel(msg.Channel)
			if topic == "" {
				c.App.Logger.Warn("Unexpected live channel", zap.String("channel", msg.Channel))
				continue
			}
			if !subs.isSubscribed(topic) {
				continue
			}

			var payload json.RawMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				c.App.Logger.Warn("Dropping malformed live event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if !push(ctx, send, ServerMessage{Type: topic + ".indexed", Topic: topic, Payload: payload}) {
				return ctx.Err()
			}
		}
	}
}

// sendPings sends WebSocket ping frames; the client's pong resets the read deadline.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// writeMessages is the connection's only data writer.
func (c *Controller) writeMessages(ctx context.Context, conn *websocket.Conn, send <-chan ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				c.App.Logger.Debug("Failed to write WebSocket message", zap.Error(err))
				return
			}
		}
	}
}

// readClientMessages applies subscription requests until the connection closes or ctx ends.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, subs *topicSubscriptions, send chan<- ServerMessage) {
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for ctx.Err() == nil {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.App.Logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}
		if !push(ctx, send, c.applyClientMessage(subs, msg)) {
			return
		}
	}
}

// applyClientMessage updates subs and returns the acknowledgement for msg.
func (c *Controller) applyClientMessage(subs *topicSubscriptions, msg ClientMessage) ServerMessage {
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return ServerMessage{Type: "error", Payload: map[string]string{"message": "unknown action: " + msg.Action}}
	}
	if !validTopic(msg.Topic) {
		return ServerMessage{Type: "error", Payload: map[string]any{"message": "unknown topic: " + msg.Topic, "topics": LiveTopics}}
	}
	if msg.Action == "subscribe" {
		subs.subscribe(msg.Topic)
		return ServerMessage{Type: "subscribed", Topic: msg.Topic, Payload: map[string]string{"topic": msg.Topic}}
	}
	subs.unsubscribe(msg.Topic)
	return ServerMessage{Type: "unsubscribed", Topic: msg.Topic, Payload: map[string]string{"topic": msg.Topic}}
}
