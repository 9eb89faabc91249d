package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/canopy-network/explorerx/app/query/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTopicFromChannel(t *testing.T) {
	tests := []struct {
		channel  string
		expected string
	}{
		{"explorer:blocks:indexed", "blocks"},
		{"explorer:finality-providers:indexed", "finality-providers"},
		{"explorer:indexed", ""},
		{"explorer:blocks:extra:indexed", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			assert.Equal(t, tt.expected, topicFromChannel(tt.channel))
		})
	}
}

func TestTopicSubscriptions(t *testing.T) {
	subs := newTopicSubscriptions()
	assert.False(t, subs.isSubscribed("blocks"))

	subs.subscribe("blocks")
	assert.True(t, subs.isSubscribed("blocks"))
	assert.False(t, subs.isSubscribed("delegations"))

	subs.subscribe("*")
	assert.True(t, subs.isSubscribed("delegations"))

	subs.unsubscribe("*")
	subs.unsubscribe("blocks")
	assert.False(t, subs.isSubscribed("blocks"))
}

func TestApplyClientMessage(t *testing.T) {
	c := NewController(&types.App{Logger: zaptest.NewLogger(t)})
	subs := newTopicSubscriptions()

	ack := c.applyClientMessage(subs, ClientMessage{Action: "subscribe", Topic: "delegations"})
	assert.Equal(t, "subscribed", ack.Type)
	assert.True(t, subs.isSubscribed("delegations"))

	ack = c.applyClientMessage(subs, ClientMessage{Action: "subscribe", Topic: "mempool"})
	assert.Equal(t, "error", ack.Type)
	assert.False(t, subs.isSubscribed("mempool"))

	ack = c.applyClientMessage(subs, ClientMessage{Action: "listen", Topic: "blocks"})
	assert.Equal(t, "error", ack.Type)

	ack = c.applyClientMessage(subs, ClientMessage{Action: "unsubscribe", Topic: "delegations"})
	assert.Equal(t, "unsubscribed", ack.Type)
	assert.False(t, subs.isSubscribed("delegations"))
}

func TestForwardMessages(t *testing.T) {
	c := NewController(&types.App{Logger: zaptest.NewLogger(t)})
	subs := newTopicSubscriptions()
	subs.subscribe("blocks")

	ch := make(chan *redis.Message, 4)
	ch <- &redis.Message{Channel: "explorer:transactions:indexed", Payload: `{"hash":"AB"}`}
	ch <- &redis.Message{Channel: "explorer:blocks:indexed", Payload: `not json`}
	ch <- &redis.Message{Channel: "explorer:blocks:indexed", Payload: `{"height":12}`}
	close(ch)

	send := make(chan ServerMessage, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.forwardMessages(ctx, ch, send, subs))

	require.Len(t, send, 1)
	msg := <-send
	assert.Equal(t, "blocks.indexed", msg.Type)
	assert.Equal(t, "blocks", msg.Topic)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"blocks.indexed","topic":"blocks","payload":{"height":12}}`, string(raw))
}

func TestForwardMessages_StopsOnCancel(t *testing.T) {
	c := NewController(&types.App{Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.forwardMessages(ctx, make(chan *redis.Message), make(chan ServerMessage), newTopicSubscriptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLivePattern(t *testing.T) {
	c := NewController(&types.App{Logger: zaptest.NewLogger(t)})
	assert.Equal(t, DefaultLivePattern, c.livePattern())
	c.App.LiveChannelPattern = "testnet:*:indexed"
	assert.Equal(t, "testnet:*:indexed", c.livePattern())
}
