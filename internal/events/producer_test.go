package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.PublishEvent(context.Background(), "user-1", AuthEvent{
		Type:   TypeLoggedIn,
		UserID: "user-1",
		IP:     "10.0.0.1",
		At:     at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-1", string(w.msgs[0].Key))

	var event map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, TypeLoggedIn, event["type"])
	assert.Equal(t, "user-1", event["userID"])
	assert.Equal(t, "10.0.0.1", event["ip"])
	assert.NotContains(t, event, "revokedTokens")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishEvent_Errors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.PublishEvent(context.Background(), "k", AuthEvent{Type: TypeSignedUp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	err = p.PublishEvent(context.Background(), "k", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestDiscard(t *testing.T) {
	var d Discard
	assert.NoError(t, d.PublishEvent(context.Background(), "k", AuthEvent{}))
	assert.NoError(t, d.Close())
}
