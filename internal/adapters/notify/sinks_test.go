package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/alejandrodnm/tradewatch/internal/adapters/notify"
	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- redis ---

type published struct {
	channel string
	body    []byte
}

type fakeRedis struct {
	published []published
	sets      map[string]time.Duration
	err       error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.published = append(f.published, published{channel: channel, body: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.sets == nil {
		f.sets = make(map[string]time.Duration)
	}
	f.sets[key] = ttl
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func TestRedis_PublishesOnKindChannel(t *testing.T) {
	fake := &fakeRedis{}
	r := notify.NewRedisWithClient(fake, notify.RedisConfig{})

	err := r.Publish(context.Background(), domain.Event{
		Kind:      domain.EventTradeCompleted,
		Timestamp: ts,
		Key:       "EURUSD_1_abcd",
		Payload:   domain.TradeSummary{PlatformTradeID: "EURUSD_1_abcd", Samples: 3},
	})
	require.NoError(t, err)

	require.Len(t, fake.published, 1)
	assert.Equal(t, "tradewatch:trade_completed", fake.published[0].channel)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(fake.published[0].body, &decoded))
	assert.Equal(t, "trade_completed", decoded["type"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "EURUSD_1_abcd", data["platformTradeId"])
	assert.Empty(t, fake.sets, "only status updates are snapshotted")
}

func TestRedis_StatusSnapshot(t *testing.T) {
	fake := &fakeRedis{}
	r := notify.NewRedisWithClient(fake, notify.RedisConfig{Prefix: "tw", StatusTTL: time.Minute})

	require.NoError(t, r.Publish(context.Background(), domain.Event{Kind: domain.EventStatusUpdate, Timestamp: ts, Payload: domain.CaptureStatus{}}))
	assert.Equal(t, "tw:status_update", fake.published[0].channel)
	assert.Equal(t, time.Minute, fake.sets["tw:status"])
}

func TestRedis_PublishError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	r := notify.NewRedisWithClient(fake, notify.RedisConfig{})

	err := r.Publish(context.Background(), domain.Event{Kind: domain.EventTradeDetected, Timestamp: ts})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// --- kafka ---

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafka_KeysByEventKey(t *testing.T) {
	w := &fakeWriter{}
	k := notify.NewKafkaWithWriter(w, "")

	err := k.Publish(context.Background(), domain.Event{
		Kind:      domain.EventSampleCollected,
		Timestamp: ts,
		Key:       "EURUSD_1_abcd",
		Payload:   domain.SampleCollectedPayload{PlatformTradeID: "EURUSD_1_abcd"},
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("EURUSD_1_abcd"), msg.Key)
	assert.Equal(t, ts, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "sample_collected", string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Value), `"type":"sample_collected"`)
}

func TestKafka_WriteError(t *testing.T) {
	k := notify.NewKafkaWithWriter(&fakeWriter{err: errors.New("leader not available")}, "t")
	err := k.Publish(context.Background(), domain.Event{Kind: domain.EventTradeDetected})
	require.Error(t, err)
}

func TestNewKafka_RequiresBrokers(t *testing.T) {
	_, err := notify.NewKafka(notify.KafkaConfig{})
	assert.Error(t, err)
}

// --- multi / throttle ---

type countingSink struct {
	n   int
	err error
}

func (c *countingSink) Publish(context.Context, domain.Event) error {
	c.n++
	return c.err
}

func TestMulti_FanOutKeepsGoingOnError(t *testing.T) {
	bad := &countingSink{err: errors.New("down")}
	good := &countingSink{}
	m := notify.NewMulti(bad, nil, good)
	require.Equal(t, 2, m.Len())

	err := m.Publish(context.Background(), domain.Event{Kind: domain.EventTradeDetected})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 1, bad.n)
	assert.Equal(t, 1, good.n)
}

func TestThrottled_OnlyLimitsStatus(t *testing.T) {
	sink := &countingSink{}
	th := notify.NewThrottled(sink, 5*time.Second)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		at := ts.Add(time.Duration(i) * 1500 * time.Millisecond)
		require.NoError(t, th.Publish(ctx, domain.Event{Kind: domain.EventStatusUpdate, Timestamp: at}))
		require.NoError(t, th.Publish(ctx, domain.Event{Kind: domain.EventSampleCollected, Timestamp: at}))
	}

	// 4 samples + status at t=0 only (4.5s < 5s).
	assert.Equal(t, 5, sink.n)
	assert.Equal(t, 3, th.Skipped())

	require.NoError(t, th.Publish(ctx, domain.Event{Kind: domain.EventStatusUpdate, Timestamp: ts.Add(6 * time.Second)}))
	assert.Equal(t, 6, sink.n)
}
