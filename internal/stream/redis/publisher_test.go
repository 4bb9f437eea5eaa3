package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/imathwy/tbps/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeStream struct {
	added    []*redis.XAddArgs
	addErr   error
	messages []redis.XMessage
	count    int64
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.addErr != nil {
		cmd.SetErr(f.addErr)
		return cmd
	}
	f.added = append(f.added, a)
	cmd.SetVal("1700000000000-0")
	return cmd
}

func (f *fakeStream) XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd {
	f.count = count
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(f.messages)
	return cmd
}

func newTestPublisher(client StreamClient) *Publisher {
	logger := zerolog.Nop()
	return NewPublisher(client, NewStreamConfig("localhost:6379", "", ""), &logger)
}

func sampleEvent() models.SearchEvent {
	return models.SearchEvent{
		ID:          "4f9b1c2e-0000-4000-8000-000000000001",
		Server:      "mock",
		Expression:  "∀ (a b : Nat), a + b = b + a",
		K:           20,
		Outcome:     models.SearchOutcomeSucceeded,
		ResultCount: 3,
		DurationMs:  1200,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublisher_Publish(t *testing.T) {
	stream := &fakeStream{}
	p := newTestPublisher(stream)

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(stream.added) != 1 {
		t.Fatalf("Expected 1 XADD, got %d", len(stream.added))
	}
	args := stream.added[0]
	if args.Stream != DefaultStream {
		t.Errorf("Expected stream %s, got %s", DefaultStream, args.Stream)
	}
	if args.MaxLen != DefaultMaxLen || !args.Approx {
		t.Errorf("Expected approximate trimming at %d, got maxlen=%d approx=%v", DefaultMaxLen, args.MaxLen, args.Approx)
	}

	values, ok := args.Values.(map[string]any)
	if !ok {
		t.Fatalf("Expected map values, got %T", args.Values)
	}
	payload, ok := values["payload"].(string)
	if !ok {
		t.Fatal("Expected string payload field")
	}

	var decoded models.SearchEvent
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if decoded.ID != sampleEvent().ID || decoded.Outcome != models.SearchOutcomeSucceeded {
		t.Errorf("Unexpected decoded event: %+v", decoded)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	p := newTestPublisher(&fakeStream{addErr: errors.New("connection refused")})

	err := p.Publish(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestPublisher_Recent(t *testing.T) {
	data, _ := json.Marshal(sampleEvent())
	stream := &fakeStream{
		messages: []redis.XMessage{
			{ID: "2-0", Values: map[string]any{"payload": string(data)}},
			{ID: "1-0", Values: map[string]any{"other": "x"}},
			{ID: "0-1", Values: map[string]any{"payload": "{not json"}},
		},
	}
	p := newTestPublisher(stream)

	events, err := p.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	if stream.count != 5 {
		t.Errorf("Expected count 5 passed through, got %d", stream.count)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 decodable event, got %d", len(events))
	}
	if events[0].Expression != sampleEvent().Expression {
		t.Errorf("Unexpected expression %q", events[0].Expression)
	}
}

func TestStreamConfig_Enabled(t *testing.T) {
	if NewStreamConfig("", "", "").Enabled() {
		t.Error("Expected stream disabled without an address")
	}
	if !NewStreamConfig("localhost:6379", "", "").Enabled() {
		t.Error("Expected stream enabled with an address")
	}

	var nilCfg *StreamConfig
	if nilCfg.Enabled() {
		t.Error("Expected nil config to be disabled")
	}
}
