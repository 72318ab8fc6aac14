package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink mirrors domain events onto a kafka topic for external reward
// trackers and notification senders. The bus handler only enqueues; a worker
// goroutine owns the producer so a slow broker never blocks a game-event
// callback. A full inbox drops the event: the in-process subscribers remain
// the source of truth for consistency, the mirror is observability.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	inbox  chan Event
	logger *slog.Logger
}

// NewKafkaSink connects a producer to the given brokers. Returns nil if no
// brokers are configured.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}

	return &KafkaSink{
		client: client,
		topic:  topic,
		inbox:  make(chan Event, 1024),
		logger: logger,
	}, nil
}

// Handler returns the bus handler that enqueues events for mirroring.
func (s *KafkaSink) Handler() Handler {
	return func(_ context.Context, event Event) {
		select {
		case s.inbox <- event:
		default:
			s.logger.Warn("kafka sink inbox full, dropping event", "kind", event.Kind)
		}
	}
}

type wirePayload struct {
	Kind                string `json:"kind"`
	Timestamp           string `json:"timestamp"`
	ActorID             string `json:"actor_id,omitempty"`
	ReligionID          string `json:"religion_id,omitempty"`
	CivilizationID      string `json:"civilization_id,omitempty"`
	OtherCivilizationID string `json:"other_civilization_id,omitempty"`
	RelationshipID      string `json:"relationship_id,omitempty"`
	RelationshipStatus  string `json:"relationship_status,omitempty"`
	MilestoneID         string `json:"milestone_id,omitempty"`
	Rank                int    `json:"rank,omitempty"`
	HolySiteTier        int    `json:"holy_site_tier,omitempty"`
}

// Run consumes the inbox and produces records until ctx is cancelled.
func (s *KafkaSink) Run(ctx context.Context) error {
	defer s.client.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-s.inbox:
			payload := wirePayload{
				Kind:               string(event.Kind),
				Timestamp:          event.Timestamp.Format(time.RFC3339Nano),
				ActorID:            string(event.ActorID),
				RelationshipStatus: event.RelationshipStatus,
				MilestoneID:        event.MilestoneID,
				Rank:               event.Rank,
				HolySiteTier:       event.HolySiteTier,
			}
			if !event.ReligionID.IsNil() {
				payload.ReligionID = event.ReligionID.String()
			}
			if !event.CivilizationID.IsNil() {
				payload.CivilizationID = event.CivilizationID.String()
			}
			if !event.OtherCivilizationID.IsNil() {
				payload.OtherCivilizationID = event.OtherCivilizationID.String()
			}
			if !event.RelationshipID.IsNil() {
				payload.RelationshipID = event.RelationshipID.String()
			}

			value, err := json.Marshal(payload)
			if err != nil {
				s.logger.Error("marshal event payload", "error", err)
				continue
			}

			record := &kgo.Record{
				Topic: s.topic,
				Key:   []byte(payload.CivilizationID),
				Value: value,
			}
			if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
				s.logger.Error("produce domain event", "kind", event.Kind, "error", err)
			}
		}
	}
}
