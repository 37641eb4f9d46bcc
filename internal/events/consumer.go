package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fleetflow/realtime/internal/hub"
	"github.com/fleetflow/realtime/internal/metrics"
	"github.com/fleetflow/realtime/internal/models"
)

// FleetEvent is one domain event emitted by the business-rule engine
// (license monitor, maintenance monitor, ...). Either user_id or user_ids is
// set depending on whether the event targets one recipient or several.
type FleetEvent struct {
	UserID  string   `json:"user_id,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`

	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

func (e FleetEvent) candidate() models.Candidate {
	return models.Candidate{
		Type:       e.Type,
		Severity:   e.Severity,
		Title:      e.Title,
		Message:    e.Message,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
	}
}

// Consumer turns fleet events arriving on kafka into hub notifications.
type Consumer struct {
	reader *kafkago.Reader
	hub    *hub.Hub
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, h *hub.Hub, log *zap.SugaredLogger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, hub: h, log: log}
}

// Run blocks reading events until ctx is cancelled. Malformed payloads are
// skipped; validation failures are surfaced loudly (log + counter) since a
// silently dropped domain event would hide a producer bug.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("event consumer stopping")
				return
			}
			c.log.Errorw("kafka read", "err", err)
			time.Sleep(time.Second)
			continue
		}

		var ev FleetEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Errorw("unmarshal fleet event", "offset", msg.Offset, "err", err)
			continue
		}
		if err := c.dispatch(ctx, ev); err != nil {
			if errors.Is(err, models.ErrInvalidCandidate) {
				metrics.InvalidEvents.Inc()
				c.log.Errorw("rejected fleet event", "offset", msg.Offset, "type", ev.Type, "err", err)
				continue
			}
			c.log.Errorw("dispatch fleet event", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, ev FleetEvent) error {
	if len(ev.UserIDs) > 0 {
		_, err := c.hub.NotifyMany(ctx, ev.UserIDs, ev.candidate())
		return err
	}
	if ev.UserID == "" {
		return errors.New("fleet event has no target user")
	}
	_, err := c.hub.Notify(ctx, ev.UserID, ev.candidate())
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
