package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"messaging/internal/models"
)

// messageWriter is the part of *kafka.Writer the sender needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSender struct {
	writer messageWriter
}

// NewKafkaSender writes to topic on the comma separated brokers. Events are
// keyed by receiver so one user's notifications stay ordered.
func NewKafkaSender(brokers, topic string) *KafkaSender {
	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (k *KafkaSender) Send(ctx context.Context, n models.PendingNotification) (string, error) {
	event := NewEvent(n)
	value, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode notification event: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(n.UserID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("write notification %d to kafka: %w", n.ID, err)
	}
	return event.EventID, nil
}

func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
