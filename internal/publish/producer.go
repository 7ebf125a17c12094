package publish

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"alertmon/internal/models"
)

// AlertEvent is the JSON record published for every persisted alert.
type AlertEvent struct {
	AlertID       string    `json:"alert_id"`
	ConditionName string    `json:"condition_name"`
	Target        string    `json:"target"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	TicketKey     string    `json:"ticket_key,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(broker string, topic string) *Producer {
	log.Printf("Creating Kafka producer %s with topic %s", broker, topic)
	return &Producer{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  []string{broker},
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}),
	}
}

// PublishAlert writes the alert event keyed by alert id, so replays for the
// same alert land on the same partition.
func (p *Producer) PublishAlert(ctx context.Context, alert *models.Alert) error {
	event := AlertEvent{
		AlertID:       alert.AlertID,
		ConditionName: alert.ConditionName,
		Target:        alert.Target,
		Severity:      string(alert.Severity),
		Status:        string(alert.Status),
		Timestamp:     time.Now().UTC(),
	}
	if alert.Ticket != nil {
		event.TicketKey = alert.Ticket.Key
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(alert.AlertID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("Failed to write message to Kafka: %v", err)
		return err
	}
	return nil
}

func (p *Producer) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("Failed to close Kafka writer: %v", err)
	}
}
