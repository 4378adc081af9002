package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// SMSProducer публикует одноразовые коды в топик уведомлений; доставку до
// абонента делает внешний сервис-потребитель.
type SMSProducer struct {
	writer *kafka.Writer
}

func NewSMSProducer(brokers []string, topic string) *SMSProducer {
	return &SMSProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type smsMessage struct {
	To    string    `json:"to"`
	Code  string    `json:"code"`
	OTPID uuid.UUID `json:"otp_id"`
}

func (p *SMSProducer) SendCode(ctx context.Context, destination, code string, otpID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(smsMessage{To: destination, Code: code, OTPID: otpID})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(destination),
		Value: value,
	})
}

func (p *SMSProducer) Close() error {
	return p.writer.Close()
}

// OrderEventProducer — шина событий жизненного цикла заказа.
type OrderEventProducer struct {
	writer *kafka.Writer
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	return &OrderEventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type orderEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (p *OrderEventProducer) publish(ctx context.Context, key uuid.UUID, typ string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(orderEnvelope{Type: typ, Payload: payload})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key.String()),
		Value: value,
	})
}

func (p *OrderEventProducer) PublishOrderCreated(ctx context.Context, e service.OrderEvent) error {
	return p.publish(ctx, e.OrderID, "order.created", e)
}

func (p *OrderEventProducer) PublishOrderUpdated(ctx context.Context, e service.OrderEvent) error {
	return p.publish(ctx, e.OrderID, "order.updated", e)
}

func (p *OrderEventProducer) PublishOrderDeleted(ctx context.Context, e service.OrderDeletedEvent) error {
	return p.publish(ctx, e.OrderID, "order.deleted", e)
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
