package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"club-api/internal/core/mail"
)

// Publisher 把邮件写入持久队列，由 cmd/mailer 消费；实现 mail.Outbox
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, log: log}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) Enqueue(ctx context.Context, m mail.Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// 连接断开时重拨一次
	for attempt := 0; attempt < 2; attempt++ {
		ch, err := p.channel()
		if err != nil {
			return err
		}
		if err = ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err == nil {
			return nil
		}
		p.log.Warn("amqp publish failed", zap.Int("attempt", attempt+1), zap.Error(err))
		_ = ch.Close()
		p.ch = nil
	}
	return fmt.Errorf("amqp publish to %s failed", p.queue)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
