package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Outbox 事务提交后投递邮件；失败只记日志，不影响请求结果
type Outbox interface {
	Enqueue(ctx context.Context, m Message) error
}

// AsyncOutbox 进程内异步发送，并发数受限
type AsyncOutbox struct {
	sender  Sender
	log     *zap.Logger
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewAsyncOutbox(s Sender, log *zap.Logger, parallel int64) *AsyncOutbox {
	if parallel <= 0 {
		parallel = 4
	}
	return &AsyncOutbox{sender: s, log: log, sem: semaphore.NewWeighted(parallel), timeout: 30 * time.Second}
}

func (o *AsyncOutbox) Enqueue(_ context.Context, m Message) error {
	go func() {
		// 请求 ctx 在响应后就取消了，这里用独立 ctx
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if err := o.sem.Acquire(ctx, 1); err != nil {
			o.log.Warn("mail dropped", zap.String("to", m.To), zap.Error(err))
			return
		}
		defer o.sem.Release(1)
		if err := o.sender.Send(ctx, m); err != nil {
			o.log.Error("mail send failed", zap.String("to", m.To), zap.String("subject", m.Subject), zap.Error(err))
		}
	}()
	return nil
}

// Deliver 投递失败记日志后吞掉
func Deliver(ctx context.Context, o Outbox, log *zap.Logger, m Message) {
	if o == nil {
		log.Warn("no mail outbox configured", zap.String("to", m.To), zap.String("subject", m.Subject))
		return
	}
	if err := o.Enqueue(ctx, m); err != nil {
		log.Error("mail enqueue failed", zap.String("to", m.To), zap.Error(err))
	}
}

// Decode 队列消费端：JSON 消息体直接交给 Sender
func Decode(s Sender) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		var m Message
		if err := json.Unmarshal(body, &m); err != nil {
			return fmt.Errorf("decode mail: %w", err)
		}
		if m.To == "" {
			return errors.New("decode mail: empty recipient")
		}
		return s.Send(ctx, m)
	}
}
