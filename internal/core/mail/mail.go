package mail

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	gomail "github.com/wneessen/go-mail"

	"club-api/internal/core/config"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

var mailSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "mail_sent_total", Help: "Outbound mail by result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(mailSent) }

func observe(err error) {
	if err != nil {
		mailSent.WithLabelValues("error").Inc()
		return
	}
	mailSent.WithLabelValues("ok").Inc()
}

// SMTPSender STARTTLS 能用就用；User 为空时不认证（本地 mailhog 之类）
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

func NewSMTPSender(c config.Mail) *SMTPSender {
	return &SMTPSender{Host: c.Host, Port: c.Port, User: c.User, Password: c.Password, From: c.From, Timeout: 15 * time.Second}
}

// dial 连接继承 ctx 的截止时间，服务端不打招呼也不会一直挂着
func dial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithPort(s.Port),
		gomail.WithDialContextFunc(dial),
	}
	if s.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.Timeout))
	}
	if s.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.User),
			gomail.WithPassword(s.Password),
		)
	}
	return gomail.NewClient(s.Host, opts...)
}

// build 头部按 RFC 2047 编码，有 HTML 时为 multipart/alternative
func (s *SMTPSender) build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", s.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := s.build(m)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	err = c.DialAndSendWithContext(ctx, msg)
	observe(err)
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}
