package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := &SMTPSender{From: "Club <no-reply@club.test>"}
	m := Activation("https://club.test/", "ana@club.test", "Ana", "tok en")
	m.Subject = "Réinitialiser"

	msg, err := s.build(m)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.String()
	for _, want := range []string{"no-reply@club.test", "<ana@club.test>", "Subject: =?UTF-8?", "multipart/alternative"} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if strings.Contains(raw, "Subject: Réinitialiser") {
		t.Error("subject not encoded")
	}

	if _, err := s.build(Message{To: "not an address"}); err == nil {
		t.Error("bad recipient accepted")
	}
}

func TestSendHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	// 接受连接但从不发 220
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port
	s := &SMTPSender{Host: "127.0.0.1", Port: port, From: "no-reply@club.test", Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Send(ctx, Message{To: "ana@club.test", Subject: "s", Text: "t"}) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("send succeeded against a silent server")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("send ignored the context deadline")
	}
}

func TestTemplatesEscapeNames(t *testing.T) {
	m := PasswordReset("https://club.test", "x@club.test", `<img src=x onerror="alert(1)">`, "abc")
	if strings.Contains(m.HTML, "<img") {
		t.Fatalf("name not escaped: %s", m.HTML)
	}
	if !strings.Contains(m.HTML, "&lt;img") || !strings.Contains(m.HTML, `href="https://club.test/reset-password?token=abc"`) {
		t.Errorf("html = %s", m.HTML)
	}
	a := Activation("https://club.test/", "ana@club.test", "Ana", "tok en")
	if !strings.Contains(a.Text, "https://club.test/inscription?token=tok+en") || !strings.Contains(a.HTML, "Hello Ana,") {
		t.Errorf("activation = %+v", a)
	}
}

func TestLinks(t *testing.T) {
	if got := ResetLink("http://front", "abc"); got != "http://front/reset-password?token=abc" {
		t.Errorf("reset link = %s", got)
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
	done chan struct{}
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

func TestAsyncOutboxLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := &fakeSender{err: errors.New("smtp down"), done: make(chan struct{}, 1)}
	o := NewAsyncOutbox(f, zap.New(core), 1)

	if err := o.Enqueue(context.Background(), Message{To: "x@club.test", Subject: "s"}); err != nil {
		t.Fatalf("enqueue must not fail: %v", err)
	}
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender not called")
	}
	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("mail send failed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failure not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDecode(t *testing.T) {
	f := &fakeSender{done: make(chan struct{}, 1)}
	h := Decode(f)
	if err := h(context.Background(), []byte(`{"to":"p@club.test","subject":"hi","text":"body"}`)); err != nil {
		t.Fatal(err)
	}
	if len(f.sent) != 1 || f.sent[0].Subject != "hi" {
		t.Fatalf("sent = %+v", f.sent)
	}
	if err := h(context.Background(), []byte(`{"subject":"x"}`)); err == nil {
		t.Error("message without recipient accepted")
	}
	if err := h(context.Background(), []byte(`not json`)); err == nil {
		t.Error("garbage accepted")
	}
}
