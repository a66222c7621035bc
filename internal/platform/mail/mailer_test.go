package mail

import (
	"context"
	"errors"
	"testing"

	gomail "gopkg.in/gomail.v2"
)

type stubDialer struct {
	sent []*gomail.Message
	err  error
}

func (s *stubDialer) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

func TestSMTPSenderSendsMessage(t *testing.T) {
	dialer := &stubDialer{}
	sender := &SMTPSender{dialer: dialer, fromName: "PrimeMart", fromAddr: "orders@primemart.com"}

	err := sender.Send(context.Background(), Message{
		To:      "shopper@example.com",
		Subject: "Order Confirmation",
		HTML:    "<p>Thanks for your order.</p>",
		Attachments: []Attachment{{
			Filename:    "INV-0001.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		}},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(dialer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(dialer.sent))
	}
	msg := dialer.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "shopper@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Order Confirmation" {
		t.Fatalf("unexpected Subject header %v", got)
	}
}

func TestSMTPSenderRequiresRecipient(t *testing.T) {
	sender := &SMTPSender{dialer: &stubDialer{}, fromAddr: "orders@primemart.com"}
	if err := sender.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

func TestSMTPSenderHonoursContextCancellation(t *testing.T) {
	dialer := &stubDialer{}
	sender := &SMTPSender{dialer: dialer, fromAddr: "orders@primemart.com"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, Message{To: "shopper@example.com"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(dialer.sent) != 0 {
		t.Fatalf("expected no messages after cancellation")
	}
}

func TestNewSMTPSenderValidation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{Port: 587, Username: "u"}); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Port: 587}); err == nil {
		t.Fatalf("expected error for missing from address")
	}
	sender, err := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Port: 587, Username: "orders@primemart.com"})
	if err != nil {
		t.Fatalf("NewSMTPSender returned error: %v", err)
	}
	if sender.fromAddr != "orders@primemart.com" {
		t.Fatalf("expected username fallback for from address, got %s", sender.fromAddr)
	}
}
