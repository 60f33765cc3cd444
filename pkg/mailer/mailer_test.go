package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/vastralabs/vastra-backend/pkg/config"
)

func TestNewRequiresHost(t *testing.T) {
	t.Parallel()

	if _, err := New(config.SMTPConfig{}, nil); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestSendOrderConfirmationBuildsMessage(t *testing.T) {
	t.Parallel()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := &smtpMailer{
		addr: "smtp.vastra.in:587",
		from: "orders@vastra.in",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		},
	}

	err := m.SendOrderConfirmation(context.Background(), OrderConfirmationData{
		To:            "priya@example.com",
		CustomerName:  "Priya",
		OrderNumber:   "VAS-2025-000042",
		ItemCount:     3,
		Subtotal:      "₹2400.00",
		DiscountTotal: "₹300.00",
		Total:         "₹2100.00",
		CouponCode:    "DIWALI20",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAddr != "smtp.vastra.in:587" || gotFrom != "orders@vastra.in" {
		t.Fatalf("unexpected addr/from: %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "priya@example.com" {
		t.Fatalf("unexpected recipients: %v", gotTo)
	}
	message := string(gotMsg)
	for _, sub := range []string{"VAS-2025-000042", "DIWALI20", "₹2100.00", "Subject:"} {
		if !strings.Contains(message, sub) {
			t.Errorf("message missing %q", sub)
		}
	}
}

func TestSendOrderConfirmationOmitsCouponLineWhenUnused(t *testing.T) {
	t.Parallel()

	var gotMsg []byte
	m := &smtpMailer{
		addr: "smtp.vastra.in:587",
		from: "orders@vastra.in",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotMsg = msg
			return nil
		},
	}

	err := m.SendOrderConfirmation(context.Background(), OrderConfirmationData{
		To:           "priya@example.com",
		CustomerName: "Priya",
		OrderNumber:  "VAS-2025-000043",
		ItemCount:    1,
		Subtotal:     "₹800.00",
		Total:        "₹800.00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(gotMsg), "Coupon") {
		t.Fatal("coupon line should be absent when no code applied")
	}
}

func TestSendOrderConfirmationPropagatesFailure(t *testing.T) {
	t.Parallel()

	m := &smtpMailer{
		addr: "smtp.vastra.in:587",
		from: "orders@vastra.in",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			return errors.New("connection refused")
		},
	}

	err := m.SendOrderConfirmation(context.Background(), OrderConfirmationData{To: "priya@example.com"})
	if err == nil {
		t.Fatal("expected error")
	}
}
