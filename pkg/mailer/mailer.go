package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/vastralabs/vastra-backend/pkg/config"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

// OrderConfirmationData carries everything the confirmation template needs.
type OrderConfirmationData struct {
	To            string
	CustomerName  string
	OrderNumber   string
	ItemCount     int
	Subtotal      string
	DiscountTotal string
	Total         string
	CouponCode    string
}

// Mailer sends transactional email for the storefront.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
	send sendFunc
	logg *logger.Logger
}

// New builds an SMTP-backed mailer from the configured host/credentials.
func New(cfg config.SMTPConfig, logg *logger.Logger) (Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.DefaultFrom,
		send: smtp.SendMail,
		logg: logg,
	}, nil
}

func (m *smtpMailer) SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error {
	if strings.TrimSpace(data.To) == "" {
		return errors.New("recipient is required")
	}

	subject := fmt.Sprintf("Your Vastra order %s is confirmed", data.OrderNumber)
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\r\n\r\n", data.CustomerName)
	fmt.Fprintf(&body, "Thanks for shopping with Vastra. Order %s (%d items) is confirmed.\r\n\r\n", data.OrderNumber, data.ItemCount)
	fmt.Fprintf(&body, "Subtotal: %s\r\n", data.Subtotal)
	if data.CouponCode != "" {
		fmt.Fprintf(&body, "Coupon %s: -%s\r\n", data.CouponCode, data.DiscountTotal)
	}
	fmt.Fprintf(&body, "Total: %s\r\n\r\n", data.Total)
	body.WriteString("We will email you again once your order ships.\r\n")

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, data.To, subject, body.String()))

	if err := m.send(m.addr, m.auth, m.from, []string{data.To}, msg); err != nil {
		if m.logg != nil {
			logCtx := m.logg.WithFields(ctx, map[string]any{
				"to":           data.To,
				"order_number": data.OrderNumber,
			})
			m.logg.Error(logCtx, "failed to send order confirmation", err)
		}
		return fmt.Errorf("sending order confirmation: %w", err)
	}
	return nil
}
