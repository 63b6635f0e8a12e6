package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/uptimecore/internal/config"
	"github.com/hamed0406/uptimecore/internal/domain"
)

// Email sends over SMTP when a host is configured. Without one every send
// succeeds without leaving the process.
type Email struct {
	SMTP config.SMTP
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg config.SMTP) *Email {
	return &Email{SMTP: cfg, send: smtp.SendMail}
}

func (e *Email) Type() domain.ContactType { return domain.ContactEmail }

func (e *Email) Configured() bool { return e.SMTP.Host != "" }

func (e *Email) Send(ctx context.Context, c domain.Contact, msg Message) error {
	if c.Email == "" {
		return errors.New("email address not set")
	}
	if !e.Configured() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", e.SMTP.From, c.Email, msg.Title)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "%s\n\nMonitor: %s\nStatus: %s\nResponse time: %s\n",
		msg.Body, msg.MonitorName, msg.StatusLabel(), msg.responseTime())
	if msg.MonitorURL != "" {
		fmt.Fprintf(&b, "URL: %s\n", msg.MonitorURL)
	}
	fmt.Fprintf(&b, "Time: %s\n", msg.Timestamp.Format(time.RFC3339))

	var auth smtp.Auth
	if e.SMTP.Username != "" {
		auth = smtp.PlainAuth("", e.SMTP.Username, e.SMTP.Password, e.SMTP.Host)
	}
	addr := net.JoinHostPort(e.SMTP.Host, strconv.Itoa(e.SMTP.Port))
	return e.send(addr, auth, e.SMTP.From, []string{c.Email}, []byte(b.String()))
}
