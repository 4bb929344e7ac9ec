package notifications

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"watchpost/internal/config"
)

const userAgent = "watchpost/0.1.0"

// Message is one notification. Attachment is an optional file path.
type Message struct {
	Subject    string
	Body       string
	Attachment string
}

// AttachmentName is the base name used when the attachment is uploaded.
func (m Message) AttachmentName() string {
	if strings.TrimSpace(m.Attachment) == "" {
		return ""
	}
	return filepath.Base(m.Attachment)
}

// Sender delivers a message exactly once. It does not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the transport selected by notify.transport.
func NewSender(cfg *config.Config) Sender {
	switch cfg.Notify.Transport {
	case config.TransportSMTP:
		return newSMTPSender(cfg.Notify.SMTP)
	case config.TransportNtfy:
		return newNtfySender(cfg.Notify.Ntfy)
	default:
		return noopSender{}
	}
}

// Describe returns a short human label for the configured transport.
func Describe(cfg *config.Config) string {
	switch cfg.Notify.Transport {
	case config.TransportSMTP:
		return "smtp " + cfg.Notify.SMTP.Host
	case config.TransportNtfy:
		return "ntfy " + cfg.Notify.Ntfy.Topic
	default:
		return "disabled"
	}
}

// MotionMessage builds the message sent for a still taken at takenAt.
func MotionMessage(subject, still string, takenAt time.Time) Message {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Motion detected"
	}
	return Message{
		Subject:    subject,
		Body:       "Motion detected at " + takenAt.Format("2006-01-02 15:04:05"),
		Attachment: still,
	}
}

type noopSender struct{}

func (noopSender) Send(context.Context, Message) error { return nil }

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
