package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/services"
)

type smtpSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
	timeout  time.Duration
	now      func() time.Time
}

func newSMTPSender(cfg config.SMTP) *smtpSender {
	return &smtpSender{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		to:       append([]string(nil), cfg.To...),
		timeout:  seconds(cfg.TimeoutSeconds, 30*time.Second),
		now:      time.Now,
	}
}

// Send delivers msg in a single SMTP session, upgrading with STARTTLS when the
// server offers it. With a user configured the session must authenticate.
func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	payload, err := s.compose(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "connect "+addr, err)
	}
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return services.Wrap(services.ErrTransport, "notify", "smtp", "greeting", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return services.Wrap(services.ErrTransport, "notify", "smtp", "starttls", err)
		}
	}
	// PlainAuth itself refuses to send credentials over an unencrypted
	// connection to anything but loopback.
	if s.user != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return services.Wrap(services.ErrTransport, "notify", "smtp", "authenticate: server does not offer AUTH; refusing to send unauthenticated", nil)
		}
		if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return services.Wrap(services.ErrTransport, "notify", "smtp", "authenticate", err)
		}
	}
	if err := client.Mail(s.from); err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "mail from", err)
	}
	for _, rcpt := range s.to {
		if err := client.Rcpt(rcpt); err != nil {
			return services.Wrap(services.ErrTransport, "notify", "smtp", "rcpt "+rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "data", err)
	}
	if _, err := w.Write(payload); err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "write message", err)
	}
	if err := w.Close(); err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "finish message", err)
	}
	if err := client.Quit(); err != nil {
		return services.Wrap(services.ErrTransport, "notify", "smtp", "quit", err)
	}
	return nil
}

func (s *smtpSender) compose(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(key, value string) { fmt.Fprintf(&buf, "%s: %s\r\n", key, value) }
	header("From", s.from)
	header("To", strings.Join(s.to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	_, _ = text.Write([]byte(msg.Body + "\r\n"))

	if msg.Attachment != "" {
		data, err := os.ReadFile(msg.Attachment)
		if err != nil {
			return nil, services.Wrap(services.ErrTransientIO, "notify", "smtp", "read attachment", err)
		}
		name := msg.AttachmentName()
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType("image/jpeg", map[string]string{"name": name})},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		})
		if err != nil {
			return nil, err
		}
		writeBase64Lines(part, data)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Lines wraps encoded output at 76 columns.
func writeBase64Lines(w io.Writer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		_, _ = w.Write([]byte(encoded[:76] + "\r\n"))
		encoded = encoded[76:]
	}
	if encoded != "" {
		_, _ = w.Write([]byte(encoded + "\r\n"))
	}
}
