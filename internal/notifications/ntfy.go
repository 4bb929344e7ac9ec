package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/services"
)

type ntfySender struct {
	endpoint string
	client   *http.Client
}

func newNtfySender(cfg config.Ntfy) *ntfySender {
	return &ntfySender{
		endpoint: cfg.Topic,
		client:   &http.Client{Timeout: seconds(cfg.RequestTimeout, 10*time.Second)},
	}
}

// Send uploads the attachment with PUT, carrying the text in headers, or
// posts the body alone when there is nothing attached.
func (n *ntfySender) Send(ctx context.Context, msg Message) error {
	var (
		method = http.MethodPost
		body   io.Reader
	)
	if msg.Attachment != "" {
		file, err := os.Open(msg.Attachment)
		if err != nil {
			return services.Wrap(services.ErrTransientIO, "notify", "ntfy", "open attachment", err)
		}
		defer file.Close()
		method = http.MethodPut
		body = file
	} else {
		body = strings.NewReader(msg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notify", "ntfy", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if msg.Subject != "" {
		req.Header.Set("Title", msg.Subject)
	}
	req.Header.Set("Tags", "watchpost,motion")
	if msg.Attachment != "" {
		req.Header.Set("Filename", msg.AttachmentName())
		if msg.Body != "" {
			req.Header.Set("Message", msg.Body)
		}
	} else {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "notify", "ntfy", "send notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrTransport, "notify", "ntfy",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(text))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
