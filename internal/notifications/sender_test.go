package notifications

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"watchpost/internal/config"
	"watchpost/internal/services"
	"watchpost/internal/testsupport"
)

func writeStill(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "2026-10-15-08-15-57.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8jpeg-bytes\xff\xd9"), 0o644); err != nil {
		t.Fatalf("write still: %v", err)
	}
	return path
}

func TestNewSenderSelectsTransport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, ok := NewSender(cfg).(noopSender); !ok {
		t.Fatal("expected noop sender for transport none")
	}
	if err := NewSender(cfg).Send(context.Background(), Message{Subject: "x"}); err != nil {
		t.Fatalf("noop send: %v", err)
	}
	cfg.Notify.Transport = config.TransportNtfy
	if _, ok := NewSender(cfg).(*ntfySender); !ok {
		t.Fatal("expected ntfy sender")
	}
	cfg.Notify.Transport = config.TransportSMTP
	if _, ok := NewSender(cfg).(*smtpSender); !ok {
		t.Fatal("expected smtp sender")
	}
}

func TestMotionMessage(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 15, 57, 0, time.Local)
	msg := MotionMessage("", "/n/still.jpg", at)
	if msg.Subject != "Motion detected" || msg.Body != "Motion detected at 2026-10-15 08:15:57" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.AttachmentName() != "still.jpg" {
		t.Fatalf("unexpected attachment name %q", msg.AttachmentName())
	}
}

func TestNtfyUploadsAttachment(t *testing.T) {
	still := writeStill(t)
	var captured struct {
		method, title, filename, message string
		body                             []byte
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.title = r.Header.Get("Title")
		captured.filename = r.Header.Get("Filename")
		captured.message = r.Header.Get("Message")
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	msg := MotionMessage("Porch", still, time.Now())
	if err := NewSender(cfg).Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if captured.method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", captured.method)
	}
	if captured.title != "Porch" || captured.filename != "2026-10-15-08-15-57.jpg" {
		t.Fatalf("unexpected headers %+v", captured)
	}
	if !strings.HasPrefix(captured.message, "Motion detected at") {
		t.Fatalf("unexpected message header %q", captured.message)
	}
	want, _ := os.ReadFile(still)
	if string(captured.body) != string(want) {
		t.Fatal("attachment body mismatch")
	}
}

func TestNtfyTextOnly(t *testing.T) {
	var method, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	if err := NewSender(cfg).Send(context.Background(), Message{Subject: "Test", Body: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if method != http.MethodPost || body != "hello" {
		t.Fatalf("unexpected request %s %q", method, body)
	}
}

func TestNtfyErrorStatusIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	err := NewSender(cfg).Send(context.Background(), Message{Body: "x"})
	if !errors.Is(err, services.ErrTransport) || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected transport failure with status, got %v", err)
	}
}

func TestNtfyMissingAttachment(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic("http://127.0.0.1:1/topic"))
	err := NewSender(cfg).Send(context.Background(), Message{Attachment: filepath.Join(t.TempDir(), "gone.jpg")})
	if !errors.Is(err, services.ErrTransientIO) {
		t.Fatalf("expected transient io error, got %v", err)
	}
}

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	listener net.Listener
	mu       sync.Mutex
	auth     string
	from     string
	rcpts    []string
	data     string
	ehlo     []string
	done     chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	return startFakeSMTPWithExtensions(t, "AUTH PLAIN")
}

func startFakeSMTPWithExtensions(t *testing.T, extensions ...string) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{listener: ln, ehlo: extensions, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }
	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		f.mu.Lock()
		switch verb {
		case "EHLO", "HELO":
			lines := append([]string{"localhost"}, f.ehlo...)
			for i, ext := range lines {
				if i == len(lines)-1 {
					reply("250 " + ext)
				} else {
					reply("250-" + ext)
				}
			}
		case "AUTH":
			f.auth = line
			reply("235 ok")
		case "MAIL":
			f.from = line
			reply("250 ok")
		case "RCPT":
			f.rcpts = append(f.rcpts, line)
			reply("250 ok")
		case "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					f.mu.Unlock()
					return
				}
				if dl == ".\r\n" {
					break
				}
				b.WriteString(dl)
			}
			f.data = b.String()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			f.mu.Unlock()
			return
		default:
			reply("250 ok")
		}
		f.mu.Unlock()
	}
}

func TestSMTPSendsMultipartWithAttachment(t *testing.T) {
	server := startFakeSMTP(t)
	host, port, _ := net.SplitHostPort(server.listener.Addr().String())
	portNum, _ := strconv.Atoi(port)

	cfg := testsupport.NewConfig(t)
	cfg.Notify.Transport = config.TransportSMTP
	cfg.Notify.SMTP = config.SMTP{
		Host: host, Port: portNum, User: "cam", Password: "secret",
		From: "cam@example.com", To: []string{"a@example.com", "b@example.com"}, TimeoutSeconds: 5,
	}
	still := writeStill(t)
	if err := NewSender(cfg).Send(context.Background(), MotionMessage("PIR Image", still, time.Now())); err != nil {
		t.Fatalf("send: %v", err)
	}
	<-server.done

	server.mu.Lock()
	defer server.mu.Unlock()
	wantAuth := "AUTH PLAIN " + base64.StdEncoding.EncodeToString([]byte("\x00cam\x00secret"))
	if server.auth != wantAuth {
		t.Fatalf("unexpected auth %q", server.auth)
	}
	if !strings.HasPrefix(server.from, "MAIL FROM:<cam@example.com>") {
		t.Fatalf("unexpected sender %q", server.from)
	}
	if len(server.rcpts) != 2 {
		t.Fatalf("expected two recipients, got %v", server.rcpts)
	}
	for _, want := range []string{
		"Subject: PIR Image",
		"multipart/mixed",
		`filename=2026-10-15-08-15-57.jpg`,
		base64.StdEncoding.EncodeToString([]byte("\xff\xd8jpeg-bytes\xff\xd9")),
	} {
		if !strings.Contains(server.data, want) {
			t.Fatalf("message missing %q:\n%s", want, server.data)
		}
	}
}

func TestSMTPConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	sender := newSMTPSender(config.SMTP{Host: "127.0.0.1", Port: addr.Port, From: "a@b", To: []string{"c@d"}, TimeoutSeconds: 1})
	err = sender.Send(context.Background(), Message{Subject: "x", Body: "y"})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestSMTPRequiresAuthWhenUserConfigured(t *testing.T) {
	server := startFakeSMTPWithExtensions(t, "8BITMIME")
	host, port, _ := net.SplitHostPort(server.listener.Addr().String())
	portNum, _ := strconv.Atoi(port)

	sender := newSMTPSender(config.SMTP{
		Host: host, Port: portNum, User: "cam", Password: "secret",
		From: "cam@example.com", To: []string{"a@example.com"}, TimeoutSeconds: 5,
	})
	err := sender.Send(context.Background(), Message{Subject: "x", Body: "y"})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "AUTH") {
		t.Fatalf("error should name the missing extension: %v", err)
	}
	<-server.done

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.from != "" || server.data != "" {
		t.Fatalf("message must not be sent unauthenticated (from=%q)", server.from)
	}
}

func TestSMTPWithoutUserSkipsAuth(t *testing.T) {
	server := startFakeSMTPWithExtensions(t)
	host, port, _ := net.SplitHostPort(server.listener.Addr().String())
	portNum, _ := strconv.Atoi(port)

	sender := newSMTPSender(config.SMTP{
		Host: host, Port: portNum, From: "cam@example.com", To: []string{"a@example.com"}, TimeoutSeconds: 5,
	})
	if err := sender.Send(context.Background(), Message{Subject: "x", Body: "y"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	<-server.done

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.auth != "" {
		t.Fatalf("unexpected auth %q", server.auth)
	}
	if !strings.HasPrefix(server.from, "MAIL FROM:<cam@example.com>") {
		t.Fatalf("unexpected sender %q", server.from)
	}
}
