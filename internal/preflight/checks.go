package preflight

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"watchpost/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGPIO verifies the sysfs GPIO tree is present and the export file is
// writable, or that the line is already exported.
func CheckGPIO(root string, line int) Result {
	const name = "GPIO"
	lineDir := filepath.Join(root, "gpio"+strconv.Itoa(line))
	if _, err := os.Stat(lineDir); err == nil {
		if err := unix.Access(filepath.Join(lineDir, "value"), unix.R_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s exported but unreadable (%v)", lineDir, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("line %d exported", line)}
	}
	export := filepath.Join(root, "export")
	if err := unix.Access(export, unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not writable (%v)", export, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("line %d can be exported", line)}
}

// CheckTransport verifies that the configured notification endpoint accepts
// TCP connections. It does not authenticate or send anything.
func CheckTransport(ctx context.Context, cfg config.Notify) Result {
	const name = "Notifications"
	var addr string
	switch cfg.Transport {
	case config.TransportSMTP:
		addr = net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port))
	case config.TransportNtfy:
		u, err := url.Parse(cfg.Ntfy.Topic)
		if err != nil || u.Host == "" {
			return Result{Name: name, Detail: fmt.Sprintf("invalid ntfy topic %q", cfg.Ntfy.Topic)}
		}
		addr = u.Host
		if u.Port() == "" {
			port := "443"
			if u.Scheme == "http" {
				port = "80"
			}
			addr = net.JoinHostPort(u.Hostname(), port)
		}
	default:
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s %s unreachable (%v)", cfg.Transport, addr, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s reachable", cfg.Transport, addr)}
}
