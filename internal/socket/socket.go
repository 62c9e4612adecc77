// Package socket provides the Unix domain socket projsetd serves a project
// directory on, and the dialing side remote discovery uses to reach it.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DaemonName is the process name of the project file daemon.
const DaemonName = "projsetd"

var (
	// ErrAddressInUse is returned by Listen when another daemon answers on
	// the path.
	ErrAddressInUse = errors.New("address already in use")
	// ErrNotRunning is returned by Connect once it stops waiting for projsetd.
	ErrNotRunning = errors.New("projsetd not running")
	// ErrNotSocket is returned by Listen when the path holds something other
	// than a socket. Listen never removes such a file.
	ErrNotSocket = errors.New("path exists and is not a socket")
)

// Config controls how long Connect waits for projsetd and the mode of the
// socket file Listen creates.
type Config struct {
	// StartupTimeout bounds the total time Connect keeps retrying.
	StartupTimeout time.Duration
	RetryInterval  time.Duration
	// Grace is how long Connect retries without asking the process checker,
	// covering a daemon started just before the client.
	Grace time.Duration
	// Permissions of the socket file. The daemon serves project files, so
	// the default only admits the owning user.
	Permissions os.FileMode
	// ProcessName is matched case-insensitively against running executables.
	ProcessName string
}

// DefaultConfig waits up to 5s for "projsetd", retrying every 250ms.
func DefaultConfig() *Config {
	return &Config{
		StartupTimeout: 5 * time.Second,
		RetryInterval:  250 * time.Millisecond,
		Grace:          2 * time.Second,
		Permissions:    0o600,
		ProcessName:    DaemonName,
	}
}

// Socket listens on and connects to the projsetd socket.
type Socket struct {
	cfg     *Config
	checker ProcessChecker
	created time.Time
}

// New returns a Socket using cfg, or DefaultConfig() when cfg is nil.
// checker decides whether a refused Connect is worth retrying.
func New(cfg *Config, checker ProcessChecker) *Socket {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Socket{cfg: cfg, checker: checker, created: time.Now()}
}

// Listen listens on path with the default config.
func Listen(path string) (net.Listener, error) {
	return New(nil, &DefaultProcessChecker{}).Listen(path)
}

// DialFunc adapts Connect to http.Transport.DialContext. The network and
// address of the request are ignored.
func (s *Socket) DialFunc(path string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, _, _ string) (net.Conn, error) {
		return s.Connect(ctx, path)
	}
}

// Listen creates the socket at path. A stale socket left by a dead daemon
// is replaced; a live one yields ErrAddressInUse.
func (s *Socket) Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := s.clearStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("creating socket listener: %w", err)
	}
	if err := os.Chmod(path, s.cfg.Permissions); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	return ln, nil
}

func (s *Socket) clearStale(path string) error {
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking socket path: %w", err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s", ErrAddressInUse, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}

// Connect dials path. While projsetd may still be starting (inside the
// grace period, or its process is running) a refused dial is retried until
// the startup timeout, after which ErrNotRunning is returned.
func (s *Socket) Connect(ctx context.Context, path string) (net.Conn, error) {
	deadline := time.Now().Add(s.cfg.StartupTimeout)
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !s.waiting(deadline) {
			return nil, fmt.Errorf("%w at %s: %v", ErrNotRunning, path, err)
		}

		t := time.NewTimer(s.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Socket) waiting(deadline time.Time) bool {
	if time.Now().After(deadline) {
		return false
	}
	if time.Since(s.created) < s.cfg.Grace {
		return true
	}
	return s.checker != nil && s.checker.IsRunning(s.cfg.ProcessName)
}
