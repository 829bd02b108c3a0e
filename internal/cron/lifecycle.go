package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// Heartbeat is the on-disk process status file (spec §6
// data/david_status.json).
type Heartbeat struct {
	Online      bool      `json:"online"`
	TimestampUTC time.Time `json:"timestamp_utc"`
	Status      string    `json:"status"`
}

// ReadHeartbeat loads the heartbeat file, returning a zero Heartbeat and no
// error if the file does not exist — a fresh boot with no prior state.
func ReadHeartbeat(path string) (Heartbeat, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Heartbeat{}, nil
	}
	if err != nil {
		return Heartbeat{}, fmt.Errorf("read heartbeat: %w", err)
	}
	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return Heartbeat{}, fmt.Errorf("parse heartbeat: %w", err)
	}
	return hb, nil
}

// WriteHeartbeat atomically writes a heartbeat file (write tmpfile, rename)
// so a concurrent reader never observes a partial write.
func WriteHeartbeat(path string, hb Heartbeat) error {
	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write heartbeat tmpfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename heartbeat tmpfile: %w", err)
	}
	return nil
}

// ShouldAnnounceOnline reports whether boot should emit an "online"
// notification: the previous state is absent, offline, or stale by more
// than gapThreshold — this suppresses notification spam across a
// crash-restart loop.
func ShouldAnnounceOnline(prev Heartbeat, now time.Time, gapThreshold time.Duration) bool {
	if !prev.Online {
		return true
	}
	return now.Sub(prev.TimestampUTC) > gapThreshold
}

// notifySocket wraps the systemd sd_notify protocol: a newline-free
// key=value datagram written to the unix socket named by $NOTIFY_SOCKET.
// No library in this codebase's dependency stack wraps this — it is a
// three-line datagram write, not worth a third-party client for.
type notifySocket struct {
	conn net.Conn
}

// newNotifySocket dials $NOTIFY_SOCKET if present. A nil *notifySocket (no
// error) means the environment has no supervisor socket — every subsequent
// call becomes a no-op, per spec §6 ("optional — if socket absent, pings
// are no-ops").
func newNotifySocket() (*notifySocket, error) {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return nil, nil
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("dial NOTIFY_SOCKET: %w", err)
	}
	return &notifySocket{conn: conn}, nil
}

func (n *notifySocket) send(state string) {
	if n == nil || n.conn == nil {
		return
	}
	_, _ = n.conn.Write([]byte(state))
}

// Supervisor sends READY=1 once and WATCHDOG=1 on an interval, and
// overwrites the heartbeat file on every watchdog ping (spec §4.3 step 6).
type Supervisor struct {
	sock          *notifySocket
	heartbeatPath string
	logger        *zap.Logger

	cancel context.CancelFunc
	wg     func()
}

// NewSupervisor creates a Supervisor. heartbeatPath is the file overwritten
// on every watchdog tick.
func NewSupervisor(heartbeatPath string, logger *zap.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sock, err := newNotifySocket()
	if err != nil {
		return nil, err
	}
	return &Supervisor{sock: sock, heartbeatPath: heartbeatPath, logger: logger}, nil
}

// Ready announces READY=1 and writes the initial online heartbeat.
func (s *Supervisor) Ready(ctx context.Context, status string) error {
	s.sock.send("READY=1")
	return WriteHeartbeat(s.heartbeatPath, Heartbeat{Online: true, TimestampUTC: time.Now().UTC(), Status: status})
}

// StartWatchdog begins emitting WATCHDOG=1 pings every interval, each
// refreshing the heartbeat file's timestamp. Stop via the returned
// context.CancelFunc.
func (s *Supervisor) StartWatchdog(ctx context.Context, interval time.Duration, status string) context.CancelFunc {
	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.sock.send("WATCHDOG=1")
				if err := WriteHeartbeat(s.heartbeatPath, Heartbeat{Online: true, TimestampUTC: time.Now().UTC(), Status: status}); err != nil {
					s.logger.Warn("write heartbeat", zap.Error(err))
				}
			}
		}
	}()
	return cancel
}

// Offline writes a final offline heartbeat during shutdown.
func (s *Supervisor) Offline(status string) error {
	return WriteHeartbeat(s.heartbeatPath, Heartbeat{Online: false, TimestampUTC: time.Now().UTC(), Status: status})
}
