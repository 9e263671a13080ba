package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const defaultConnectTimeout = 15 * time.Second

// Options configure a socket.io connection.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
	// ConnectTimeout bounds the handshake. Zero means 15s.
	ConnectTimeout time.Duration
}

var _ Notifier = (*SocketIO)(nil)

// SocketIO emits progress events over a socket.io connection.
type SocketIO struct {
	runID string
	emit  func(event string, payload any)
	close func()
}

// DialSocketIO connects to rawURL and waits for the handshake. The URL path
// is used as the socket.io path.
func DialSocketIO(ctx context.Context, rawURL, runID string, o Options) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notify_url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) == 0 {
			connected <- errors.New("connect_error")
			return
		}
		err, ok := errs[0].(error)
		if !ok {
			err = fmt.Errorf("%v", errs[0])
		}
		connected <- err
	})

	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	logger.Debug("Connecting notifier...")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	logger.Info("Notifier connected.", "sid", io.Id())
	return &SocketIO{
		runID: runID,
		emit:  func(event string, payload any) { io.Emit(event, payload) },
		close: func() { io.Disconnect() },
	}, nil
}

func (s *SocketIO) ModuleStarted(_ context.Context, m discovery.Module) {
	s.emit(EventModuleStarted, map[string]any{"run_id": s.runID, "module": m.Name})
}

func (s *SocketIO) ModuleFinished(_ context.Context, res builder.ModuleResult) {
	s.emit(EventModuleFinished, moduleFinishedPayload(s.runID, res))
}

func (s *SocketIO) PhaseFinished(phase string, err error, elapsed time.Duration) {
	s.emit(EventPhaseFinished, phaseFinishedPayload(s.runID, phase, err, elapsed))
}

func (s *SocketIO) RunFinished(command string, exitCode int) {
	s.emit(EventRunFinished, map[string]any{"run_id": s.runID, "command": command, "exit_code": exitCode})
}

// Close disconnects the socket.
func (s *SocketIO) Close() error {
	s.close()
	return nil
}
