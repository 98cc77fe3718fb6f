// Package link owns the WebSocket connection to the device. It renders
// inbound status frames onto a view and sends command literals.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmorsell/microrail-remote/internal/status"
	"github.com/vmorsell/microrail-remote/internal/ui"
	"github.com/vmorsell/microrail-remote/pkg/model"
	"go.uber.org/zap"
)

const (
	// GreetingLayout formats the connect time the way a browser stringifies a Date.
	GreetingLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

	DefaultHandshakeTimeout = 10 * time.Second

	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var (
	ErrNotOpen        = errors.New("connection not open")
	ErrUnknownCommand = errors.New("unknown command")
	ErrAlreadyStarted = errors.New("link already started")
)

type Option func(*Link)

// WithObserver registers fn to be called with every decoded status after it
// has been rendered.
func WithObserver(fn func(model.Status)) Option {
	return func(l *Link) {
		l.observers = append(l.observers, fn)
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Link) {
		l.now = now
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(l *Link) {
		l.dialer.HandshakeTimeout = d
	}
}

// WithPingPeriod sets the keepalive interval. Zero disables pings.
func WithPingPeriod(d time.Duration) Option {
	return func(l *Link) {
		l.pingPeriod = d
	}
}

// Link is the single connection to the device. Status frames are processed
// one at a time, in arrival order, on the goroutine that calls Run.
type Link struct {
	logger     *zap.Logger
	endpoint   Endpoint
	view       ui.View
	dialer     websocket.Dialer
	now        func() time.Time
	pingPeriod time.Duration
	observers  []func(model.Status)

	stateMu sync.RWMutex
	phase   model.Phase
	errored bool
	started bool

	writeMu   sync.Mutex
	conn      *websocket.Conn
	closing   atomic.Bool
	closeOnce sync.Once
}

func New(logger *zap.Logger, endpoint Endpoint, view ui.View, opts ...Option) *Link {
	l := &Link{
		endpoint: endpoint,
		view:     view,
		dialer: websocket.Dialer{
			Subprotocols:     []string{endpoint.Subprotocol},
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		now:        time.Now,
		pingPeriod: pingPeriod,
		phase:      model.PhaseConnecting,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logger.With(
		zap.String("session", uuid.NewString()),
		zap.String("endpoint", endpoint.URL()),
	)
	return l
}

func (l *Link) Phase() model.Phase {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.phase
}

// Errored reports whether the transport has reported an error.
func (l *Link) Errored() bool {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.errored
}

func (l *Link) setPhase(p model.Phase) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.phase = p
}

// Connect dials the device and sends the greeting. A link connects once; a
// failed or closed link cannot be reused.
func (l *Link) Connect(ctx context.Context) error {
	l.stateMu.Lock()
	if l.started {
		l.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.stateMu.Unlock()

	if err := l.endpoint.Validate(); err != nil {
		l.setPhase(model.PhaseClosed)
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	l.logger.Info("connecting")
	conn, _, err := l.dialer.DialContext(ctx, l.endpoint.URL(), nil)
	if err != nil {
		l.onError(err)
		l.onClose()
		return fmt.Errorf("dial %s: %w", l.endpoint.URL(), err)
	}
	conn.SetReadLimit(maxMessageSize)
	if conn.Subprotocol() != l.endpoint.Subprotocol {
		l.logger.Warn("device did not confirm subprotocol",
			zap.String("requested", l.endpoint.Subprotocol),
			zap.String("negotiated", conn.Subprotocol()))
	}

	l.writeMu.Lock()
	l.conn = conn
	l.writeMu.Unlock()

	l.onOpen()
	return nil
}

// Run processes inbound frames until the connection closes or ctx is done.
// It returns nil when the connection closed and ctx.Err() on cancellation.
func (l *Link) Run(ctx context.Context) error {
	if l.Phase() != model.PhaseOpen {
		return ErrNotOpen
	}

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go l.readPump(frames, readErr, done)

	var ping <-chan time.Time
	if l.pingPeriod > 0 {
		ticker := time.NewTicker(l.pingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()

		case payload := <-frames:
			l.onMessage(payload)

		case err := <-readErr:
			if !l.expectedClose(err) {
				l.onError(err)
			}
			l.onClose()
			return nil

		case <-ping:
			if err := l.ping(); err != nil {
				l.logger.Warn("keepalive ping failed", zap.Error(err))
			}
		}
	}
}

func (l *Link) readPump(frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	for {
		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- payload:
		case <-done:
			return
		}
	}
}

func (l *Link) expectedClose(err error) bool {
	if l.closing.Load() {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// SendCommand sends one command literal. When the connection is not open the
// command is logged and dropped and ErrNotOpen is returned.
func (l *Link) SendCommand(cmd model.Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return l.send(string(cmd))
}

func (l *Link) send(text string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if phase := l.Phase(); phase != model.PhaseOpen {
		l.logger.Warn("dropping message, connection not open",
			zap.String("message", text),
			zap.Stringer("phase", phase))
		return ErrNotOpen
	}

	if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		l.logger.Error("failed to send message", zap.String("message", text), zap.Error(err))
		return fmt.Errorf("write message: %w", err)
	}
	l.logger.Debug("sent message", zap.String("message", text))
	return nil
}

func (l *Link) ping() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.Phase() != model.PhaseOpen {
		return nil
	}
	return l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close sends a normal close frame and tears down the connection. Closing is
// terminal.
func (l *Link) Close() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.conn == nil || l.closing.Swap(true) {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		l.logger.Debug("failed to send close frame", zap.Error(err))
	}
	err := l.conn.Close()
	l.onClose()
	return err
}

func (l *Link) onOpen() {
	l.setPhase(model.PhaseOpen)
	l.logger.Info("connection open")

	greeting := "Connect " + l.now().Format(GreetingLayout)
	if err := l.send(greeting); err != nil {
		l.logger.Warn("failed to send greeting", zap.Error(err))
	}
}

func (l *Link) onError(err error) {
	l.stateMu.Lock()
	l.errored = true
	l.phase = model.PhaseErrored
	l.stateMu.Unlock()

	l.logger.Error("connection error", zap.Error(err))
}

func (l *Link) onClose() {
	l.closeOnce.Do(func() {
		l.setPhase(model.PhaseClosed)
		l.logger.Info("connection closed")
	})
}

// onMessage decodes and renders one frame. Invalid frames are logged and
// leave the view unchanged.
func (l *Link) onMessage(payload []byte) {
	l.logger.Debug("received frame", zap.ByteString("payload", payload))

	s, err := status.Decode(payload)
	if err != nil {
		l.logger.Warn("ignoring frame that is not a status record",
			zap.ByteString("payload", payload),
			zap.Error(err))
		return
	}

	ui.Render(l.view, s)
	if f, ok := l.view.(ui.Flusher); ok {
		f.Flush()
	}
	for _, fn := range l.observers {
		fn(s)
	}
}
