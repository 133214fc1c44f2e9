package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler supplies the exchange-specific half of a stream
// connection: where to dial, what to send after connecting, how to keep
// the session alive, and what to do with each message.
type WebSocketHandler interface {
	GetURL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
	ID() string
}

// BaseWSWorker owns one stream connection: dial, hand off to the handler,
// read until failure, reconnect with backoff. Reads happen on the worker
// goroutine only; writes are serialized behind their own mutex.
type BaseWSWorker struct {
	handler WebSocketHandler
	clock   Clock

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	PingInterval time.Duration
}

// NewBaseWSWorker creates a worker with production timeouts. The timeout
// fields may be adjusted before Start.
func NewBaseWSWorker(handler WebSocketHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:      handler,
		clock:        SystemClock{},
		DialTimeout:  10 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Start launches the connect-read-reconnect loop.
func (w *BaseWSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (w *BaseWSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *BaseWSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			delay := CalculateBackoff(retry)
			slog.Warn("ws connect failed",
				slog.String("id", w.handler.ID()),
				slog.Int("retry", retry),
				slog.Duration("next_attempt_in", delay),
				slog.Any("error", err))
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		// A successful session resets the backoff; the first reconnect
		// after a drop is immediate.
		retry = 0
		w.readLoop(ctx)
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, w.handler.GetURL(), nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	if w.PingInterval > 0 {
		go w.pingLoop(ctx)
	}

	slog.Info("ws connected", slog.String("id", w.handler.ID()))
	return nil
}

// readLoop consumes the stream until a read error, then drops the
// connection so runLoop redials. A peer silent past ReadTimeout counts
// as an error; a dead feed must not look like a quiet market.
func (w *BaseWSWorker) readLoop(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(w.clock.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			slog.Warn("ws read failed",
				slog.String("id", w.handler.ID()),
				slog.Any("error", err))
			w.close()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

func (w *BaseWSWorker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			c := w.conn
			w.mu.RUnlock()
			if c == nil {
				return
			}
			if err := w.handler.OnPing(ctx, c); err != nil {
				slog.Warn("ws ping failed",
					slog.String("id", w.handler.ID()),
					slog.Any("error", err))
				w.close()
				return
			}
		}
	}
}

// Write sends one message on the current connection.
func (w *BaseWSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("ws not connected")
	}
	return c.WriteMessage(msgType, data)
}

func (w *BaseWSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
