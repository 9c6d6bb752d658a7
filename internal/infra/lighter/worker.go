package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lighter_go/internal/domain"
	"lighter_go/internal/event"
	"lighter_go/internal/infra"
	"lighter_go/pkg/msgpack"

	"github.com/gorilla/websocket"
)

const (
	maxRetries       = 10
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
)

// subscribeMessage is the outbound subscription request, one per channel.
type subscribeMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Worker maintains the venue WebSocket connection, decodes binary frames
// and feeds ordered events into the engine inbox.
type Worker struct {
	wsURL     string
	marketIDs []string
	inbox     chan<- event.Event
	seq       *uint64
	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a stream worker for the given market ids.
func NewWorker(wsURL string, marketIDs []string, inbox chan<- event.Event, seq *uint64) *Worker {
	return &Worker{
		wsURL:     wsURL,
		marketIDs: marketIDs,
		inbox:     inbox,
		seq:       seq,
	}
}

// Connect starts the connection loop in the background.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Lighter connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.ReconnectBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()
	infra.GlobalMetrics.IncrementConnections()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	slog.Info("Lighter connected", slog.Int("markets", len(w.marketIDs)))
	return nil
}

// subscribe requests the order-book and trade channels for every market.
func (w *Worker) subscribe() error {
	for _, id := range w.marketIDs {
		for _, prefix := range []string{"order_book:", "trade:"} {
			b, _ := json.Marshal(subscribeMessage{Type: "subscribe", Channel: prefix + id})
			if err := w.threadSafeWrite(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		msgType, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		if msgType != websocket.BinaryMessage {
			// Subscription acks and pings arrive as text.
			continue
		}
		w.handleFrame(ctx, msg)
	}
}

func (w *Worker) handleFrame(ctx context.Context, msg []byte) {
	v, err := msgpack.Decode(msg)
	if err != nil {
		infra.GlobalMetrics.RecordDecodeError()
		slog.Debug("Frame decode failed", slog.Any("error", err), slog.Int("bytes", len(msg)))
		return
	}

	ev := ParseFrame(v, w.seq)
	if ev == nil {
		return
	}

	// The inbox send must not drop: sequence numbers were already
	// assigned and the engine halts on gaps.
	select {
	case w.inbox <- ev:
	case <-ctx.Done():
	}
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		infra.GlobalMetrics.DecrementConnections()
	}
	w.connected = false
}

// IsConnected reports whether the socket is currently up.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Disconnect stops the connection loop and closes the socket.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
