package head

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hydra-launchpad/internal/domain"
)

// WSConfig configures the per-channel websocket connection.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// TxRejectedError reports a transaction the channel declared invalid.
type TxRejectedError struct {
	TxRef  string
	Reason string
}

func (e *TxRejectedError) Error() string {
	return fmt.Sprintf("channel rejected tx %s: %s", e.TxRef, e.Reason)
}

// channelConn is one channel's websocket feed. It tracks the channel status
// from Greetings and transition messages and resolves confirmation waiters
// from TxValid/TxInvalid/SnapshotConfirmed messages.
type channelConn struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	status   domain.HeadStatus
	statusMu sync.RWMutex

	// waiters maps a txRef or allocation id to confirmation channels
	waiters   map[string][]chan error
	waitersMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// dialChannel connects to a channel's websocket feed and starts the reader.
func dialChannel(ctx context.Context, endpoint string, config WSConfig, logger *log.Logger) (*channelConn, error) {
	c := &channelConn{
		endpoint: endpoint,
		config:   config,
		logger:   logger,
		waiters:  make(map[string][]chan error),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the websocket connection.
func (c *channelConn) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Status blocks until the channel has reported its status, then returns it.
// The status arrives in the Greetings message sent on every (re)connect.
func (c *channelConn) Status(ctx context.Context) (domain.HeadStatus, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		c.statusMu.RLock()
		status := c.status
		c.statusMu.RUnlock()
		if status != "" {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-c.done:
			return "", fmt.Errorf("connection closed")
		case <-ticker.C:
		}
	}
}

// AwaitTx blocks until the channel confirms or rejects the given reference.
func (c *channelConn) AwaitTx(ctx context.Context, ref string) error {
	ch := make(chan error, 1)
	c.waitersMu.Lock()
	c.waiters[ref] = append(c.waiters[ref], ch)
	c.waitersMu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		c.removeWaiter(ref, ch)
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection closed")
	}
}

// removeWaiter detaches an abandoned confirmation channel.
func (c *channelConn) removeWaiter(ref string, ch chan error) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()

	chans := c.waiters[ref]
	for i, w := range chans {
		if w == ch {
			c.waiters[ref] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(c.waiters[ref]) == 0 {
		delete(c.waiters, ref)
	}
}

// resolve completes every waiter registered for ref.
func (c *channelConn) resolve(ref string, err error) {
	c.waitersMu.Lock()
	chans := c.waiters[ref]
	delete(c.waiters, ref)
	c.waitersMu.Unlock()

	for _, ch := range chans {
		ch <- err
	}
}

// setStatus records a status transition.
func (c *channelConn) setStatus(status domain.HeadStatus) {
	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()
}

// Close closes the websocket connection.
func (c *channelConn) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from the websocket and dispatches them.
func (c *channelConn) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect. The channel resends Greetings on every
// connect, which refreshes the cached status; waiters stay registered.
func (c *channelConn) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
}

// handleMessage decodes and dispatches one websocket message.
func (c *channelConn) handleMessage(message []byte) {
	msg, err := ParseServerMessage(message)
	if err != nil {
		// Unknown tags are skipped; the channel feed carries messages this
		// client has no interest in.
		c.logger.Printf("skipping channel message: %v", err)
		return
	}

	switch m := msg.(type) {
	case Greetings:
		c.setStatus(m.HeadStatus)
	case HeadIsOpen:
		c.setStatus(domain.HeadOpen)
	case HeadIsClosed:
		c.setStatus(domain.HeadClosed)
	case ReadyToFanout:
		c.setStatus(domain.HeadFanoutPossible)
	case TxValid:
		c.resolve(m.TxRef, nil)
	case TxInvalid:
		c.resolve(m.TxRef, &TxRejectedError{TxRef: m.TxRef, Reason: m.Reason})
	case SnapshotConfirmed:
		for _, ref := range m.TxRefs {
			c.resolve(ref, nil)
		}
	case DecommitFinalized:
		c.resolve(m.AllocationID, nil)
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *channelConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
