package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
)

// StreamConfig configures quote stream behavior.
type StreamConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the keepalive cadence.
	PingInterval time.Duration
	// ReadTimeout bounds a single message read.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single message write.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns the default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// QuoteStream keeps last-trade prices current over a websocket feed.
// The order manager polls it through the QuoteSource interface while
// waiting for limit fills. It reconnects with exponential backoff and
// resubscribes its tickers after each reconnect.
type QuoteStream struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	prices   map[string]float64
	pricesMu sync.RWMutex

	// tickers holds active subscriptions for replay after reconnect.
	tickers   map[string]bool
	tickersMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// streamMessage is one inbound tick.
type streamMessage struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

// streamRequest is the subscribe frame.
type streamRequest struct {
	Op      string   `json:"op"`
	Tickers []string `json:"tickers"`
}

// NewQuoteStream connects to the endpoint and starts the read and ping
// loops.
func NewQuoteStream(ctx context.Context, endpoint string, config *StreamConfig) (*QuoteStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &QuoteStream{
		endpoint: endpoint,
		config:   cfg,
		prices:   make(map[string]float64),
		tickers:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

func (s *QuoteStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	s.conn = conn
	return nil
}

// Subscribe starts streaming quotes for the given tickers.
func (s *QuoteStream) Subscribe(tickers ...string) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	s.tickersMu.Lock()
	for _, t := range tickers {
		s.tickers[t] = true
	}
	s.tickersMu.Unlock()

	return s.writeSubscribe(tickers)
}

func (s *QuoteStream) writeSubscribe(tickers []string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(streamRequest{Op: "subscribe", Tickers: tickers}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// LastPrice implements QuoteSource. It returns an error until the
// first tick for the ticker arrives.
func (s *QuoteStream) LastPrice(_ context.Context, ticker string) (float64, error) {
	s.pricesMu.RLock()
	price, ok := s.prices[ticker]
	s.pricesMu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("no quote received for %s yet", ticker)
	}
	return price, nil
}

// Close shuts the stream down.
func (s *QuoteStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}
			reconnectDelay *= 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay
		s.handleMessage(message)
	}
}

func (s *QuoteStream) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Ticker == "" {
		return
	}
	if msg.Price <= 0 {
		return
	}

	s.pricesMu.Lock()
	s.prices[msg.Ticker] = msg.Price
	s.pricesMu.Unlock()
	observability.RecordQuoteTick()
}

func (s *QuoteStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Retry rides on the next read error.
		observ.Warn("stream.reconnect_failed", map[string]any{"error": err.Error()})
		return
	}

	s.tickersMu.Lock()
	tickers := make([]string, 0, len(s.tickers))
	for t := range s.tickers {
		tickers = append(tickers, t)
	}
	s.tickersMu.Unlock()

	if len(tickers) > 0 {
		if err := s.writeSubscribe(tickers); err != nil {
			observ.Warn("stream.resubscribe_failed", map[string]any{"error": err.Error()})
		}
	}
}

func (s *QuoteStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A failed ping surfaces as a read error and triggers
				// the reconnect path.
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// Compile-time interface check.
var _ QuoteSource = (*QuoteStream)(nil)
