package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
	"tradecontrol/pkg/monitor"
)

// Connection states
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

const (
	defaultReadTimeout = 90 * time.Second
	writeTimeout       = 10 * time.Second
	sourceBuffer       = 256
)

// SubscribeNewToken is the pump.fun feed subscription for token creations
var SubscribeNewToken = map[string]string{"method": "subscribeNewToken"}

// WebsocketSource follows a pump.fun websocket feed, reconnecting with
// StreamReconnect whenever the connection drops.
type WebsocketSource struct {
	channelSource

	url         string
	subscribe   interface{}
	parser      PumpfunParser
	reconnect   *StreamReconnect
	dialer      *websocket.Dialer
	readTimeout time.Duration

	status chan string
}

func NewWebsocketSource(url string, subscribe interface{}, reconnect *StreamReconnect) *WebsocketSource {
	if reconnect == nil {
		reconnect = DefaultStreamReconnect()
	}
	return &WebsocketSource{
		channelSource: channelSource{out: make(chan core.MintSignal, sourceBuffer)},
		url:           url,
		subscribe:     subscribe,
		parser:        NewPumpfunParser(),
		reconnect:     reconnect,
		dialer:        websocket.DefaultDialer,
		readTimeout:   defaultReadTimeout,
		status:        make(chan string, 8),
	}
}

// Start runs the connection loop until ctx is done, then closes the stream
func (s *WebsocketSource) Start(ctx context.Context) {
	go func() {
		defer close(s.out)
		for {
			err := s.session(ctx)
			if ctx.Err() != nil {
				return
			}
			log.WithFields(log.Fields{
				"url":   s.url,
				"error": err,
			}).Warn("Stream connection lost")
			s.setStatus(StateDisconnected)
			monitor.StreamReconnected()
			if s.reconnect.Wait(ctx) != nil {
				return
			}
		}
	}()
}

// session dials, subscribes and reads until the connection fails
func (s *WebsocketSource) session(ctx context.Context) error {
	s.setStatus(StateConnecting)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if s.subscribe != nil {
		payload, err := json.Marshal(s.subscribe)
		if err != nil {
			return fmt.Errorf("failed to encode subscription: %w", err)
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("subscribe failed: %w", err)
		}
	}

	s.reconnect.Reset()
	s.setStatus(StateConnected)
	log.WithField("url", s.url).Info("Stream connected")

	for {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		sig, err := s.parser.Parse(message)
		if err != nil {
			// subscription acks and other control frames carry no mint
			log.WithError(err).Debug("Skipping stream message")
			continue
		}
		if !s.push(ctx, sig) {
			return ctx.Err()
		}
	}
}

func (s *WebsocketSource) setStatus(state string) {
	select {
	case s.status <- state:
	default:
	}
}

// Status yields connection state changes; slow readers miss intermediate states
func (s *WebsocketSource) Status() <-chan string {
	return s.status
}
