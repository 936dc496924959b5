// Package feed streams dispatch outcomes to operators over a websocket.
package feed

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/metrics"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

type subscriber struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.ws.Close()
	})
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case data := <-s.send:
			s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Hub fans dispatcher outcomes out to websocket subscribers. A subscriber
// whose buffer is full is disconnected; publishing never blocks.
type Hub struct {
	token    string
	logger   *slog.Logger
	upgrader websocket.Upgrader
	seq      atomic.Int64
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
}

// NewHub creates a hub accepting subscribers that present token. An empty
// token disables subscription.
func NewHub(token string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		token:  token,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Enabled reports whether a token is configured.
func (h *Hub) Enabled() bool { return h.token != "" }

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ObserveInteraction publishes an interaction.handled event.
func (h *Hub) ObserveInteraction(o interactions.Outcome) {
	p := HandledPayload{
		InteractionID: o.InteractionID,
		Type:          metrics.TypeLabel(o.Type),
		Target:        o.Target,
		Status:        o.Status,
		Outcome:       metrics.OutcomeLabel(o),
		DurationMS:    float64(o.Duration.Microseconds()) / 1000,
		Canonicalized: o.Canonicalized,
		Bypassed:      o.Bypassed,
	}
	if o.Err != nil {
		p.Error = o.Err.Error()
	}
	h.Publish(EventHandled, p)
}

// Publish sends one event to every subscriber.
func (h *Hub) Publish(event string, payload any) {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	data, err := MarshalEvent(event, h.seq.Add(1), payload)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("feed: marshal event", "event", event, "error", err)
		return
	}

	var slow []*subscriber
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.logger.Warn("feed: dropping slow subscriber", "remote", s.ws.RemoteAddr().String())
		h.remove(s)
	}
}

// ServeHTTP authenticates and upgrades a subscriber, then holds the
// connection until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := Authenticate(h.token, r)
	if !res.OK {
		status := http.StatusUnauthorized
		if res.Reason == "feed_disabled" {
			status = http.StatusNotFound
		}
		http.Error(w, res.Reason, status)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("feed: upgrade failed", "error", err)
		return
	}

	s := &subscriber{ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.add(s)
	defer h.remove(s)
	go s.writeLoop()

	// Incoming messages are ignored; reading surfaces the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects every subscriber with a going-away close frame.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, s := range subs {
		_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		h.remove(s)
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	metrics.FeedSubscribers.Inc()
	h.logger.Info("feed: subscriber connected", "remote", s.ws.RemoteAddr().String())
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
	if ok {
		metrics.FeedSubscribers.Dec()
		h.logger.Info("feed: subscriber disconnected", "remote", s.ws.RemoteAddr().String())
	}
}
