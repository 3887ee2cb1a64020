// Package sse streams quote notifications to connected users as Server-Sent Events.
package sse

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"medcrm_backend/platform/httpkit"
	"medcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType is the SSE event name the browser listens on.
type EventType string

const (
	EventQuoteSent      EventType = "quote_sent"
	EventQuoteAccepted  EventType = "quote_accepted"
	EventQuoteRejected  EventType = "quote_rejected"
	EventQuoteCancelled EventType = "quote_cancelled"
	EventQuoteExpired   EventType = "quote_expired"
)

const (
	subscriberBuffer  = 32
	heartbeatInterval = 25 * time.Second
)

// Event is the JSON payload of one frame.
type Event struct {
	Type        EventType   `json:"type"`
	QuoteID     uuid.UUID   `json:"quoteId"`
	QuoteNumber string      `json:"quoteNumber,omitempty"`
	Message     string      `json:"message,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

type subscriber chan Event

// Service fans events out to every open stream of a user.
type Service struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[subscriber]struct{}
	closed bool
	log    *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		subs: make(map[uuid.UUID]map[subscriber]struct{}),
		log:  log,
	}
}

// Subscribe registers a stream for userID. The returned channel is closed by
// the cancel func or by Close. ok is false once the service is closed.
func (s *Service) Subscribe(userID uuid.UUID) (<-chan Event, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, func() {}, false
	}

	sub := make(subscriber, subscriberBuffer)
	set, ok := s.subs[userID]
	if !ok {
		set = make(map[subscriber]struct{})
		s.subs[userID] = set
	}
	set[sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() { s.unsubscribe(userID, sub) })
	}
	return sub, cancel, true
}

func (s *Service) unsubscribe(userID uuid.UUID, sub subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.subs[userID]
	if _, ok := set[sub]; !ok {
		// already closed by Close
		return
	}
	delete(set, sub)
	close(sub)
	if len(set) == 0 {
		delete(s.subs, userID)
	}
}

// ClientCount returns the number of open streams for a user.
func (s *Service) ClientCount(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[userID])
}

// Publish never blocks: a stream whose buffer is full misses the event.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs[userID] {
		select {
		case sub <- event:
		default:
			s.log.Warn("sse_event_dropped",
				"user_id", userID.String(),
				"type", string(event.Type),
			)
		}
	}
}

// Handler streams the caller's events until they disconnect or the service closes.
func (s *Service) Handler(identify func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := identify(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpkit.ErrorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
			return
		}

		events, cancel, ok := s.Subscribe(userID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, httpkit.ErrorResponse{Error: "notification stream closed", Code: "STREAM_CLOSED"})
			return
		}
		defer cancel()

		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		done := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-done:
				return false
			case <-heartbeat.C:
				_, err := fmt.Fprint(w, ": ping\n\n")
				return err == nil
			case event, open := <-events:
				if !open {
					return false
				}
				c.SSEvent(string(event.Type), event)
				return true
			}
		})
	}
}

// Close ends every open stream and rejects new ones.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for userID, set := range s.subs {
		for sub := range set {
			close(sub)
		}
		delete(s.subs, userID)
	}
}
