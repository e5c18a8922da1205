package sse

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const keepAliveInterval = 30 * time.Second

// Event is one message pushed to a connected browser.
type Event struct {
	Name string
	Data interface{}
}

type message struct {
	userID string
	event  Event
}

type client struct {
	userID string
	events chan Event
}

// Manager fans events out to every open stream of a user. Run must be started
// before any client connects.
type Manager struct {
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			log.Debugf("[SSE] Client connected for user %s (%d open)", c.userID, len(m.clients[c.userID]))
		case c := <-m.unregister:
			if set, ok := m.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.events)
				}
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
		case msg := <-m.broadcast:
			for c := range m.clients[msg.userID] {
				select {
				case c.events <- msg.event:
				default:
					log.Warnf("[SSE] Dropping %s event for slow client of user %s", msg.event.Name, msg.userID)
				}
			}
		case <-m.done:
			for _, set := range m.clients {
				for c := range set {
					close(c.events)
				}
			}
			m.clients = make(map[string]map[*client]struct{})
			return
		}
	}
}

// Stop ends Run and closes every open stream.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// SendToUser queues an event for all streams of userID. It never blocks the
// caller; events are dropped when the manager is saturated or stopped.
func (m *Manager) SendToUser(userID, event string, data interface{}) {
	select {
	case m.broadcast <- message{userID: userID, event: Event{Name: event, Data: data}}:
	case <-m.done:
	default:
		log.Warnf("[SSE] Broadcast queue full, dropping %s for user %s", event, userID)
	}
}

// ServeHTTP holds the request open and streams events until the client goes away.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl := &client{userID: userID, events: make(chan Event, 16)}
	select {
	case m.register <- cl:
	case <-m.done:
		return
	}
	defer func() {
		select {
		case m.unregister <- cl:
		case <-m.done:
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-cl.events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
