// File: realtime/session.go
package realtime

import (
	"sync"
	"time"

	"slotwise/models"
	"slotwise/services/reservation"
	"slotwise/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

// Session binds one live websocket connection to an identity. The
// session id attributes holds and room memberships; the user id is the
// portal identity behind them.
type Session struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan models.Event
	quit chan struct{}
	once sync.Once
}

// NewSession wraps an upgraded connection. The caller registers it with
// the hub and starts the pumps.
func NewSession(id, userID string, hub *Hub, conn *websocket.Conn, sendBuffer int) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan models.Event, sendBuffer),
		quit:   make(chan struct{}),
	}
}

// close signals both pumps to wind down. Safe to call from any
// goroutine, any number of times.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.quit)
	})
}

// enqueue offers an event to the session without blocking. A session
// whose buffer is full is cut off: the client reconnects and converges
// through the join snapshot, which is cheaper than unbounded queueing.
func (s *Session) enqueue(event models.Event) {
	select {
	case <-s.quit:
	case s.send <- event:
	default:
		utils.GetLogger().Warn("session send buffer full, dropping connection",
			zap.String("session", s.ID))
		s.close()
	}
}

// ReadPump decodes client events until the connection dies, then frees
// everything the session owned. Runs on its own goroutine per session.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.close()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg models.Event
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Debug("websocket read error",
					zap.String("session", s.ID), zap.Error(err))
			}
			return
		}
		s.hub.handleClientEvent(s, msg)
	}
}

// WritePump serializes all writes to the connection: queued events plus
// keepalive pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.quit:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case event := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ackError shapes a reservation error into a failed ack. Unexpected
// infrastructure faults surface as a generic code; the contention
// outcomes keep their protocol codes.
func ackError(typ string, err error) models.Event {
	code := reservation.ErrorCode(err)
	if code == "" {
		code = "internal_error"
	}
	return models.AckEvent(typ, false, code)
}
