// File: realtime/hub.go
package realtime

import (
	"context"
	"time"

	"slotwise/metrics"
	"slotwise/models"
	"slotwise/utils"

	"go.uber.org/zap"
)

// Reservations is the slice of the reservation engine the hub drives in
// response to client messages. Kept as an interface so hub tests can
// substitute a stub.
type Reservations interface {
	AcquireHold(ctx context.Context, slotID, sessionID string) (*models.HoldGrant, error)
	ReleaseHold(slotID, sessionID string) error
	HandleDisconnect(sessionID string)
	Snapshot(ctx context.Context, scope string) (booked, held []string, err error)
}

// Hub owns every live session and the scope-keyed rooms they join. It
// implements reservation.Broadcaster: all slot-state fan-out goes
// through Publish/SendTo, never through shared globals.
type Hub struct {
	reservations Reservations

	register   chan *Session
	unregister chan *Session
	commands   chan command

	// Owned by the run loop; no mutex needed.
	sessions map[string]*Session
	rooms    map[string]map[string]*Session // scope -> session id -> session
	joined   map[string]map[string]struct{} // session id -> scopes
}

type command struct {
	kind    string // "join", "leave", "publish", "sendto"
	session *Session
	scope   string
	target  string
	exclude string
	event   models.Event
	done    chan struct{}
}

// NewHub creates a hub. Call SetReservations before Run; the engine and
// hub reference each other, so one side is wired late.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Session),
		unregister: make(chan *Session),
		commands:   make(chan command, 256),
		sessions:   make(map[string]*Session),
		rooms:      make(map[string]map[string]*Session),
		joined:     make(map[string]map[string]struct{}),
	}
}

func (h *Hub) SetReservations(r Reservations) {
	h.reservations = r
}

// Run processes registration and fan-out commands on a single
// goroutine, which keeps the subscriber sets free of locks and makes
// event delivery per-subscriber FIFO.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			h.sessions[s.ID] = s
			metrics.AddConnectedSessions(1)
		case s := <-h.unregister:
			h.dropSession(s)
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		}
	}
}

func (h *Hub) handleCommand(cmd command) {
	switch cmd.kind {
	case "join":
		h.joinRoom(cmd.session, cmd.scope)
	case "leave":
		h.leaveRoom(cmd.session, cmd.scope)
	case "publish":
		for _, s := range h.rooms[cmd.scope] {
			if s.ID == cmd.exclude {
				continue
			}
			s.enqueue(cmd.event)
		}
	case "sendto":
		if s, ok := h.sessions[cmd.target]; ok {
			s.enqueue(cmd.event)
		}
	}
	if cmd.done != nil {
		close(cmd.done)
	}
}

// joinRoom is idempotent: duplicate joins leave the subscriber sets
// unchanged (the caller still gets a fresh snapshot).
func (h *Hub) joinRoom(s *Session, scope string) {
	room := h.rooms[scope]
	if room == nil {
		room = make(map[string]*Session)
		h.rooms[scope] = room
	}
	if _, already := room[s.ID]; already {
		return
	}
	room[s.ID] = s

	scopes := h.joined[s.ID]
	if scopes == nil {
		scopes = make(map[string]struct{})
		h.joined[s.ID] = scopes
	}
	scopes[scope] = struct{}{}
	metrics.AddRoomSubscribers(1)
}

func (h *Hub) leaveRoom(s *Session, scope string) {
	room := h.rooms[scope]
	if room == nil {
		return
	}
	if _, ok := room[s.ID]; !ok {
		return
	}
	delete(room, s.ID)
	if len(room) == 0 {
		delete(h.rooms, scope)
	}
	delete(h.joined[s.ID], scope)
	metrics.AddRoomSubscribers(-1)
}

func (h *Hub) dropSession(s *Session) {
	if _, ok := h.sessions[s.ID]; !ok {
		return
	}
	delete(h.sessions, s.ID)
	for scope := range h.joined[s.ID] {
		h.leaveRoom(s, scope)
	}
	delete(h.joined, s.ID)
	s.close()
	metrics.AddConnectedSessions(-1)

	// Releasing the session's hold emits slot_released to the rooms it
	// left, so other members see the slot free without waiting for TTL.
	// Dispatched off the run loop: the release takes the engine mutex,
	// and the engine publishes back into the hub while holding it.
	if h.reservations != nil {
		go h.reservations.HandleDisconnect(s.ID)
	}
	utils.GetLogger().Debug("session dropped", zap.String("session", s.ID))
}

// Publish delivers the event to every current subscriber of scope,
// except excludeSession when non-empty. Non-blocking for the caller:
// delivery rides the hub loop and each session's buffered send channel.
func (h *Hub) Publish(scope string, event models.Event, excludeSession string) {
	h.offer(command{kind: "publish", scope: scope, exclude: excludeSession, event: event})
}

// SendTo delivers the event to a single session, if still connected.
func (h *Hub) SendTo(sessionID string, event models.Event) {
	h.offer(command{kind: "sendto", target: sessionID, event: event})
}

// offer enqueues a fan-out command without ever blocking. The engine
// calls Publish/SendTo while holding its mutex, and the run loop takes
// that mutex indirectly on disconnect; a blocking send here could close
// that cycle into a deadlock. An overloaded hub drops the event and
// clients reconverge through the join snapshot, the same policy as a
// full session buffer.
func (h *Hub) offer(cmd command) {
	select {
	case h.commands <- cmd:
	default:
		utils.GetLogger().Warn("hub commands buffer full, dropping event",
			zap.String("type", cmd.event.Type))
	}
}

// Join subscribes the session to a scope and returns once the
// membership is in place, so the snapshot that follows cannot miss
// events published after it.
func (h *Hub) Join(s *Session, scope string) {
	done := make(chan struct{})
	h.commands <- command{kind: "join", session: s, scope: scope, done: done}
	<-done
}

// Leave is idempotent; leaving a scope never joined is a no-op.
func (h *Hub) Leave(s *Session, scope string) {
	done := make(chan struct{})
	h.commands <- command{kind: "leave", session: s, scope: scope, done: done}
	<-done
}

// Register adds a freshly upgraded session and greets it with its
// session id so the client can correlate booking commits.
func (h *Hub) Register(s *Session) {
	h.register <- s
	s.enqueue(models.Event{Type: models.EventConnected, SessionID: s.ID})
}

// Unregister removes the session and frees everything it owned.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// snapshotTimeout bounds the store read behind a join.
const snapshotTimeout = 5 * time.Second

// handleClientEvent dispatches one decoded client message. Acks go only
// to the requesting session; room broadcasts are emitted by the engine.
func (h *Hub) handleClientEvent(s *Session, msg models.Event) {
	switch msg.Type {
	case models.EventJoinDay:
		if msg.Scope == "" {
			return
		}
		h.Join(s, msg.Scope)
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		booked, held, err := h.reservations.Snapshot(ctx, msg.Scope)
		cancel()
		if err != nil {
			utils.GetLogger().Error("snapshot failed", zap.String("scope", msg.Scope), zap.Error(err))
			return
		}
		s.enqueue(models.Event{
			Type:   models.EventSlotsSnapshot,
			Scope:  msg.Scope,
			Booked: booked,
			Held:   held,
		})
	case models.EventLeaveDay:
		if msg.Scope == "" {
			return
		}
		h.Leave(s, msg.Scope)
	case models.EventHoldSlot:
		grant, err := h.reservations.AcquireHold(context.Background(), msg.SlotID, s.ID)
		if err != nil {
			s.enqueue(ackError(models.EventHoldSlotAck, err))
			return
		}
		ack := models.AckEvent(models.EventHoldSlotAck, true, "")
		ack.SlotID = grant.SlotID
		ack.TTL = grant.TTL
		s.enqueue(ack)
	case models.EventReleaseHold:
		if err := h.reservations.ReleaseHold(msg.SlotID, s.ID); err != nil {
			s.enqueue(ackError(models.EventReleaseHoldAck, err))
			return
		}
		s.enqueue(models.AckEvent(models.EventReleaseHoldAck, true, ""))
	default:
		utils.GetLogger().Debug("unknown client event", zap.String("type", msg.Type))
	}
}
