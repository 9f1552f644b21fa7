package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"notemesh/internal/core/domain"
	"notemesh/internal/infrastructure/monitoring"

	"go.uber.org/zap"
)

// DeltaRelay forwards deltas to other gateway nodes serving the same note.
type DeltaRelay interface {
	PublishDelta(ctx context.Context, noteID domain.NoteID, payload []byte) error
}

// member is one live connection's seat in a room. Payloads are queued on the
// buffered send channel and drained by the connection's write pump; the
// channel is closed exactly once, by whichever path removes the member from
// the room first.
type member struct {
	session SessionID
	send    chan []byte
}

// Room fans payloads out to every member of one note. Fan-out is serialized
// under the room lock, so two broadcasts are enqueued in the same order on
// every member's channel.
type Room struct {
	noteID domain.NoteID

	mu      sync.Mutex
	members map[SessionID]*member
}

// Hub owns all live rooms on this node. It keeps the presence registry in
// step with room membership and evicts members that cannot keep up with the
// broadcast rate.
type Hub struct {
	mu    sync.RWMutex
	rooms map[domain.NoteID]*Room

	registry   *Registry
	relay      DeltaRelay
	metrics    *monitoring.PrometheusCollector
	sendBuffer int
	logger     *zap.SugaredLogger
}

func NewHub(registry *Registry, sendBuffer int, metrics *monitoring.PrometheusCollector, logger *zap.SugaredLogger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		rooms:      make(map[domain.NoteID]*Room),
		registry:   registry,
		metrics:    metrics,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

// SetRelay attaches a cross-node delta relay. Must be called before the hub
// starts accepting members.
func (h *Hub) SetRelay(relay DeltaRelay) {
	h.relay = relay
}

// Join seats a new session in the note's room, creating the room on first
// join, and announces the updated member count to the whole room. It returns
// the channel the session's write pump must drain.
func (h *Hub) Join(noteID domain.NoteID, sid SessionID) <-chan []byte {
	h.mu.Lock()
	room, ok := h.rooms[noteID]
	if !ok {
		room = &Room{noteID: noteID, members: make(map[SessionID]*member)}
		h.rooms[noteID] = room
	}
	room.mu.Lock()
	h.mu.Unlock()
	defer room.mu.Unlock()

	m := &member{session: sid, send: make(chan []byte, h.sendBuffer)}
	room.members[sid] = m
	count := h.registry.Join(noteID, sid)

	h.fanOutLocked(room, encodeUserCount(count))
	h.updateRoomGauge()

	return m.send
}

// Leave removes the session from the note's room, closes its send channel,
// and announces the updated count to the remaining members. Calling Leave for
// a session that already left is a no-op, so the read pump, the write pump,
// and a broadcast eviction can all race to tear the same session down.
func (h *Hub) Leave(noteID domain.NoteID, sid SessionID) {
	room := h.room(noteID)
	if room == nil {
		return
	}

	room.mu.Lock()
	m, present := room.members[sid]
	if present {
		delete(room.members, sid)
		close(m.send)
		count := h.registry.Leave(noteID, sid)
		if count > 0 {
			h.fanOutLocked(room, encodeUserCount(count))
		}
	}
	empty := len(room.members) == 0
	room.mu.Unlock()

	if !present {
		return
	}
	if empty {
		h.prune(noteID, room)
	}
	h.updateRoomGauge()
}

// BroadcastDelta relays one client's edit to every member of the note's room,
// the sender included, and forwards it to other nodes when a relay is
// attached.
func (h *Hub) BroadcastDelta(ctx context.Context, noteID domain.NoteID, delta json.RawMessage, clientID domain.ClientID) {
	payload := encodeDelta(delta, clientID)
	h.broadcast(noteID, payload)

	if h.relay != nil {
		if err := h.relay.PublishDelta(ctx, noteID, payload); err != nil {
			h.logger.Warnw("delta relay publish failed", "note_id", noteID, "error", err)
		}
	}
}

// BroadcastRemote delivers a payload that arrived from another node to the
// local members of the note's room. It never re-publishes to the relay.
func (h *Hub) BroadcastRemote(noteID domain.NoteID, payload []byte) {
	h.broadcast(noteID, payload)
}

// Count reports the number of sessions in the note's room on this node.
func (h *Hub) Count(noteID domain.NoteID) int {
	return h.registry.Count(noteID)
}

func (h *Hub) room(noteID domain.NoteID) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[noteID]
}

func (h *Hub) broadcast(noteID domain.NoteID, payload []byte) {
	room := h.room(noteID)
	if room == nil {
		return
	}

	room.mu.Lock()
	evicted := h.fanOutLocked(room, payload)
	if len(evicted) > 0 {
		for _, sid := range evicted {
			h.registry.Leave(room.noteID, sid)
		}
		if count := h.registry.Count(room.noteID); count > 0 {
			h.fanOutLocked(room, encodeUserCount(count))
		}
	}
	empty := len(room.members) == 0
	room.mu.Unlock()

	if empty {
		h.prune(noteID, room)
	}
	if len(evicted) > 0 {
		h.updateRoomGauge()
	}
}

// fanOutLocked enqueues payload on every member's send channel. A member
// whose buffer is full is evicted on the spot rather than allowed to stall
// the room; its write pump notices the closed channel and shuts the
// connection down. Callers must hold the room lock.
func (h *Hub) fanOutLocked(room *Room, payload []byte) []SessionID {
	var evicted []SessionID
	for sid, m := range room.members {
		select {
		case m.send <- payload:
		default:
			delete(room.members, sid)
			close(m.send)
			evicted = append(evicted, sid)
			h.logger.Warnw("evicting slow room member", "note_id", room.noteID, "session_id", sid)
			if h.metrics != nil {
				h.metrics.RecordDroppedMessage()
			}
		}
	}
	if h.metrics != nil {
		h.metrics.RecordBroadcast(len(room.members))
	}
	return evicted
}

func (h *Hub) prune(noteID domain.NoteID, room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.members) == 0 && h.rooms[noteID] == room {
		delete(h.rooms, noteID)
	}
}

func (h *Hub) updateRoomGauge() {
	if h.metrics != nil {
		h.metrics.SetActiveRooms(h.registry.Rooms())
	}
}
