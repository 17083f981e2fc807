package server

import (
	"log"

	"github.com/npezzotti/go-office/internal/stats"
)

// SignalingRelay forwards WebRTC negotiation payloads between peer pairs.
// It keeps no session state: each message is looked up, delivered once if
// the target is connected and in the room, and otherwise dropped. Payloads
// are opaque; the relay never inspects SDP or candidate content.
type SignalingRelay struct {
	registry *ConnectionRegistry
	tracker  *RoomTracker
	stats    stats.StatsProvider
	log      *log.Logger
}

func NewSignalingRelay(logger *log.Logger, registry *ConnectionRegistry, tracker *RoomTracker, sp stats.StatsProvider) *SignalingRelay {
	return &SignalingRelay{
		registry: registry,
		tracker:  tracker,
		stats:    sp,
		log:      logger,
	}
}

// Relay unicasts one signaling payload from the sender to targetUserId,
// scoped to roomId. Absent targets and room mismatches are dropped
// silently; the browser peer layer owns retry and renegotiation.
func (sr *SignalingRelay) Relay(kind string, fromUserId, targetUserId int, roomId, payload string) {
	target, ok := sr.registry.Lookup(targetUserId)
	if !ok {
		sr.log.Printf("drop %s from %d: target %d not connected", kind, fromUserId, targetUserId)
		return
	}

	if cur, ok := sr.tracker.CurrentRoom(targetUserId); !ok || cur != roomId {
		sr.log.Printf("drop %s from %d: target %d not in room %q", kind, fromUserId, targetUserId, roomId)
		return
	}

	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Signal: &Signal{
			Kind:    kind,
			From:    fromUserId,
			RoomId:  roomId,
			Payload: payload,
		},
	}

	if target.queueMessage(msg) {
		sr.stats.Incr(stats.SignalsRelayed)
	}
}
