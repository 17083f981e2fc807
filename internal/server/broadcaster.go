package server

import (
	"log"
)

// PresenceBroadcaster fans an event out to every connection currently in a
// room. It holds no state of its own; membership and connections are read
// from the tracker and registry at broadcast time.
type PresenceBroadcaster struct {
	registry *ConnectionRegistry
	tracker  *RoomTracker
	log      *log.Logger
}

func NewPresenceBroadcaster(logger *log.Logger, registry *ConnectionRegistry, tracker *RoomTracker) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		registry: registry,
		tracker:  tracker,
		log:      logger,
	}
}

// ToRoom delivers msg to every connected member of the room except
// msg.SkipClient. Delivery failures are logged per recipient and never
// abort the fan-out. The member set is snapshotted up front so a
// connection closing mid-broadcast cannot disturb iteration.
func (b *PresenceBroadcaster) ToRoom(roomId string, msg *ServerMessage) {
	for _, userId := range b.tracker.Members(roomId) {
		c, ok := b.registry.Lookup(userId)
		if !ok {
			continue
		}
		if msg.SkipClient != nil && c.connId == msg.SkipClient.connId {
			continue
		}

		if !c.queueMessage(msg) {
			b.log.Printf("dropped broadcast to user %d in room %q", userId, roomId)
		}
	}
}

// ToAll delivers msg to every registered connection.
func (b *PresenceBroadcaster) ToAll(msg *ServerMessage) {
	for _, c := range b.registry.Clients() {
		if msg.SkipClient != nil && c.connId == msg.SkipClient.connId {
			continue
		}

		if !c.queueMessage(msg) {
			b.log.Printf("dropped broadcast to user %d", c.user.Id)
		}
	}
}
