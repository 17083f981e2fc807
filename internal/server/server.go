package server

import (
	"context"
	"log"
	"time"

	"github.com/npezzotti/go-office/internal/database"
	"github.com/npezzotti/go-office/internal/stats"
	"github.com/npezzotti/go-office/internal/types"
)

// OfficeServer is the single dispatch point for inbound client events. It
// owns the connection registry and room tracker and routes every event to
// the component responsible for it.
type OfficeServer struct {
	log         *log.Logger
	db          database.OfficeRepository
	stats       stats.StatsProvider
	registry    *ConnectionRegistry
	tracker     *RoomTracker
	relay       *SignalingRelay
	broadcaster *PresenceBroadcaster
}

func NewOfficeServer(logger *log.Logger, db database.OfficeRepository, sp stats.StatsProvider, presenceWindow time.Duration) (*OfficeServer, error) {
	registry := NewConnectionRegistry(logger)
	tracker := NewRoomTracker(logger, db, sp, presenceWindow)

	s := &OfficeServer{
		log:         logger,
		db:          db,
		stats:       sp,
		registry:    registry,
		tracker:     tracker,
		relay:       NewSignalingRelay(logger, registry, tracker, sp),
		broadcaster: NewPresenceBroadcaster(logger, registry, tracker),
	}

	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.ActiveRooms)
	sp.RegisterMetric(stats.SignalsRelayed)
	sp.RegisterMetric(stats.MessagesSent)
	sp.RegisterMetric(stats.PresenceUpdates)

	return s, nil
}

// Register makes c the current connection for its user and announces the
// updated online roster. A superseded connection is left open; it is
// reaped when its own close event fires.
func (s *OfficeServer) Register(c *Client) {
	prev := s.registry.Register(c)
	if prev == nil {
		s.stats.Incr(stats.ActiveConnections)
	}

	s.log.Printf("user %q connected (%s)", c.user.Username, c.connId)
	s.broadcastRoster()
}

// Unregister removes c and, if the user was in a room, performs the
// implicit leave. Exactly one roster update is emitted per disconnect of a
// current connection; orphaned connections are no-ops.
func (s *OfficeServer) Unregister(c *Client) {
	if !s.registry.Unregister(c) {
		return
	}
	s.stats.Decr(stats.ActiveConnections)

	if roomId, ok := s.tracker.CurrentRoom(c.user.Id); ok {
		if s.tracker.Leave(roomId, c.user.Id) {
			s.notifyLeft(roomId, c.user.Id)
		}
	}

	s.log.Printf("user %q disconnected (%s)", c.user.Username, c.connId)
	s.broadcastRoster()
}

func (s *OfficeServer) dispatch(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		s.handleJoin(msg)
	case msg.Leave != nil:
		s.handleLeave(msg)
	case msg.Position != nil:
		s.handlePosition(msg)
	case msg.Media != nil:
		s.handleMediaToggle(msg)
	case msg.MediaStarted != nil:
		s.handleMediaStarted(msg)
	case msg.MediaStopped != nil:
		s.handleMediaStopped(msg)
	case msg.Status != nil:
		s.handleStatus(msg)
	case msg.Chat != nil:
		s.handleChat(msg)
	case msg.Offer != nil:
		s.relay.Relay(SignalKindOffer, msg.UserId, msg.Offer.TargetUserId, msg.Offer.RoomId, msg.Offer.Offer)
	case msg.Answer != nil:
		s.handleAnswer(msg)
	case msg.Ice != nil:
		s.handleIce(msg)
	case msg.CallStart != nil:
		s.handleCallStart(msg)
	case msg.CallEnd != nil:
		s.handleCallEnd(msg)
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (s *OfficeServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	res, err := s.tracker.Join(c.user, msg.Join.RoomId)
	if err != nil {
		c.queueMessage(joinError(msg.Id, err))
		return
	}

	// the leave for the previous room is announced before the join is
	// confirmed, so observers never see the user in two rooms
	if res.PrevRoom != "" {
		s.notifyLeft(res.PrevRoom, c.user.Id)
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		RoomJoined: &RoomJoined{
			Room:      res.Room,
			Presences: res.Presences,
		},
	})

	s.broadcaster.ToRoom(res.Room.ExternalId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		UserJoined: &UserJoined{
			User:     c.user.Summary(),
			Presence: res.Presence,
		},
		SkipClient: c,
	})
}

func joinError(id int, err error) *ServerMessage {
	switch err {
	case ErrAccessDenied:
		return ErrAccessDeniedMsg(id)
	case ErrRoomFull:
		return ErrRoomFullMsg(id)
	case ErrRoomNotFound:
		return ErrRoomNotFoundMsg(id)
	default:
		return ErrInternalError(id)
	}
}

func (s *OfficeServer) handleLeave(msg *ClientMessage) {
	c := msg.client
	left := s.tracker.Leave(msg.Leave.RoomId, c.user.Id)

	// leaving a room the user is not in is already-left, not an error
	c.queueMessage(NoErrOK(msg.Id, nil))

	if left {
		s.notifyLeft(msg.Leave.RoomId, c.user.Id)
		s.broadcastRoster()
	}
}

// notifyLeft tells remaining room members the user left and that any of
// the user's media streams are gone.
func (s *OfficeServer) notifyLeft(roomId string, userId int) {
	s.broadcaster.ToRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		UserLeft: &UserLeft{
			UserId: userId,
			RoomId: roomId,
		},
	})
	s.broadcaster.ToRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MediaOff:    &MediaOffEvent{UserId: userId},
	})
}

func (s *OfficeServer) handlePosition(msg *ClientMessage) {
	upd := PresenceUpdate{
		X: &msg.Position.X,
		Y: &msg.Position.Y,
	}

	s.applyPresenceUpdate(msg, msg.Position.RoomId, upd)
}

func (s *OfficeServer) handleMediaToggle(msg *ClientMessage) {
	var upd PresenceUpdate
	switch msg.Media.Kind {
	case "audio":
		upd.AudioEnabled = &msg.Media.Enabled
	case "video":
		upd.VideoEnabled = &msg.Media.Enabled
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	s.applyPresenceUpdate(msg, msg.Media.RoomId, upd)
}

func (s *OfficeServer) handleMediaStarted(msg *ClientMessage) {
	c := msg.client
	upd := PresenceUpdate{
		AudioEnabled: &msg.MediaStarted.AudioEnabled,
		VideoEnabled: &msg.MediaStarted.VideoEnabled,
	}

	if _, err := s.tracker.UpdatePresence(msg.MediaStarted.RoomId, c.user.Id, upd); err != nil {
		c.queueMessage(ErrNotAMemberMsg(msg.Id))
		return
	}

	s.broadcaster.ToRoom(msg.MediaStarted.RoomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MediaOn: &MediaState{
			UserId:       c.user.Id,
			AudioEnabled: msg.MediaStarted.AudioEnabled,
			VideoEnabled: msg.MediaStarted.VideoEnabled,
		},
		SkipClient: c,
	})
}

func (s *OfficeServer) handleMediaStopped(msg *ClientMessage) {
	c := msg.client
	off := false
	upd := PresenceUpdate{
		AudioEnabled: &off,
		VideoEnabled: &off,
	}

	if _, err := s.tracker.UpdatePresence(msg.MediaStopped.RoomId, c.user.Id, upd); err != nil {
		c.queueMessage(ErrNotAMemberMsg(msg.Id))
		return
	}

	s.broadcaster.ToRoom(msg.MediaStopped.RoomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MediaOff:    &MediaOffEvent{UserId: c.user.Id},
		SkipClient:  c,
	})
}

func (s *OfficeServer) handleStatus(msg *ClientMessage) {
	switch msg.Status.Status {
	case types.StatusOnline, types.StatusAway, types.StatusBusy:
	default:
		// offline is reached only via leave or disconnect
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	upd := PresenceUpdate{Status: &msg.Status.Status}
	s.applyPresenceUpdate(msg, msg.Status.RoomId, upd)
}

// applyPresenceUpdate runs a partial presence update and echoes the result
// to the rest of the room, never back to the sender.
func (s *OfficeServer) applyPresenceUpdate(msg *ClientMessage, roomId string, upd PresenceUpdate) {
	c := msg.client
	presence, err := s.tracker.UpdatePresence(roomId, c.user.Id, upd)
	if err != nil {
		c.queueMessage(ErrNotAMemberMsg(msg.Id))
		return
	}

	s.stats.Incr(stats.PresenceUpdates)
	s.broadcaster.ToRoom(roomId, &ServerMessage{
		BaseMessage:     BaseMessage{Timestamp: Now()},
		PresenceChanged: &presence,
		SkipClient:      c,
	})
}

func (s *OfficeServer) handleChat(msg *ClientMessage) {
	c := msg.client
	roomId := msg.Chat.RoomId

	if cur, ok := s.tracker.CurrentRoom(c.user.Id); !ok || cur != roomId {
		c.queueMessage(ErrNotAMemberMsg(msg.Id))
		return
	}

	room, ok := s.tracker.Room(roomId)
	if !ok {
		c.queueMessage(ErrRoomNotFoundMsg(msg.Id))
		return
	}

	dbMsg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:    room.Id,
		AccountId: c.user.Id,
		Content:   msg.Chat.Content,
	})
	if err != nil {
		s.log.Println("create message:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	s.stats.Incr(stats.MessagesSent)
	s.broadcaster.ToRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		ChatMessage: &types.Message{
			Id:        dbMsg.Id,
			RoomId:    roomId,
			UserId:    c.user.Id,
			Username:  c.user.Username,
			Content:   dbMsg.Content,
			CreatedAt: dbMsg.CreatedAt,
		},
	})
}

// handleAnswer resolves the room from the sender's current room; answers
// carry no room id on the wire.
func (s *OfficeServer) handleAnswer(msg *ClientMessage) {
	roomId, ok := s.tracker.CurrentRoom(msg.UserId)
	if !ok {
		return
	}

	s.relay.Relay(SignalKindAnswer, msg.UserId, msg.Answer.TargetUserId, roomId, msg.Answer.Answer)
}

func (s *OfficeServer) handleIce(msg *ClientMessage) {
	roomId, ok := s.tracker.CurrentRoom(msg.UserId)
	if !ok {
		return
	}

	s.relay.Relay(SignalKindCandidate, msg.UserId, msg.Ice.TargetUserId, roomId, msg.Ice.Candidate)
}

func (s *OfficeServer) handleCallStart(msg *ClientMessage) {
	c := msg.client
	roomId := msg.CallStart.RoomId

	if cur, ok := s.tracker.CurrentRoom(c.user.Id); !ok || cur != roomId {
		c.queueMessage(ErrNotAMemberMsg(msg.Id))
		return
	}

	room, ok := s.tracker.Room(roomId)
	if !ok {
		c.queueMessage(ErrRoomNotFoundMsg(msg.Id))
		return
	}

	kind := msg.CallStart.Kind
	if kind == "" {
		kind = types.CallVideo
	}

	call, err := s.db.CreateCall(database.CreateCallParams{
		RoomId:    room.Id,
		StartedBy: c.user.Id,
		Kind:      string(kind),
	})
	if err != nil {
		s.log.Println("create call:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	s.broadcaster.ToRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		CallStarted: &CallStarted{
			CallId: call.Id,
			Kind:   kind,
			UserId: c.user.Id,
		},
	})
}

func (s *OfficeServer) handleCallEnd(msg *ClientMessage) {
	call, err := s.db.EndCall(msg.CallEnd.CallId)
	if err != nil {
		// ending an unknown or already-ended call is a no-op
		s.log.Println("end call:", err)
		return
	}

	s.broadcaster.ToRoom(call.RoomExternalId, &ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		CallEnded:   &CallEnded{CallId: call.Id},
	})
}

func (s *OfficeServer) broadcastRoster() {
	s.broadcaster.ToAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Roster:      s.registry.Roster(),
	})
}

// Shutdown stops all client connections.
func (s *OfficeServer) Shutdown(ctx context.Context) error {
	for _, c := range s.registry.Clients() {
		c.stopClient()
	}

	return ctx.Err()
}
