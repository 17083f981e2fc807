package server

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/go-office/internal/database"
	"github.com/npezzotti/go-office/internal/stats"
	"github.com/npezzotti/go-office/internal/types"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrAccessDenied = errors.New("access denied")
	ErrRoomFull     = errors.New("room full")
	ErrNotAMember   = errors.New("not a member")
)

// RoomTracker owns which users are currently in which room and their
// presence records. It is the authoritative store for connected state; the
// repository only mirrors it.
type RoomTracker struct {
	mu       sync.Mutex
	db       database.OfficeRepository
	stats    stats.StatsProvider
	log      *log.Logger
	window   time.Duration
	rooms    map[string]*roomState
	userRoom map[int]string
}

type roomState struct {
	room      types.Room
	presences map[int]*types.Presence
}

// JoinResult reports the outcome of a join, including the room the user was
// implicitly removed from, if any.
type JoinResult struct {
	Room      types.Room
	Presence  types.Presence
	Presences []types.Presence
	PrevRoom  string
}

// PresenceUpdate is a partial update; nil fields are left untouched.
type PresenceUpdate struct {
	X            *float64
	Y            *float64
	Status       *types.PresenceStatus
	AudioEnabled *bool
	VideoEnabled *bool
}

func NewRoomTracker(logger *log.Logger, db database.OfficeRepository, sp stats.StatsProvider, window time.Duration) *RoomTracker {
	return &RoomTracker{
		db:       db,
		stats:    sp,
		log:      logger,
		window:   window,
		rooms:    make(map[string]*roomState),
		userRoom: make(map[int]string),
	}
}

// Join puts the user in the room, leaving any previously joined room first.
// Access and capacity are checked before the previous room is left, so a
// failed join never changes the user's current room.
func (t *RoomTracker) Join(user types.User, roomId string) (*JoinResult, error) {
	t.mu.Lock()

	rs, ok := t.rooms[roomId]
	if !ok {
		dbRoom, err := t.db.GetRoomByExternalId(roomId)
		if err != nil {
			t.mu.Unlock()
			return nil, ErrRoomNotFound
		}

		rs = &roomState{
			room: types.Room{
				Id:              dbRoom.Id,
				ExternalId:      dbRoom.ExternalId,
				Name:            dbRoom.Name,
				Description:     dbRoom.Description,
				OwnerId:         dbRoom.OwnerId,
				IsPublic:        dbRoom.IsPublic,
				MaxParticipants: dbRoom.MaxParticipants,
				CreatedAt:       dbRoom.CreatedAt,
				UpdatedAt:       dbRoom.UpdatedAt,
			},
			presences: make(map[int]*types.Presence),
		}
		t.rooms[roomId] = rs
		t.stats.Incr(stats.ActiveRooms)
	}

	if !rs.room.IsPublic && !t.db.ParticipantExists(user.Id, rs.room.Id) {
		t.mu.Unlock()
		return nil, ErrAccessDenied
	}

	if p, ok := rs.presences[user.Id]; !ok || p.Status == types.StatusOffline {
		if rs.room.MaxParticipants > 0 && t.liveCountLocked(rs) >= rs.room.MaxParticipants {
			t.mu.Unlock()
			return nil, ErrRoomFull
		}
	}

	var prevRoom string
	if prev, ok := t.userRoom[user.Id]; ok && prev != roomId {
		prevRoom = prev
		t.leaveLocked(prev, user.Id)
	}

	p, ok := rs.presences[user.Id]
	if !ok {
		p = &types.Presence{
			RoomId: roomId,
			UserId: user.Id,
		}
		rs.presences[user.Id] = p
	}
	p.Username = user.Username
	p.Status = types.StatusOnline
	p.LastSeenAt = Now()

	t.userRoom[user.Id] = roomId

	res := &JoinResult{
		Room:      rs.room,
		Presence:  *p,
		Presences: t.snapshotLocked(rs),
		PrevRoom:  prevRoom,
	}
	roomDbId := rs.room.Id
	t.mu.Unlock()

	// durable mirror, best effort
	if err := t.db.AddParticipant(user.Id, roomDbId); err != nil {
		t.log.Printf("add participant for user %d in room %q: %v", user.Id, roomId, err)
	}
	t.mirrorPresence(roomDbId, res.Presence)

	return res, nil
}

// Leave marks the user's presence offline. It reports whether the user was
// actually a live member; leaving a room the user is not in is a no-op.
func (t *RoomTracker) Leave(roomId string, userId int) bool {
	t.mu.Lock()

	rs, ok := t.rooms[roomId]
	if !ok {
		t.mu.Unlock()
		return false
	}

	if !t.leaveLocked(roomId, userId) {
		t.mu.Unlock()
		return false
	}

	roomDbId := rs.room.Id
	t.mu.Unlock()

	if err := t.db.MarkPresenceOffline(userId, roomDbId); err != nil {
		t.log.Printf("mark presence offline for user %d in room %q: %v", userId, roomId, err)
	}

	return true
}

// leaveLocked is the in-memory half of Leave. Caller must hold t.mu.
func (t *RoomTracker) leaveLocked(roomId string, userId int) bool {
	rs, ok := t.rooms[roomId]
	if !ok {
		return false
	}

	p, ok := rs.presences[userId]
	if !ok || p.Status == types.StatusOffline {
		return false
	}

	p.Status = types.StatusOffline
	p.LastSeenAt = Now()

	if t.userRoom[userId] == roomId {
		delete(t.userRoom, userId)
	}

	if t.liveCountLocked(rs) == 0 {
		delete(t.rooms, roomId)
		t.stats.Decr(stats.ActiveRooms)
	}

	return true
}

// UpdatePresence applies a partial update to the user's presence record.
func (t *RoomTracker) UpdatePresence(roomId string, userId int, upd PresenceUpdate) (types.Presence, error) {
	t.mu.Lock()

	rs, ok := t.rooms[roomId]
	if !ok {
		t.mu.Unlock()
		return types.Presence{}, ErrNotAMember
	}

	p, ok := rs.presences[userId]
	if !ok || p.Status == types.StatusOffline {
		t.mu.Unlock()
		return types.Presence{}, ErrNotAMember
	}

	if upd.X != nil {
		p.X = *upd.X
	}
	if upd.Y != nil {
		p.Y = *upd.Y
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.AudioEnabled != nil {
		p.AudioEnabled = *upd.AudioEnabled
	}
	if upd.VideoEnabled != nil {
		p.VideoEnabled = *upd.VideoEnabled
	}
	p.LastSeenAt = Now()

	presence := *p
	roomDbId := rs.room.Id
	t.mu.Unlock()

	t.mirrorPresence(roomDbId, presence)

	return presence, nil
}

// Snapshot returns the active presences for a room. A record is active if
// its status is online, or it is non-offline and was seen within the
// recency window. Freshly joined users are therefore visible immediately,
// while stale away/busy records age out.
func (t *RoomTracker) Snapshot(roomId string) []types.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.rooms[roomId]
	if !ok {
		return nil
	}

	return t.snapshotLocked(rs)
}

func (t *RoomTracker) snapshotLocked(rs *roomState) []types.Presence {
	now := time.Now()

	var presences []types.Presence
	for _, p := range rs.presences {
		if !t.isActive(p, now) {
			continue
		}
		presences = append(presences, *p)
	}

	return presences
}

func (t *RoomTracker) isActive(p *types.Presence, now time.Time) bool {
	if p.Status == types.StatusOnline {
		return true
	}

	return p.Status != types.StatusOffline && now.Sub(p.LastSeenAt) <= t.window
}

func (t *RoomTracker) liveCountLocked(rs *roomState) int {
	now := time.Now()

	var n int
	for _, p := range rs.presences {
		if t.isActive(p, now) {
			n++
		}
	}

	return n
}

// Members returns the user ids of all non-offline members of a room.
func (t *RoomTracker) Members(roomId string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.rooms[roomId]
	if !ok {
		return nil
	}

	var members []int
	for id, p := range rs.presences {
		if p.Status == types.StatusOffline {
			continue
		}
		members = append(members, id)
	}

	return members
}

// CurrentRoom returns the room the user is currently connected to.
func (t *RoomTracker) CurrentRoom(userId int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomId, ok := t.userRoom[userId]
	return roomId, ok
}

// Room returns the cached room record, if the room is currently loaded.
func (t *RoomTracker) Room(roomId string) (types.Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.rooms[roomId]
	if !ok {
		return types.Room{}, false
	}

	return rs.room, true
}

func (t *RoomTracker) mirrorPresence(roomDbId int, p types.Presence) {
	err := t.db.UpsertPresence(database.UpsertPresenceParams{
		AccountId:    p.UserId,
		RoomId:       roomDbId,
		Status:       string(p.Status),
		X:            p.X,
		Y:            p.Y,
		AudioEnabled: p.AudioEnabled,
		VideoEnabled: p.VideoEnabled,
	})
	if err != nil {
		t.log.Printf("mirror presence for user %d in room %d: %v", p.UserId, roomDbId, err)
	}
}
