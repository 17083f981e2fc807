package types

import (
	"time"
)

type Role string

const (
	RoleNormal     Role = "normal"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Role         Role      `json:"role,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// UserSummary is the roster-sized view of a user.
type UserSummary struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Id:       u.Id,
		Username: u.Username,
		Role:     u.Role,
	}
}

type Room struct {
	Id              int       `json:"id"`
	ExternalId      string    `json:"external_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OwnerId         int       `json:"owner_id"`
	IsPublic        bool      `json:"is_public"`
	MaxParticipants int       `json:"max_participants"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// Presence is a user's per-room liveness, position and media record.
type Presence struct {
	RoomId       string         `json:"room_id"`
	UserId       int            `json:"user_id"`
	Username     string         `json:"username"`
	Status       PresenceStatus `json:"status"`
	X            float64        `json:"x"`
	Y            float64        `json:"y"`
	AudioEnabled bool           `json:"audio_enabled"`
	VideoEnabled bool           `json:"video_enabled"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
}

type Message struct {
	Id        int       `json:"id"`
	RoomId    string    `json:"room_id"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

// CallSession is start/end bookkeeping for a peer-to-peer call. It is
// observational only and never gates signaling.
type CallSession struct {
	Id        int        `json:"id"`
	RoomId    string     `json:"room_id"`
	StartedBy int        `json:"started_by"`
	Kind      CallKind   `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
