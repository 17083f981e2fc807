package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id              int
	ExternalId      string
	Name            string
	Description     string
	OwnerId         int
	IsPublic        bool
	MaxParticipants int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Participant struct {
	Id        int
	AccountId int
	RoomId    int
	Username  string
	CreatedAt time.Time
}

type Presence struct {
	Id           int
	AccountId    int
	RoomId       int
	Status       string
	X            float64
	Y            float64
	AudioEnabled bool
	VideoEnabled bool
	LastSeenAt   time.Time
}

type Message struct {
	Id        int
	RoomId    int
	AccountId int
	Username  string
	Content   string
	CreatedAt time.Time
}

type Call struct {
	Id             int
	RoomId         int
	RoomExternalId string
	StartedBy      int
	Kind           string
	StartedAt      time.Time
	EndedAt        *time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name            string
	Description     string
	ExternalId      string
	OwnerId         int
	IsPublic        bool
	MaxParticipants int
}

type UpsertPresenceParams struct {
	AccountId    int
	RoomId       int
	Status       string
	X            float64
	Y            float64
	AudioEnabled bool
	VideoEnabled bool
}

type CreateMessageParams struct {
	RoomId    int
	AccountId int
	Content   string
}

type CreateCallParams struct {
	RoomId    int
	StartedBy int
	Kind      string
}
