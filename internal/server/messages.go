package server

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-office/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the inbound event union. Exactly one event field is
// expected to be set; anything else is rejected at the dispatcher boundary.
type ClientMessage struct {
	BaseMessage
	Join         *Join            `json:"join,omitempty"`
	Leave        *Leave           `json:"leave,omitempty"`
	Position     *PositionUpdate  `json:"position,omitempty"`
	Media        *MediaToggle     `json:"media,omitempty"`
	MediaStarted *MediaStarted    `json:"media_started,omitempty"`
	MediaStopped *MediaStopped    `json:"media_stopped,omitempty"`
	Status       *StatusUpdate    `json:"status,omitempty"`
	Chat         *ChatSend        `json:"chat,omitempty"`
	Offer        *SignalOffer     `json:"offer,omitempty"`
	Answer       *SignalAnswer    `json:"answer,omitempty"`
	Ice          *SignalCandidate `json:"ice,omitempty"`
	CallStart    *CallStart       `json:"call_start,omitempty"`
	CallEnd      *CallEnd         `json:"call_end,omitempty"`
	UserId       int              `json:"-"`
	client       *Client          `json:"-"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type PositionUpdate struct {
	RoomId string  `json:"room_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type MediaToggle struct {
	RoomId  string `json:"room_id"`
	Kind    string `json:"kind"` // "audio" or "video"
	Enabled bool   `json:"enabled"`
}

type MediaStarted struct {
	RoomId       string `json:"room_id"`
	AudioEnabled bool   `json:"audio_enabled"`
	VideoEnabled bool   `json:"video_enabled"`
}

type MediaStopped struct {
	RoomId string `json:"room_id"`
}

type StatusUpdate struct {
	RoomId string               `json:"room_id"`
	Status types.PresenceStatus `json:"status"`
}

type ChatSend struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
}

type SignalOffer struct {
	TargetUserId int    `json:"target_user_id"`
	RoomId       string `json:"room_id"`
	Offer        string `json:"offer"`
}

type SignalAnswer struct {
	TargetUserId int    `json:"target_user_id"`
	Answer       string `json:"answer"`
}

type SignalCandidate struct {
	TargetUserId int    `json:"target_user_id"`
	Candidate    string `json:"candidate"`
}

type CallStart struct {
	RoomId string         `json:"room_id"`
	Kind   types.CallKind `json:"kind"`
}

type CallEnd struct {
	CallId int `json:"call_id"`
}

// ServerMessage is the outbound event union.
type ServerMessage struct {
	BaseMessage
	Response        *Response           `json:"response,omitempty"`
	Roster          []types.UserSummary `json:"roster,omitempty"`
	RoomJoined      *RoomJoined         `json:"room_joined,omitempty"`
	UserJoined      *UserJoined         `json:"user_joined,omitempty"`
	UserLeft        *UserLeft           `json:"user_left,omitempty"`
	PresenceChanged *types.Presence     `json:"presence_changed,omitempty"`
	MediaOn         *MediaState         `json:"media_started,omitempty"`
	MediaOff        *MediaOffEvent      `json:"media_stopped,omitempty"`
	ChatMessage     *types.Message      `json:"message,omitempty"`
	CallStarted     *CallStarted        `json:"call_started,omitempty"`
	CallEnded       *CallEnded          `json:"call_ended,omitempty"`
	Signal          *Signal             `json:"signal,omitempty"`
	SkipClient      *Client             `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type RoomJoined struct {
	Room      types.Room       `json:"room"`
	Presences []types.Presence `json:"presences"`
}

type UserJoined struct {
	User     types.UserSummary `json:"user"`
	Presence types.Presence    `json:"presence"`
}

type UserLeft struct {
	UserId int    `json:"user_id"`
	RoomId string `json:"room_id"`
}

type MediaState struct {
	UserId       int  `json:"user_id"`
	AudioEnabled bool `json:"audio_enabled"`
	VideoEnabled bool `json:"video_enabled"`
}

type MediaOffEvent struct {
	UserId int `json:"user_id"`
}

type CallStarted struct {
	CallId int            `json:"call_id"`
	Kind   types.CallKind `json:"kind"`
	UserId int            `json:"user_id"`
}

type CallEnded struct {
	CallId int `json:"call_id"`
}

// Signal kinds relayed between peers.
const (
	SignalKindOffer     = "offer"
	SignalKindAnswer    = "answer"
	SignalKindCandidate = "ice"
)

// Signal carries one opaque WebRTC negotiation payload to a single peer.
type Signal struct {
	Kind    string `json:"kind"`
	From    int    `json:"from"`
	RoomId  string `json:"room_id"`
	Payload string `json:"payload"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func newErrorMessage(id, code int, text string) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        text,
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrUnauthorized(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusUnauthorized, "unauthenticated")
}

func ErrAccessDeniedMsg(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusForbidden, "access denied")
}

func ErrRoomFullMsg(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusConflict, "room full")
}

func ErrNotAMemberMsg(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusForbidden, "not a member")
}

func ErrRoomNotFoundMsg(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusNotFound, "room not found")
}

func ErrInternalError(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusInternalServerError, "internal server error")
}

func ErrInvalidMessage(id int) *ServerMessage {
	return newErrorMessage(id, http.StatusBadRequest, "invalid message format")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
