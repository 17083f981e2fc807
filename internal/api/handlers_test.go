package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/npezzotti/go-office/internal/database"
	"github.com/npezzotti/go-office/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// findCookie is a helper function to find a cookie by name in the response recorder.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := database.User{
		Id:           1,
		Username:     "newuser",
		EmailAddress: "newuser@example.com",
		PasswordHash: "hashedpassword",
		Role:         "normal",
	}
	tcases := []struct {
		name        string
		body        any
		success     bool
		mockUser    database.User
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name: "successfully creates a new account",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			success:  true,
			mockUser: expectedUser,
		},
		{
			name:        "failed with invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing username",
			body: RegisterRequest{
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing password",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with db error",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockOfficeRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockUser != (database.User{}) || tc.mockErr != nil {
				regReq := tc.body.(RegisterRequest)
				mockRepo.On("CreateAccount", mock.MatchedBy(func(req database.CreateAccountParams) bool {
					return req.Username == regReq.Username &&
						req.EmailAddress == regReq.Email &&
						verifyPassword(req.PasswordHash, regReq.Password)
				})).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)

			var req *http.Request
			switch v := tc.body.(type) {
			case string:
				req = httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(v))
			case RegisterRequest:
				body, err := json.Marshal(v)
				assert.NoError(t, err, "failed to marshal request body")
				req = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBuffer(body))
			}

			rr := httptest.NewRecorder()
			app.createAccount(rr, req)

			if tc.success {
				assert.Equal(t, http.StatusCreated, rr.Code)

				var user types.User
				err := json.NewDecoder(rr.Body).Decode(&user)
				assert.NoError(t, err, "failed to decode response")
				assert.Equal(t, expectedUser.Id, user.Id)
				assert.Equal(t, expectedUser.Username, user.Username)
				assert.Equal(t, expectedUser.EmailAddress, user.EmailAddress)
			} else {
				var apiErr ApiError
				err := json.NewDecoder(rr.Body).Decode(&apiErr)
				assert.NoError(t, err, "failed to decode error response")
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				assert.Equal(t, *tc.expectedErr, apiErr, "expected ApiError response")
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	passwordHash, err := hashPassword("password")
	assert.NoError(t, err, "failed to hash test password")

	dbUser := database.User{
		Id:           1,
		Username:     "test",
		EmailAddress: "test@example.com",
		PasswordHash: passwordHash,
	}

	t.Run("successful login sets session cookie", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		body, err := json.Marshal(LoginRequest{Email: dbUser.EmailAddress, Password: "password"})
		assert.NoError(t, err, "failed to marshal request body")

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		app.login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected successful login")

		cookie := findCookie(rr, tokenCookieKey)
		assert.NotNil(t, cookie, "expected session cookie to be set")
		assert.NotEmpty(t, cookie.Value, "expected cookie to carry a token")

		var user types.User
		err = json.NewDecoder(rr.Body).Decode(&user)
		assert.NoError(t, err, "failed to decode response")
		assert.Equal(t, dbUser.Id, user.Id, "expected user id in response")
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(LoginRequest{Email: dbUser.EmailAddress, Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		app.login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 for wrong password")
		assert.Nil(t, findCookie(rr, tokenCookieKey), "expected no session cookie")
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", "nobody@example.com").Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		app.login(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected 404 for unknown account")
	})

	t.Run("missing fields", func(t *testing.T) {
		app := newTestApp(t, &database.MockOfficeRepository{})

		body, _ := json.Marshal(LoginRequest{Email: dbUser.EmailAddress})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		app.login(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400 for missing password")
	})
}

func TestLogoutHandler(t *testing.T) {
	app := newTestApp(t, &database.MockOfficeRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
	rr := httptest.NewRecorder()
	app.logout(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code, "expected 204 on logout")

	cookie := findCookie(rr, tokenCookieKey)
	assert.NotNil(t, cookie, "expected cookie to be overwritten")
	assert.Empty(t, cookie.Value, "expected cookie value to be cleared")
	assert.True(t, cookie.Expires.Before(time.Now()), "expected cookie to be expired")
}

func TestCreateRoomHandler(t *testing.T) {
	t.Run("successfully creates a room", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)

		created := database.Room{Id: 1, ExternalId: "abc123", Name: "lobby", OwnerId: 1, IsPublic: true, MaxParticipants: 50}
		mockRepo.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
			return p.Name == "lobby" && p.OwnerId == 1 && p.IsPublic &&
				p.MaxParticipants == 50 && p.ExternalId != ""
		})).Return(created, nil).Once()
		mockRepo.On("AddParticipant", 1, created.Id).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(CreateRoomRequest{Name: "lobby", IsPublic: true})
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected 201 on room creation")

		var room types.Room
		err := json.NewDecoder(rr.Body).Decode(&room)
		assert.NoError(t, err, "failed to decode response")
		assert.Equal(t, created.ExternalId, room.ExternalId, "expected external id in response")
		assert.Equal(t, 50, room.MaxParticipants, "expected capacity to default")
	})

	t.Run("explicit capacity is preserved", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)

		created := database.Room{Id: 2, ExternalId: "def456", Name: "small", OwnerId: 1, MaxParticipants: 4}
		mockRepo.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
			return p.MaxParticipants == 4
		})).Return(created, nil).Once()
		mockRepo.On("AddParticipant", 1, created.Id).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(CreateRoomRequest{Name: "small", MaxParticipants: 4})
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
		req = req.WithContext(WithUserId(req.Context(), 1))

		rr := httptest.NewRecorder()
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected 201 on room creation")
	})

	t.Run("fails with unauthorized access", func(t *testing.T) {
		app := newTestApp(t, &database.MockOfficeRepository{})

		body, _ := json.Marshal(CreateRoomRequest{Name: "lobby"})
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without user in context")
	})
}

func TestGetRoomsHandler(t *testing.T) {
	t.Run("lists rooms for the account", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListRoomsForAccount", 1).Return([]database.Room{
			{Id: 1, ExternalId: "abc123", Name: "lobby"},
			{Id: 2, ExternalId: "def456", Name: "quiet"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getRooms(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 listing rooms")

		var rooms []types.Room
		err := json.NewDecoder(rr.Body).Decode(&rooms)
		assert.NoError(t, err, "failed to decode response")
		assert.Len(t, rooms, 2, "expected both rooms in response")
	})

	t.Run("fetches a single public room by id", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(database.Room{Id: 1, ExternalId: "abc123", IsPublic: true}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getRooms(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 for public room")
	})

	t.Run("private room requires participation", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(database.Room{Id: 1, ExternalId: "abc123", IsPublic: false}, nil).Once()
		mockRepo.On("ParticipantExists", 1, 1).Return(false).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getRooms(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected 403 for non-participant")
	})

	t.Run("room not found", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=missing", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getRooms(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected 404 for unknown room")
	})
}

func TestDeleteRoomHandler(t *testing.T) {
	t.Run("owner deletes room", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(database.Room{Id: 1, ExternalId: "abc123", OwnerId: 1}, nil).Once()
		mockRepo.On("DeleteRoom", 1).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?id=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code, "expected 204 on deletion")
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(database.Room{Id: 1, ExternalId: "abc123", OwnerId: 2}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?id=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected 403 for non-owner")
	})

	t.Run("missing id", func(t *testing.T) {
		app := newTestApp(t, &database.MockOfficeRepository{})

		req := httptest.NewRequest(http.MethodDelete, "/api/rooms", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400 without room id")
	})
}

func TestGetMessagesHandler(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc123", IsPublic: true}

	t.Run("returns room history", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(room, nil).Once()
		mockRepo.On("GetMessages", 1, defaultMessageLimit).Return([]database.Message{
			{Id: 1, RoomId: 1, AccountId: 1, Username: "alice", Content: "hi"},
			{Id: 2, RoomId: 1, AccountId: 2, Username: "bob", Content: "hello"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=abc123", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 fetching messages")

		var messages []types.Message
		err := json.NewDecoder(rr.Body).Decode(&messages)
		assert.NoError(t, err, "failed to decode response")
		assert.Len(t, messages, 2, "expected both messages")
		assert.Equal(t, "abc123", messages[0].RoomId, "expected external room id on the wire")
	})

	t.Run("custom limit", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(room, nil).Once()
		mockRepo.On("GetMessages", 1, 5).Return([]database.Message{}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=abc123&limit=5", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 with custom limit")
	})

	t.Run("invalid limit", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc123").Return(room, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=abc123&limit=zero", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400 for invalid limit")
	})

	t.Run("missing room id", func(t *testing.T) {
		app := newTestApp(t, &database.MockOfficeRepository{})

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400 without room id")
	})
}

func TestIceServersHandler(t *testing.T) {
	app := newTestApp(t, &database.MockOfficeRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/webrtc/ice-servers", nil)
	req = req.WithContext(WithUserId(req.Context(), 1))
	rr := httptest.NewRecorder()
	app.iceServers(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "expected 200 fetching ice servers")

	var resp struct {
		IceServers []map[string]string `json:"iceServers"`
	}
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err, "failed to decode response")
	assert.NotEmpty(t, resp.IceServers, "expected at least one STUN server")
	for _, srv := range resp.IceServers {
		assert.Contains(t, srv["urls"], "stun:", "expected STUN urls only")
	}
}

func TestSessionHandler(t *testing.T) {
	t.Run("returns the current user", func(t *testing.T) {
		mockRepo := &database.MockOfficeRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountById", 1).Return(database.User{Id: 1, Username: "alice"}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req = req.WithContext(WithUserId(req.Context(), 1))
		rr := httptest.NewRecorder()
		app.session(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected 200 for valid session")

		var user types.User
		err := json.NewDecoder(rr.Body).Decode(&user)
		assert.NoError(t, err, "failed to decode response")
		assert.Equal(t, "alice", user.Username, "expected current user in response")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		app := newTestApp(t, &database.MockOfficeRepository{})

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		rr := httptest.NewRecorder()
		app.session(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without user in context")
	})
}
