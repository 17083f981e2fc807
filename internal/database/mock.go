package database

import (
	"github.com/stretchr/testify/mock"
)

type MockOfficeRepository struct {
	mock.Mock
}

func (m *MockOfficeRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockOfficeRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockOfficeRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockOfficeRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockOfficeRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockOfficeRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockOfficeRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockOfficeRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockOfficeRepository) DeleteRoom(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockOfficeRepository) AddParticipant(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockOfficeRepository) RemoveParticipant(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockOfficeRepository) ParticipantExists(accountId, roomId int) bool {
	args := m.Called(accountId, roomId)
	return args.Bool(0)
}
func (m *MockOfficeRepository) UpsertPresence(params UpsertPresenceParams) error {
	args := m.Called(params)
	return args.Error(0)
}
func (m *MockOfficeRepository) MarkPresenceOffline(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockOfficeRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockOfficeRepository) GetMessages(roomId, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockOfficeRepository) CreateCall(params CreateCallParams) (Call, error) {
	args := m.Called(params)
	return args.Get(0).(Call), args.Error(1)
}
func (m *MockOfficeRepository) EndCall(callId int) (Call, error) {
	args := m.Called(callId)
	return args.Get(0).(Call), args.Error(1)
}
